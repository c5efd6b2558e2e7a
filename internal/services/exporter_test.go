package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/Lllllllleong/sheetsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExporter_ExportAndStore(t *testing.T) {
	const folder = "folder-1"
	ctx := context.Background()

	t.Run("create path makes a file then fills it", func(t *testing.T) {
		ws := newFakeWorkspace()
		ws.addSpreadsheet("doc", "Lincoln", map[string][][]interface{}{"A": nil})

		id, err := NewExporter(ws).ExportAndStore(ctx, discardLogger(), ExportSource{DocumentID: "doc"}, "text/csv", "Lincoln.csv", folder, "")
		require.NoError(t, err)

		files := ws.inFolder(folder)
		require.Len(t, files, 1)
		f := files["Lincoln.csv"]
		require.NotNil(t, f)
		assert.Equal(t, id, f.id)
		assert.Equal(t, "text/csv", f.mimeType)
		assert.Equal(t, "doc||text/csv", string(f.content))
		assert.Equal(t, 1, ws.calls["create"])
	})

	t.Run("refresh path keeps the id", func(t *testing.T) {
		ws := newFakeWorkspace()
		ws.addSpreadsheet("doc", "Lincoln", map[string][][]interface{}{"A": nil})
		existing := ws.addFile("Lincoln - A.pdf", folder, "application/pdf", []byte("old"))

		sheet := &models.Sheet{ID: 100, Title: "A"}
		id, err := NewExporter(ws).ExportAndStore(ctx, discardLogger(), ExportSource{DocumentID: "doc", Sheet: sheet}, "application/pdf", "Lincoln - A.pdf", folder, existing)
		require.NoError(t, err)

		assert.Equal(t, existing, id)
		assert.Zero(t, ws.calls["create"])
		assert.Equal(t, "doc|A|application/pdf", string(ws.files[existing].content))
	})

	t.Run("transient download failures are retried", func(t *testing.T) {
		ws := newFakeWorkspace()
		ws.addSpreadsheet("doc", "Lincoln", nil)
		ws.fail("export", 2)

		_, err := NewExporter(ws).ExportAndStore(ctx, discardLogger(), ExportSource{DocumentID: "doc"}, "text/csv", "Lincoln.csv", folder, "")
		require.NoError(t, err)
		assert.Equal(t, MaxAttempts, ws.calls["export"])
	})

	t.Run("exhausted upload keeps the created id and reports failure", func(t *testing.T) {
		ws := newFakeWorkspace()
		ws.addSpreadsheet("doc", "Lincoln", nil)
		ws.fail("upload", -1)

		id, err := NewExporter(ws).ExportAndStore(ctx, discardLogger(), ExportSource{DocumentID: "doc"}, "text/csv", "Lincoln.csv", folder, "")
		require.ErrorIs(t, err, ErrRetriesExhausted)
		assert.NotEmpty(t, id)
		assert.Equal(t, MaxAttempts, ws.calls["upload"])
		assert.Equal(t, 1, ws.calls["create"], "a created file is never created twice")
	})

	t.Run("exhausted create stops before exporting", func(t *testing.T) {
		ws := newFakeWorkspace()
		ws.addSpreadsheet("doc", "Lincoln", nil)
		ws.fail("create", -1)

		id, err := NewExporter(ws).ExportAndStore(ctx, discardLogger(), ExportSource{DocumentID: "doc"}, "text/csv", "Lincoln.csv", folder, "")
		require.ErrorIs(t, err, ErrRetriesExhausted)
		assert.Empty(t, id)
		assert.Zero(t, ws.calls["export"])
	})

	t.Run("archive receives the payload and its failure is not fatal", func(t *testing.T) {
		ws := newFakeWorkspace()
		ws.addSpreadsheet("doc", "Lincoln", nil)
		archive := &recordingArchive{err: assert.AnError}

		_, err := NewExporter(ws, WithArchive(archive)).ExportAndStore(ctx, discardLogger(), ExportSource{DocumentID: "doc"}, "text/csv", "Lincoln.csv", folder, "")
		require.NoError(t, err)
		assert.Equal(t, []string{folder + "/Lincoln.csv"}, archive.keys)
	})
}

func TestExporter_DownloadChunks(t *testing.T) {
	ws := newFakeWorkspace()
	ws.addSpreadsheet("doc", "Lincoln", nil)
	payload := bytes.Repeat([]byte("x"), 10)
	ws.exports = func(string, *models.Sheet, string) []byte { return payload }

	tests := []struct {
		name     string
		chunk    int
		max      int
		wantErr  error
		wantSize int
	}{
		{name: "exact multiple of chunk", chunk: 5, max: 100, wantSize: 10},
		{name: "partial last chunk", chunk: 4, max: 100, wantSize: 10},
		{name: "single oversized chunk", chunk: 64, max: 100, wantSize: 10},
		{name: "over the cap", chunk: 4, max: 8, wantErr: ErrExportTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExporter(ws, WithChunkSize(tt.chunk, tt.max))
			got, err := e.download(context.Background(), ExportSource{DocumentID: "doc"}, "text/plain")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.True(t, isPermanent(err))
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.wantSize)
		})
	}
}
