package models

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// MimeTypeSpreadsheet is the Drive mime type of a native Google Sheets file.
const MimeTypeSpreadsheet = "application/vnd.google-apps.spreadsheet"

// Scope says how many artifacts a kind produces per destination folder.
type Scope string

const (
	// ScopeLiveCopy is a full spreadsheet copy refreshed cell by cell.
	ScopeLiveCopy Scope = "live-copy"
	// ScopeDocument is one binary export of the whole spreadsheet.
	ScopeDocument Scope = "document"
	// ScopeSheet is one binary export per sheet inside the spreadsheet.
	ScopeSheet Scope = "sheet"
)

// ArtifactKind describes one representation maintained in every destination folder.
type ArtifactKind struct {
	Name     string `yaml:"name"`
	MimeType string `yaml:"mimeType"`
	Suffix   string `yaml:"suffix"`
	Scope    Scope  `yaml:"scope"`
}

// SheetScoped reports whether the kind is instantiated once per sheet.
func (k ArtifactKind) SheetScoped() bool { return k.Scope == ScopeSheet }

// OrganizationalUnit is a school: one source spreadsheet fanned out to its folders.
type OrganizationalUnit struct {
	ID            int      `yaml:"id"`
	SpreadsheetID string   `yaml:"spreadsheetId"`
	Folders       []string `yaml:"folders"`
}

// SheetDescriptor names a sheet and the column keys written to it.
// Query is the upstream query path that fills the sheet, if any.
type SheetDescriptor struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Query   string   `yaml:"query,omitempty"`
}

// Catalog is the immutable run configuration.
type Catalog struct {
	AggregateUnitID int                  `yaml:"aggregateUnitId"`
	Units           []OrganizationalUnit `yaml:"units"`
	Kinds           []ArtifactKind       `yaml:"kinds"`
	Sheets          []SheetDescriptor    `yaml:"sheets"`
}

// ParseCatalog decodes and validates a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the structural rules every run relies on.
func (c *Catalog) Validate() error {
	var errs []error
	if len(c.Units) == 0 {
		errs = append(errs, errors.New("catalog has no units"))
	}
	seenUnits := make(map[int]bool, len(c.Units))
	for _, u := range c.Units {
		if seenUnits[u.ID] {
			errs = append(errs, fmt.Errorf("unit %d: duplicate id", u.ID))
		}
		seenUnits[u.ID] = true
		if strings.TrimSpace(u.SpreadsheetID) == "" {
			errs = append(errs, fmt.Errorf("unit %d: spreadsheetId is empty", u.ID))
		}
		if len(u.Folders) == 0 {
			errs = append(errs, fmt.Errorf("unit %d: no destination folders", u.ID))
		}
	}

	// Artifact names are the existence key inside a folder, so no two kinds
	// may derive the same name from the same document.
	seenKinds := make(map[string]bool, len(c.Kinds))
	seenSuffixes := make(map[Scope]map[string]string)
	liveCopies := 0
	for _, k := range c.Kinds {
		if seenKinds[k.Name] {
			errs = append(errs, fmt.Errorf("kind %q: duplicate name", k.Name))
		}
		seenKinds[k.Name] = true
		switch k.Scope {
		case ScopeLiveCopy:
			liveCopies++
			if liveCopies == 2 {
				errs = append(errs, fmt.Errorf("kind %q: only one live-copy kind is allowed", k.Name))
			}
		case ScopeDocument, ScopeSheet:
			if k.MimeType == "" {
				errs = append(errs, fmt.Errorf("kind %q: export kinds need a mimeType", k.Name))
			}
			if k.Suffix == "" {
				errs = append(errs, fmt.Errorf("kind %q: export kinds need a suffix", k.Name))
				break
			}
			if seenSuffixes[k.Scope] == nil {
				seenSuffixes[k.Scope] = map[string]string{}
			}
			if other, dup := seenSuffixes[k.Scope][k.Suffix]; dup {
				errs = append(errs, fmt.Errorf("kind %q: suffix %q already used by kind %q", k.Name, k.Suffix, other))
			} else {
				seenSuffixes[k.Scope][k.Suffix] = k.Name
			}
		default:
			errs = append(errs, fmt.Errorf("kind %q: unknown scope %q", k.Name, k.Scope))
		}
	}

	seenSheets := make(map[string]bool, len(c.Sheets))
	for _, s := range c.Sheets {
		if seenSheets[s.Name] {
			errs = append(errs, fmt.Errorf("sheet %q: duplicate name", s.Name))
		}
		seenSheets[s.Name] = true
		if len(s.Columns) == 0 {
			errs = append(errs, fmt.Errorf("sheet %q: no columns", s.Name))
		}
	}
	return errors.Join(errs...)
}

// Sheet returns the descriptor for a sheet title.
func (c *Catalog) Sheet(name string) (SheetDescriptor, bool) {
	for _, s := range c.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return SheetDescriptor{}, false
}

// WithUnits returns a copy of the catalog restricted to the given unit ids,
// keeping catalog order. An empty list keeps every unit.
func (c *Catalog) WithUnits(ids []int) *Catalog {
	if len(ids) == 0 {
		return c
	}
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := *c
	out.Units = nil
	for _, u := range c.Units {
		if want[u.ID] {
			out.Units = append(out.Units, u)
		}
	}
	return &out
}

// ArtifactName derives the destination name for a kind. The name doubles as
// the existence key inside a folder, so it must stay stable across runs.
// sheetTitle is ignored for kinds that are not sheet scoped.
func ArtifactName(docTitle string, kind ArtifactKind, sheetTitle string) string {
	switch kind.Scope {
	case ScopeLiveCopy:
		return docTitle
	case ScopeSheet:
		return docTitle + " - " + sheetTitle + kind.Suffix
	default:
		return docTitle + kind.Suffix
	}
}
