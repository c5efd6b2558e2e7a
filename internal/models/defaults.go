package models

// allBackupsFolder is the shared drive every unit is backed up into.
const allBackupsFolder = "0AGF1TXP-FyyIUk9PVA"

// DefaultCatalog returns the district catalog used when no catalog file is configured.
func DefaultCatalog() *Catalog {
	return &Catalog{
		AggregateUnitID: 0,
		Units: []OrganizationalUnit{
			{ID: 0, SpreadsheetID: "1ee5iC3n__THFqEpcTHoNhtk56RJyHa6Uu_5RpvGOG5M", Folders: []string{allBackupsFolder}},
			{ID: 1150, SpreadsheetID: "1Ex9o1_SEJBdVTA2MZjGSU8pUn95CRRGal8Y1_amjUyE", Folders: []string{allBackupsFolder, "0AGvZHAEWASsyUk9PVA"}},
			{ID: 5177, SpreadsheetID: "19ecfAWUH4qRIgmqyJQZHaog-E4JFT66VzhP07g3DDVY", Folders: []string{allBackupsFolder, "0APxtexiQIwCvUk9PVA"}},
			{ID: 5197, SpreadsheetID: "1t2Tr8DhwT3UVVcxC9SMbbGTcoAuj14yltVeQl5YGPTA", Folders: []string{allBackupsFolder, "0AKwEIKLRyIhQUk9PVA"}},
			{ID: 11095, SpreadsheetID: "1a9F2-oo4QwlOsllCt-zdMRFxJ4KJ0O-1Bh4gwC3dXcc", Folders: []string{allBackupsFolder, "0AJvNRqaC8G49Uk9PVA"}},
			{ID: 17906, SpreadsheetID: "1rT4lPQEtFE3smXv5hLU_RM_hKzFnseQ0ItVkIUfREzc", Folders: []string{allBackupsFolder, "0APlIK2ERAsrVUk9PVA"}},
			{ID: 31622, SpreadsheetID: "1OzTPf_e5370JL9Kwk310XaQL1JL4WFdxhON8n-Ohdb4", Folders: []string{allBackupsFolder, "0AHlNfafsdbhpUk9PVA"}},
			{ID: 31948, SpreadsheetID: "1yXcf4GOcybYMjnAyqZUN8Zp7SScP0VrG4p6_XQcP12s", Folders: []string{allBackupsFolder, "0AIRdMtwEJQB7Uk9PVA"}},
		},
		Kinds: []ArtifactKind{
			{Name: "sheet", MimeType: MimeTypeSpreadsheet, Scope: ScopeLiveCopy},
			{Name: "xlsx", MimeType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Suffix: ".xlsx", Scope: ScopeDocument},
			{Name: "pdf", MimeType: "application/pdf", Suffix: ".pdf", Scope: ScopeSheet},
		},
		Sheets: []SheetDescriptor{
			{
				Name:  "Transportation Info",
				Query: "/ws/schema/query/org.d201.students.transport_info_per_building?pagesize=0",
				Columns: []string{
					"student_number", "lastfirst", "grade_level", "team", "street",
					"transportation_mode_before", "pickup_bus", "pickup_time", "pickup_location",
					"daycare_before", "daycare_before_name", "daycare_before_address", "daycare_before_phone",
					"transportation_mode_after", "dropoff_bus", "dropoff_time", "dropoff_location",
					"daycare_after", "daycare_after_name", "daycare_after_address", "daycare_after_phone",
					"daycare_arrangements",
				},
			},
			{
				Name:  "Schedule Info",
				Query: "/ws/schema/query/org.d201.students.student_schedule_per_building?pagesize=0",
				Columns: []string{
					"student_number", "lastfirst", "grade_level", "teacher", "course_name",
					"ee", "room", "period_number", "time",
				},
			},
			{
				Name:  "Contact Info",
				Query: "/ws/schema/query/org.d201.students.student_contacts_per_building?pagesize=0",
				Columns: []string{
					"student_number", "lastfirst", "grade_level", "home_room", "primary",
					"custodial", "emergency", "contname", "contrel", "contphone", "contemail",
				},
			},
		},
	}
}
