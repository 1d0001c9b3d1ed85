package models

// OrphanReference is a stored id pointing at a record that no longer exists.
type OrphanReference struct {
	Collection string `json:"collection"`
	RecordID   string `json:"recordId"`
	Field      string `json:"field"`
	MissingID  string `json:"missingId"`
}

// IntegrityReport lists every dangling reference found in the collections.
type IntegrityReport struct {
	Orphans []OrphanReference `json:"orphans"`
	Total   int               `json:"total"`
}

// ImportSummary counts the records written per collection by an import.
type ImportSummary struct {
	Collections map[string]int `json:"collections"`
}
