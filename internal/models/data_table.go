package models

// DataTable is a structured statistical table attached to a catalog entry.
type DataTable struct {
	ID             string  `db:"id" json:"id"`
	CatalogEntryID *string `db:"catalog_entry_id" json:"catalog_entry_id,omitempty"`
	Title          string  `db:"title" json:"title"`
	Unit           string  `db:"unit" json:"unit"`
}

// Indicator is one row of a data table.
type Indicator struct {
	ID          string `db:"id" json:"id"`
	DataTableID string `db:"data_table_id" json:"-"`
	Code        string `db:"code" json:"code"`
	Name        string `db:"name" json:"name"`
	Position    int    `db:"position" json:"position"`
}

// Period is one yearly column of a data table.
type Period struct {
	ID          string `db:"id" json:"id"`
	DataTableID string `db:"data_table_id" json:"-"`
	Year        int    `db:"year" json:"year"`
	Label       string `db:"label" json:"label"`
}

// TableValue is the cell at (indicator, period). Qualifier marks provisional
// or estimated figures.
type TableValue struct {
	IndicatorID string   `db:"indicator_id" json:"indicator_id"`
	PeriodID    string   `db:"period_id" json:"period_id"`
	Value       *float64 `db:"value" json:"value"`
	Qualifier   *string  `db:"qualifier" json:"qualifier,omitempty"`
}
