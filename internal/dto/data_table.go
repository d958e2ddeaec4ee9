package dto

import "github.com/noah-isme/satudata-api/internal/models"

// DataTableCell is one value of the grid. Nil Value means no figure was reported.
type DataTableCell struct {
	PeriodID  string   `json:"period_id"`
	Year      int      `json:"year"`
	Value     *float64 `json:"value"`
	Qualifier *string  `json:"qualifier,omitempty"`
}

// DataTableRow is one indicator with a cell per period, in period order.
type DataTableRow struct {
	Indicator models.Indicator `json:"indicator"`
	Cells     []DataTableCell  `json:"cells"`
}

// IndicatorGap lists the periods an indicator has no value for.
type IndicatorGap struct {
	IndicatorID string `json:"indicator_id"`
	Years       []int  `json:"years"`
}

// DuplicateSeries groups indicators whose complete value series are identical.
type DuplicateSeries struct {
	IndicatorIDs []string `json:"indicator_ids"`
}

// RepeatedValue marks a value carried unchanged into the next period.
type RepeatedValue struct {
	IndicatorID string  `json:"indicator_id"`
	FromYear    int     `json:"from_year"`
	ToYear      int     `json:"to_year"`
	Value       float64 `json:"value"`
}

// DataQualityReport summarises gaps and duplicates found in a data table.
type DataQualityReport struct {
	MissingYears      []int             `json:"missing_years"`
	IndicatorGaps     []IndicatorGap    `json:"indicator_gaps"`
	DuplicateSeries   []DuplicateSeries `json:"duplicate_series"`
	ConsecutiveRepeat []RepeatedValue   `json:"consecutive_repeats"`
	Clean             bool              `json:"clean"`
}

// DataTableGridResponse is the assembled grid and its quality report.
type DataTableGridResponse struct {
	Table   models.DataTable  `json:"table"`
	Periods []models.Period   `json:"periods"`
	Rows    []DataTableRow    `json:"rows"`
	Quality DataQualityReport `json:"quality"`
}
