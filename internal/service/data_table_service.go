package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/satudata-api/internal/dto"
	"github.com/noah-isme/satudata-api/internal/models"
	appErrors "github.com/noah-isme/satudata-api/pkg/errors"
)

type dataTableStore interface {
	FindByID(ctx context.Context, id string) (*models.DataTable, error)
	ListIndicators(ctx context.Context, tableID string) ([]models.Indicator, error)
	ListPeriods(ctx context.Context, tableID string) ([]models.Period, error)
	ListValues(ctx context.Context, tableID string) ([]models.TableValue, error)
}

// DataTableService assembles indicator x period grids.
type DataTableService struct {
	store  dataTableStore
	logger *zap.Logger
}

// NewDataTableService constructs the service.
func NewDataTableService(store dataTableStore, logger *zap.Logger) *DataTableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataTableService{store: store, logger: logger}
}

// Grid loads a table with every indicator, period and value and checks it for
// gaps and duplicates.
func (s *DataTableService) Grid(ctx context.Context, id string) (*dto.DataTableGridResponse, error) {
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "data table not found")
	}
	table, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "data table not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load data table")
	}
	indicators, err := s.store.ListIndicators(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load indicators")
	}
	periods, err := s.store.ListPeriods(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load periods")
	}
	values, err := s.store.ListValues(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load values")
	}

	sort.SliceStable(periods, func(i, j int) bool { return periods[i].Year < periods[j].Year })
	rows := buildGridRows(indicators, periods, values)
	return &dto.DataTableGridResponse{
		Table:   *table,
		Periods: periods,
		Rows:    rows,
		Quality: assessGrid(periods, rows),
	}, nil
}

type cellKey struct {
	indicator string
	period    string
}

func buildGridRows(indicators []models.Indicator, periods []models.Period, values []models.TableValue) []dto.DataTableRow {
	cells := make(map[cellKey]models.TableValue, len(values))
	for _, v := range values {
		cells[cellKey{v.IndicatorID, v.PeriodID}] = v
	}
	rows := make([]dto.DataTableRow, 0, len(indicators))
	for _, ind := range indicators {
		row := dto.DataTableRow{Indicator: ind, Cells: make([]dto.DataTableCell, 0, len(periods))}
		for _, p := range periods {
			cell := dto.DataTableCell{PeriodID: p.ID, Year: p.Year}
			if v, ok := cells[cellKey{ind.ID, p.ID}]; ok {
				cell.Value = v.Value
				cell.Qualifier = v.Qualifier
			}
			row.Cells = append(row.Cells, cell)
		}
		rows = append(rows, row)
	}
	return rows
}

// assessGrid expects periods sorted by year and rows built from them.
func assessGrid(periods []models.Period, rows []dto.DataTableRow) dto.DataQualityReport {
	report := dto.DataQualityReport{
		MissingYears:      missingYears(periods),
		IndicatorGaps:     []dto.IndicatorGap{},
		DuplicateSeries:   []dto.DuplicateSeries{},
		ConsecutiveRepeat: []dto.RepeatedValue{},
	}

	seriesOwners := make(map[string][]string)
	var seriesOrder []string
	for _, row := range rows {
		var gapYears []int
		filled := 0
		for i, cell := range row.Cells {
			if cell.Value == nil {
				gapYears = append(gapYears, cell.Year)
				continue
			}
			filled++
			if i > 0 {
				prev := row.Cells[i-1]
				if prev.Value != nil && *prev.Value == *cell.Value {
					report.ConsecutiveRepeat = append(report.ConsecutiveRepeat, dto.RepeatedValue{
						IndicatorID: row.Indicator.ID,
						FromYear:    prev.Year,
						ToYear:      cell.Year,
						Value:       *cell.Value,
					})
				}
			}
		}
		if len(gapYears) > 0 {
			report.IndicatorGaps = append(report.IndicatorGaps, dto.IndicatorGap{IndicatorID: row.Indicator.ID, Years: gapYears})
		}
		if filled == 0 {
			continue
		}
		key := seriesKey(row.Cells)
		if _, seen := seriesOwners[key]; !seen {
			seriesOrder = append(seriesOrder, key)
		}
		seriesOwners[key] = append(seriesOwners[key], row.Indicator.ID)
	}
	for _, key := range seriesOrder {
		if owners := seriesOwners[key]; len(owners) > 1 {
			report.DuplicateSeries = append(report.DuplicateSeries, dto.DuplicateSeries{IndicatorIDs: owners})
		}
	}

	report.Clean = len(report.MissingYears) == 0 && len(report.IndicatorGaps) == 0 &&
		len(report.DuplicateSeries) == 0 && len(report.ConsecutiveRepeat) == 0
	return report
}

// missingYears returns the years between the first and last period that have no column.
func missingYears(periods []models.Period) []int {
	missing := []int{}
	if len(periods) < 2 {
		return missing
	}
	present := make(map[int]struct{}, len(periods))
	for _, p := range periods {
		present[p.Year] = struct{}{}
	}
	for year := periods[0].Year + 1; year < periods[len(periods)-1].Year; year++ {
		if _, ok := present[year]; !ok {
			missing = append(missing, year)
		}
	}
	return missing
}

func seriesKey(cells []dto.DataTableCell) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		if cell.Value == nil {
			parts[i] = "-"
			continue
		}
		parts[i] = strconv.FormatFloat(*cell.Value, 'g', -1, 64)
	}
	return strings.Join(parts, "|")
}
