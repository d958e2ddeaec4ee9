package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/satudata-api/internal/dto"
	"github.com/noah-isme/satudata-api/internal/models"
	appErrors "github.com/noah-isme/satudata-api/pkg/errors"
)

const tableT1 = "9d7f4a20-3b5c-4e61-8a0f-6c2d1e0b9a31"

type dataTableStoreStub struct {
	findErr    error
	table      *models.DataTable
	indicators []models.Indicator
	periods    []models.Period
	values     []models.TableValue
}

func (s *dataTableStoreStub) FindByID(_ context.Context, id string) (*models.DataTable, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.table == nil || s.table.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.table, nil
}

func (s *dataTableStoreStub) ListIndicators(context.Context, string) ([]models.Indicator, error) {
	return s.indicators, nil
}

func (s *dataTableStoreStub) ListPeriods(context.Context, string) ([]models.Period, error) {
	return s.periods, nil
}

func (s *dataTableStoreStub) ListValues(context.Context, string) ([]models.TableValue, error) {
	return s.values, nil
}

func floatPtr(v float64) *float64 { return &v }

func cellValue(indicator, period string, v float64) models.TableValue {
	return models.TableValue{IndicatorID: indicator, PeriodID: period, Value: floatPtr(v)}
}

func TestDataTableGridQualityReport(t *testing.T) {
	provisional := "provisional"
	store := &dataTableStoreStub{
		table: &models.DataTable{ID: tableT1, Title: "Penduduk Miskin", Unit: "persen"},
		indicators: []models.Indicator{
			{ID: "I1", Name: "Kota", Position: 1},
			{ID: "I2", Name: "Desa", Position: 2},
			{ID: "I3", Name: "Total", Position: 3},
		},
		periods: []models.Period{
			{ID: "P2023", Year: 2023},
			{ID: "P2019", Year: 2019},
			{ID: "P2020", Year: 2020},
		},
		values: []models.TableValue{
			cellValue("I1", "P2019", 7.1), cellValue("I1", "P2020", 7.4), cellValue("I1", "P2023", 7.0),
			cellValue("I2", "P2019", 7.1), cellValue("I2", "P2020", 7.4), cellValue("I2", "P2023", 7.0),
			cellValue("I3", "P2019", 9.2), cellValue("I3", "P2020", 9.2),
			{IndicatorID: "I3", PeriodID: "P2023", Qualifier: &provisional},
		},
	}
	svc := NewDataTableService(store, nil)

	grid, err := svc.Grid(context.Background(), tableT1)
	require.NoError(t, err)

	years := make([]int, len(grid.Periods))
	for i, p := range grid.Periods {
		years[i] = p.Year
	}
	assert.Equal(t, []int{2019, 2020, 2023}, years)
	require.Len(t, grid.Rows, 3)
	assert.Equal(t, 7.4, *grid.Rows[0].Cells[1].Value)
	assert.Nil(t, grid.Rows[2].Cells[2].Value)
	assert.Equal(t, "provisional", *grid.Rows[2].Cells[2].Qualifier)

	q := grid.Quality
	assert.False(t, q.Clean)
	assert.Equal(t, []int{2021, 2022}, q.MissingYears)
	assert.Equal(t, []dto.IndicatorGap{{IndicatorID: "I3", Years: []int{2023}}}, q.IndicatorGaps)
	assert.Equal(t, []dto.DuplicateSeries{{IndicatorIDs: []string{"I1", "I2"}}}, q.DuplicateSeries)
	assert.Equal(t, []dto.RepeatedValue{{IndicatorID: "I3", FromYear: 2019, ToYear: 2020, Value: 9.2}}, q.ConsecutiveRepeat)
}

func TestDataTableGridCleanTable(t *testing.T) {
	store := &dataTableStoreStub{
		table:      &models.DataTable{ID: tableT1},
		indicators: []models.Indicator{{ID: "I1"}},
		periods:    []models.Period{{ID: "P1", Year: 2021}, {ID: "P2", Year: 2022}},
		values:     []models.TableValue{cellValue("I1", "P1", 1), cellValue("I1", "P2", 2)},
	}

	grid, err := NewDataTableService(store, nil).Grid(context.Background(), tableT1)
	require.NoError(t, err)
	assert.True(t, grid.Quality.Clean)
	assert.Empty(t, grid.Quality.MissingYears)
}

func TestDataTableGridNotFound(t *testing.T) {
	_, err := NewDataTableService(&dataTableStoreStub{}, nil).Grid(context.Background(), "missing")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestDataTableGridMalformedID(t *testing.T) {
	store := &dataTableStoreStub{findErr: &pq.Error{Code: "22P02", Message: "invalid input syntax for type uuid"}}
	_, err := NewDataTableService(store, nil).Grid(context.Background(), "T1'--")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}
