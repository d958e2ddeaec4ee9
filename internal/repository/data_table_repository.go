package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/satudata-api/internal/models"
)

// DataTableRepository reads indicator × period tables.
type DataTableRepository struct {
	db *sqlx.DB
}

// NewDataTableRepository constructs the repository.
func NewDataTableRepository(db *sqlx.DB) *DataTableRepository {
	return &DataTableRepository{db: db}
}

// FindByID returns a data table header.
func (r *DataTableRepository) FindByID(ctx context.Context, id string) (*models.DataTable, error) {
	var table models.DataTable
	if err := r.db.GetContext(ctx, &table, `SELECT id, catalog_entry_id, title, unit FROM data_tables WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find data table: %w", err)
	}
	return &table, nil
}

// ListIndicators returns indicators in display order.
func (r *DataTableRepository) ListIndicators(ctx context.Context, tableID string) ([]models.Indicator, error) {
	const query = `SELECT id, data_table_id, code, name, position FROM data_table_indicators
	WHERE data_table_id = $1 ORDER BY position ASC, name ASC`
	var indicators []models.Indicator
	if err := r.db.SelectContext(ctx, &indicators, query, tableID); err != nil {
		return nil, fmt.Errorf("list data table indicators: %w", err)
	}
	return indicators, nil
}

// ListPeriods returns periods in chronological order.
func (r *DataTableRepository) ListPeriods(ctx context.Context, tableID string) ([]models.Period, error) {
	const query = `SELECT id, data_table_id, year, label FROM data_table_periods WHERE data_table_id = $1 ORDER BY year ASC`
	var periods []models.Period
	if err := r.db.SelectContext(ctx, &periods, query, tableID); err != nil {
		return nil, fmt.Errorf("list data table periods: %w", err)
	}
	return periods, nil
}

// ListValues returns every cell of a table.
func (r *DataTableRepository) ListValues(ctx context.Context, tableID string) ([]models.TableValue, error) {
	const query = `SELECT v.indicator_id, v.period_id, v.value, v.qualifier
	FROM data_table_values v
	JOIN data_table_indicators i ON i.id = v.indicator_id
	WHERE i.data_table_id = $1`
	var values []models.TableValue
	if err := r.db.SelectContext(ctx, &values, query, tableID); err != nil {
		return nil, fmt.Errorf("list data table values: %w", err)
	}
	return values, nil
}
