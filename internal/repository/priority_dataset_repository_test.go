package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/satudata-api/internal/models"
)

var priorityDatasetRowColumns = []string{
	"id", "code", "name", "operational_definition", "data_type", "proposing_agency", "producing_agency",
	"source_reference", "update_schedule", "status", "assigned_org", "assigned_by", "assigned_at", "claimed_by",
	"claimed_at", "created_at", "updated_at",
}

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
	}
}

func strPtr(value string) *string {
	return &value
}

func TestPriorityDatasetRepositoryCreateForcesUnassigned(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPriorityDatasetRepository(db)

	mock.ExpectExec("INSERT INTO priority_datasets").
		WithArgs(sqlmock.AnyArg(), "DS-01", "Jumlah Penduduk", "", "", "", "", "", "", "unassigned", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	dataset := &models.PriorityDataset{Code: "DS-01", Name: "Jumlah Penduduk", Status: models.PriorityStatusAssigned}
	require.NoError(t, repo.Create(context.Background(), dataset))
	assert.NotEmpty(t, dataset.ID)
	assert.Equal(t, models.PriorityStatusUnassigned, dataset.Status)
	assert.Equal(t, dataset.CreatedAt, dataset.UpdatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPriorityDatasetRepositoryGetByIDJoinsCatalog(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPriorityDatasetRepository(db)

	now := time.Now()
	cols := append(append([]string{}, priorityDatasetRowColumns...), "catalog_entry_id")
	rows := sqlmock.NewRows(cols).AddRow(
		"pd-1", "DS-01", "Jumlah Penduduk", "def", "numeric", "BPS", "BPS", "SP2020", "annual",
		"assigned", "org-1", "admin-1", now, nil, nil, now, now, "cat-1")
	mock.ExpectQuery("SELECT p.id, .* FROM priority_datasets p\\s+LEFT JOIN catalog_entries c").
		WithArgs("pd-1").
		WillReturnRows(rows)

	dataset, err := repo.GetByID(context.Background(), "pd-1")
	require.NoError(t, err)
	assert.True(t, dataset.Converted())
	assert.True(t, dataset.Consistent())
	assert.Equal(t, "org-1", *dataset.AssignedOrg)
}

func TestPriorityDatasetRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPriorityDatasetRepository(db)

	mock.ExpectQuery("FROM priority_datasets p").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestPriorityDatasetRepositoryListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPriorityDatasetRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM priority_datasets p WHERE p.status = \\$1 AND p.assigned_org = \\$2 AND").
		WithArgs(models.PriorityStatusClaimed, "org-1", "%penduduk%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	now := time.Now()
	cols := append(append([]string{}, priorityDatasetRowColumns...), "catalog_entry_id")
	mock.ExpectQuery("ORDER BY p.updated_at DESC LIMIT 10 OFFSET 10").
		WithArgs(models.PriorityStatusClaimed, "org-1", "%penduduk%").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"pd-1", "DS-01", "Jumlah Penduduk", "", "", "", "", "", "",
			"claimed", "org-1", nil, nil, "producer-1", now, now, now, nil))

	items, total, err := repo.List(context.Background(), models.PriorityDatasetFilter{
		Status:      models.PriorityStatusClaimed,
		AssignedOrg: "org-1",
		Search:      " Penduduk ",
		Page:        2,
		PageSize:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.False(t, items[0].Converted())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPriorityDatasetRepositoryTakeUnassignedAssign(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPriorityDatasetRepository(db)

	at := time.Now().UTC()
	mock.ExpectQuery("UPDATE priority_datasets\\s+SET status = \\$5, assigned_org = \\$2, assigned_by = \\$3, assigned_at = \\$4, claimed_by = NULL").
		WithArgs("pd-1", "org-1", "admin-1", at, models.PriorityStatusAssigned).
		WillReturnRows(sqlmock.NewRows(priorityDatasetRowColumns).AddRow(
			"pd-1", "DS-01", "Jumlah Penduduk", "", "", "", "", "", "",
			"assigned", "org-1", "admin-1", at, nil, nil, at, at))

	dataset, err := repo.TakeUnassigned(context.Background(), TakeParams{
		ID: "pd-1", Status: models.PriorityStatusAssigned, OrganizationID: "org-1", ActorID: "admin-1", At: at,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityStatusAssigned, dataset.Status)
	assert.True(t, dataset.Consistent())
}

func TestPriorityDatasetRepositoryTakeUnassignedLostRace(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPriorityDatasetRepository(db)

	mock.ExpectQuery("WHERE id = \\$1 AND status = 'unassigned' AND assigned_org IS NULL").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.TakeUnassigned(context.Background(), TakeParams{
		ID: "pd-1", Status: models.PriorityStatusClaimed, OrganizationID: "org-1", ActorID: "producer-1", At: time.Now(),
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestPriorityDatasetRepositoryTakeUnassignedRejectsStatus(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPriorityDatasetRepository(db)

	_, err := repo.TakeUnassigned(context.Background(), TakeParams{ID: "pd-1", Status: models.PriorityStatusUnassigned})
	require.Error(t, err)
	assert.NotErrorIs(t, err, sql.ErrNoRows)
}

func TestPriorityDatasetRepositoryReset(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPriorityDatasetRepository(db)

	at := time.Now().UTC()
	mock.ExpectQuery("SET status = 'unassigned', assigned_org = NULL.*WHERE id = \\$1 AND status IN \\('assigned', 'claimed'\\)").
		WithArgs("pd-1", at).
		WillReturnRows(sqlmock.NewRows(priorityDatasetRowColumns).AddRow(
			"pd-1", "DS-01", "Jumlah Penduduk", "", "", "", "", "", "",
			"unassigned", nil, nil, nil, nil, nil, at, at))

	dataset, err := repo.Reset(context.Background(), "pd-1", at)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityStatusUnassigned, dataset.Status)
	assert.True(t, dataset.Consistent())
}

func TestPriorityDatasetRepositoryUpdateFieldsOnlySetsProvided(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPriorityDatasetRepository(db)

	at := time.Now().UTC()
	mock.ExpectQuery("UPDATE priority_datasets SET updated_at = \\$2, name = \\$3, update_schedule = \\$4 WHERE id = \\$1").
		WithArgs("pd-1", at, "Jumlah Penduduk Baru", "monthly").
		WillReturnRows(sqlmock.NewRows(priorityDatasetRowColumns).AddRow(
			"pd-1", "DS-01", "Jumlah Penduduk Baru", "", "", "", "", "", "monthly",
			"unassigned", nil, nil, nil, nil, nil, at, at))

	dataset, err := repo.UpdateFields(context.Background(), "pd-1", models.PriorityDatasetPatch{
		Name:           strPtr(" Jumlah Penduduk Baru "),
		UpdateSchedule: strPtr("monthly"),
	}, at)
	require.NoError(t, err)
	assert.Equal(t, "Jumlah Penduduk Baru", dataset.Name)
}

func TestPriorityDatasetRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPriorityDatasetRepository(db)

	mock.ExpectExec("DELETE FROM priority_datasets").WithArgs("pd-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM priority_datasets").WithArgs("pd-2").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "pd-1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "pd-2"), sql.ErrNoRows)
}
