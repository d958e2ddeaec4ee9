package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/satudata-api/internal/models"
)

const priorityDatasetColumns = `id, code, name, operational_definition, data_type, proposing_agency, producing_agency,
       source_reference, update_schedule, status, assigned_org, assigned_by, assigned_at, claimed_by, claimed_at,
       created_at, updated_at`

// priorityDatasetReturning is used by UPDATE ... RETURNING so the linked catalog entry comes back too.
const priorityDatasetReturning = priorityDatasetColumns + `,
       (SELECT c.id FROM catalog_entries c WHERE c.priority_dataset_id = priority_datasets.id) AS catalog_entry_id`

// PriorityDatasetRepository persists priority dataset proposals and their assignment state.
type PriorityDatasetRepository struct {
	db *sqlx.DB
}

// NewPriorityDatasetRepository constructs the repository.
func NewPriorityDatasetRepository(db *sqlx.DB) *PriorityDatasetRepository {
	return &PriorityDatasetRepository{db: db}
}

// Create inserts a new unassigned priority dataset.
func (r *PriorityDatasetRepository) Create(ctx context.Context, dataset *models.PriorityDataset) error {
	if dataset.ID == "" {
		dataset.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if dataset.CreatedAt.IsZero() {
		dataset.CreatedAt = now
	}
	dataset.UpdatedAt = dataset.CreatedAt
	dataset.Status = models.PriorityStatusUnassigned
	const query = `INSERT INTO priority_datasets
	(id, code, name, operational_definition, data_type, proposing_agency, producing_agency, source_reference,
	 update_schedule, status, created_at, updated_at)
	VALUES (:id, :code, :name, :operational_definition, :data_type, :proposing_agency, :producing_agency, :source_reference,
	 :update_schedule, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, dataset); err != nil {
		return fmt.Errorf("create priority dataset: %w", err)
	}
	return nil
}

// GetByID fetches a priority dataset together with its linked catalog entry id.
func (r *PriorityDatasetRepository) GetByID(ctx context.Context, id string) (*models.PriorityDataset, error) {
	const query = `SELECT p.id, p.code, p.name, p.operational_definition, p.data_type, p.proposing_agency, p.producing_agency,
       p.source_reference, p.update_schedule, p.status, p.assigned_org, p.assigned_by, p.assigned_at, p.claimed_by,
       p.claimed_at, p.created_at, p.updated_at, c.id AS catalog_entry_id
	FROM priority_datasets p
	LEFT JOIN catalog_entries c ON c.priority_dataset_id = p.id
	WHERE p.id = $1`
	var dataset models.PriorityDataset
	if err := r.db.GetContext(ctx, &dataset, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get priority dataset: %w", err)
	}
	return &dataset, nil
}

// List returns priority datasets matching the filter, most recently updated first.
func (r *PriorityDatasetRepository) List(ctx context.Context, filter models.PriorityDatasetFilter) ([]models.PriorityDataset, int, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 4)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if filter.AssignedOrg != "" {
		args = append(args, filter.AssignedOrg)
		conditions = append(conditions, fmt.Sprintf("p.assigned_org = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(p.name) LIKE $%d OR LOWER(p.code) LIKE $%d)", len(args), len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM priority_datasets p"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count priority datasets: %w", err)
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	query := `SELECT p.id, p.code, p.name, p.operational_definition, p.data_type, p.proposing_agency, p.producing_agency,
       p.source_reference, p.update_schedule, p.status, p.assigned_org, p.assigned_by, p.assigned_at, p.claimed_by,
       p.claimed_at, p.created_at, p.updated_at, c.id AS catalog_entry_id
	FROM priority_datasets p
	LEFT JOIN catalog_entries c ON c.priority_dataset_id = p.id` + where +
		fmt.Sprintf(" ORDER BY p.updated_at DESC LIMIT %d OFFSET %d", size, (page-1)*size)

	var datasets []models.PriorityDataset
	if err := r.db.SelectContext(ctx, &datasets, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list priority datasets: %w", err)
	}
	return datasets, total, nil
}

// TakeParams describes an assign or claim of an unassigned dataset.
type TakeParams struct {
	ID             string
	Status         models.PriorityStatus
	OrganizationID string
	ActorID        string
	At             time.Time
}

// TakeUnassigned moves an unassigned dataset to assigned or claimed. The
// predicate re-checks status and assigned_org in the same statement, so of two
// concurrent callers only one matches; the loser gets sql.ErrNoRows.
func (r *PriorityDatasetRepository) TakeUnassigned(ctx context.Context, params TakeParams) (*models.PriorityDataset, error) {
	var set string
	switch params.Status {
	case models.PriorityStatusAssigned:
		set = `assigned_by = $3, assigned_at = $4, claimed_by = NULL, claimed_at = NULL`
	case models.PriorityStatusClaimed:
		set = `claimed_by = $3, claimed_at = $4, assigned_by = NULL, assigned_at = NULL`
	default:
		return nil, fmt.Errorf("take priority dataset: unsupported target status %q", params.Status)
	}
	query := fmt.Sprintf(`UPDATE priority_datasets
	SET status = $5, assigned_org = $2, %s, updated_at = $4
	WHERE id = $1 AND status = '%s' AND assigned_org IS NULL
	RETURNING %s`, set, models.PriorityStatusUnassigned, priorityDatasetReturning)

	var dataset models.PriorityDataset
	if err := r.db.GetContext(ctx, &dataset, query, params.ID, params.OrganizationID, params.ActorID, params.At, params.Status); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("take priority dataset: %w", err)
	}
	return &dataset, nil
}

// Reset returns an assigned or claimed dataset to unassigned, clearing every
// assignment field. Rows already unassigned yield sql.ErrNoRows.
func (r *PriorityDatasetRepository) Reset(ctx context.Context, id string, at time.Time) (*models.PriorityDataset, error) {
	query := fmt.Sprintf(`UPDATE priority_datasets
	SET status = '%s', assigned_org = NULL, assigned_by = NULL, assigned_at = NULL,
	    claimed_by = NULL, claimed_at = NULL, updated_at = $2
	WHERE id = $1 AND status IN ('%s', '%s')
	RETURNING %s`, models.PriorityStatusUnassigned, models.PriorityStatusAssigned, models.PriorityStatusClaimed, priorityDatasetReturning)

	var dataset models.PriorityDataset
	if err := r.db.GetContext(ctx, &dataset, query, id, at); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("reset priority dataset: %w", err)
	}
	return &dataset, nil
}

// UpdateFields applies a proposal patch without touching status.
func (r *PriorityDatasetRepository) UpdateFields(ctx context.Context, id string, patch models.PriorityDatasetPatch, at time.Time) (*models.PriorityDataset, error) {
	args := []interface{}{id, at}
	setParts := []string{"updated_at = $2"}
	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, strings.TrimSpace(*value))
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("code", patch.Code)
	add("name", patch.Name)
	add("operational_definition", patch.OperationalDefinition)
	add("data_type", patch.DataType)
	add("proposing_agency", patch.ProposingAgency)
	add("producing_agency", patch.ProducingAgency)
	add("source_reference", patch.SourceReference)
	add("update_schedule", patch.UpdateSchedule)

	query := fmt.Sprintf(`UPDATE priority_datasets SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(setParts, ", "), priorityDatasetReturning)

	var dataset models.PriorityDataset
	if err := r.db.GetContext(ctx, &dataset, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update priority dataset: %w", err)
	}
	return &dataset, nil
}

// Delete hard-deletes a priority dataset.
func (r *PriorityDatasetRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM priority_datasets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete priority dataset: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check priority dataset delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
