package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/satudata-api/internal/models"
)

// PriorityAuditRepository is the append-only store for priority dataset lifecycle logs.
type PriorityAuditRepository struct {
	db *sqlx.DB
}

// NewPriorityAuditRepository constructs the repository.
func NewPriorityAuditRepository(db *sqlx.DB) *PriorityAuditRepository {
	return &PriorityAuditRepository{db: db}
}

// Append inserts one audit entry.
func (r *PriorityAuditRepository) Append(ctx context.Context, entry *models.PriorityAuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO priority_dataset_logs (id, priority_dataset_id, action, actor_id, organization_id, notes, created_at)
	VALUES (:id, :priority_dataset_id, :action, :actor_id, :organization_id, :notes, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append priority audit entry: %w", err)
	}
	return nil
}

// List returns audit entries newest first, optionally for one dataset.
func (r *PriorityAuditRepository) List(ctx context.Context, filter models.PriorityAuditFilter) ([]models.PriorityAuditEntry, error) {
	query := `SELECT id, priority_dataset_id, action, actor_id, organization_id, notes, created_at FROM priority_dataset_logs`
	args := make([]interface{}, 0, 1)
	if filter.PriorityDatasetID != "" {
		args = append(args, filter.PriorityDatasetID)
		query += " WHERE priority_dataset_id = $1"
	}
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d", limit, offset)

	var entries []models.PriorityAuditEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list priority audit entries: %w", err)
	}
	return entries, nil
}
