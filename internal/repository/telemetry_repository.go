package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/satudata-api/internal/models"
)

// TelemetryRepository stores view/download events and API keys.
type TelemetryRepository struct {
	db *sqlx.DB
}

// NewTelemetryRepository constructs the repository.
func NewTelemetryRepository(db *sqlx.DB) *TelemetryRepository {
	return &TelemetryRepository{db: db}
}

// Record inserts a telemetry event.
func (r *TelemetryRepository) Record(ctx context.Context, event *models.TelemetryEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO telemetry_events (id, catalog_entry_id, kind, client_hash, user_agent, created_at)
	VALUES (:id, :catalog_entry_id, :kind, :client_hash, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("record telemetry event: %w", err)
	}
	return nil
}

// FindAPIKeyByPrefix returns an active API key by its public prefix.
func (r *TelemetryRepository) FindAPIKeyByPrefix(ctx context.Context, prefix string) (*models.APIKey, error) {
	const query = `SELECT id, name, key_prefix, key_hash, owner_id, active, last_used_at, created_at
	FROM api_keys WHERE key_prefix = $1 AND active = TRUE`
	var key models.APIKey
	if err := r.db.GetContext(ctx, &key, query, prefix); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find api key: %w", err)
	}
	return &key, nil
}

// TouchAPIKey records the last time a key was used.
func (r *TelemetryRepository) TouchAPIKey(ctx context.Context, id string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("touch api key: %w", err)
	}
	return nil
}
