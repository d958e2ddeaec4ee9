package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/satudata-api/internal/models"
)

const catalogEntryColumns = `id, slug, title, abstract, description, classification, publication_status, publisher_org_id,
       source_name, is_priority, priority_dataset_id, keywords, maintainers, custom_fields, reviewed_by, reviewed_at,
       review_note, published_at, created_at, updated_at`

const publicCatalogSelect = `SELECT c.id, c.slug, c.title, c.abstract, c.description, c.source_name, c.publisher_org_id,
       o.name AS publisher_org_name, c.is_priority, c.keywords, c.published_at, c.updated_at,
       COALESCE(SUM(CASE WHEN t.kind = 'view' THEN 1 ELSE 0 END), 0) AS view_count,
       COALESCE(SUM(CASE WHEN t.kind = 'download' THEN 1 ELSE 0 END), 0) AS download_count
	FROM catalog_entries c
	LEFT JOIN organizations o ON o.id = c.publisher_org_id
	LEFT JOIN telemetry_events t ON t.catalog_entry_id = c.id`

const publicCatalogGroupBy = ` GROUP BY c.id, o.name`

// Unique indexes on catalog_entries, reported as pq.Error.Constraint on conflict.
const (
	CatalogSlugConstraint            = "catalog_entries_slug_key"
	CatalogPriorityDatasetConstraint = "catalog_entries_priority_dataset_key"
)

// CatalogRepository persists public catalog entries.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs the repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// GetByID fetches a catalog entry by identifier.
func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*models.CatalogEntry, error) {
	query := `SELECT ` + catalogEntryColumns + ` FROM catalog_entries WHERE id = $1`
	var entry models.CatalogEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get catalog entry: %w", err)
	}
	return &entry, nil
}

// FindByPriorityDatasetID returns the entry linked to a priority dataset.
func (r *CatalogRepository) FindByPriorityDatasetID(ctx context.Context, priorityDatasetID string) (*models.CatalogEntry, error) {
	query := `SELECT ` + catalogEntryColumns + ` FROM catalog_entries WHERE priority_dataset_id = $1 LIMIT 1`
	var entry models.CatalogEntry
	if err := r.db.GetContext(ctx, &entry, query, priorityDatasetID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find catalog entry by priority dataset: %w", err)
	}
	return &entry, nil
}

// SlugExists reports whether a slug is already taken.
func (r *CatalogRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM catalog_entries WHERE slug = $1)`, slug); err != nil {
		return false, fmt.Errorf("check catalog slug: %w", err)
	}
	return exists, nil
}

// Create inserts a catalog entry. Unique violations on slug or
// priority_dataset_id are returned wrapped so callers can inspect them.
func (r *CatalogRepository) Create(ctx context.Context, entry *models.CatalogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = entry.CreatedAt
	if entry.Keywords == nil {
		entry.Keywords = pq.StringArray{}
	}
	if len(entry.Maintainers) == 0 {
		entry.Maintainers = []byte("[]")
	}
	if len(entry.CustomFields) == 0 {
		entry.CustomFields = []byte("{}")
	}
	const query = `INSERT INTO catalog_entries
	(id, slug, title, abstract, description, classification, publication_status, publisher_org_id, source_name,
	 is_priority, priority_dataset_id, keywords, maintainers, custom_fields, created_at, updated_at)
	VALUES (:id, :slug, :title, :abstract, :description, :classification, :publication_status, :publisher_org_id, :source_name,
	 :is_priority, :priority_dataset_id, :keywords, :maintainers, :custom_fields, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create catalog entry: %w", err)
	}
	return nil
}

// UpdateMetadata overwrites the synced metadata fields. Publication status is untouched.
func (r *CatalogRepository) UpdateMetadata(ctx context.Context, id string, meta models.CatalogMetadata, at time.Time) (*models.CatalogEntry, error) {
	query := `UPDATE catalog_entries
	SET title = $2, abstract = $3, description = $4, classification = $5, publisher_org_id = $6, source_name = $7,
	    is_priority = TRUE, updated_at = $8
	WHERE id = $1
	RETURNING ` + catalogEntryColumns
	var entry models.CatalogEntry
	if err := r.db.GetContext(ctx, &entry, query, id, meta.Title, meta.Abstract, meta.Description,
		meta.Classification, meta.PublisherOrgID, meta.SourceName, at); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update catalog metadata: %w", err)
	}
	return &entry, nil
}

// PublicationTransition describes a guarded publication status change.
type PublicationTransition struct {
	ID         string
	From       []models.PublicationStatus
	To         models.PublicationStatus
	ReviewedBy *string
	Note       *string
	At         time.Time
}

// TransitionPublication moves an entry between publication states only when
// its current status is one of From; otherwise sql.ErrNoRows.
func (r *CatalogRepository) TransitionPublication(ctx context.Context, t PublicationTransition) (*models.CatalogEntry, error) {
	if len(t.From) == 0 {
		return nil, fmt.Errorf("transition publication: no source status")
	}
	args := []interface{}{t.ID, t.To, t.At, t.ReviewedBy, t.Note}
	placeholders := make([]string, len(t.From))
	for i, status := range t.From {
		args = append(args, status)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	query := fmt.Sprintf(`UPDATE catalog_entries
	SET publication_status = $2, updated_at = $3,
	    reviewed_by = COALESCE($4, reviewed_by), reviewed_at = CASE WHEN $4::text IS NULL THEN reviewed_at ELSE $3 END,
	    review_note = COALESCE($5, review_note),
	    published_at = CASE WHEN $2 = '%s' THEN $3 ELSE published_at END
	WHERE id = $1 AND publication_status IN (%s)
	RETURNING %s`, models.PublicationPublished, strings.Join(placeholders, ", "), catalogEntryColumns)

	var entry models.CatalogEntry
	if err := r.db.GetContext(ctx, &entry, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("transition publication: %w", err)
	}
	return &entry, nil
}

// ListPublic returns published, public entries with telemetry counters.
func (r *CatalogRepository) ListPublic(ctx context.Context, filter models.CatalogFilter) ([]models.PublicCatalogEntry, int, error) {
	args := []interface{}{models.PublicationPublished, models.ClassificationPublic}
	conditions := []string{"c.publication_status = $1", "c.classification = $2"}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.title) LIKE $%d OR LOWER(c.abstract) LIKE $%d)", len(args), len(args)))
	}
	if filter.PublisherOrgID != "" {
		args = append(args, filter.PublisherOrgID)
		conditions = append(conditions, fmt.Sprintf("c.publisher_org_id = $%d", len(args)))
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM catalog_entries c"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count public catalog: %w", err)
	}

	page, size := models.NormalizePage(filter.Page, filter.PageSize)
	query := publicCatalogSelect + where + publicCatalogGroupBy +
		fmt.Sprintf(" ORDER BY c.published_at DESC NULLS LAST, c.title ASC LIMIT %d OFFSET %d", size, (page-1)*size)

	var entries []models.PublicCatalogEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list public catalog: %w", err)
	}
	return entries, total, nil
}

// GetPublicBySlug fetches one published, public entry.
func (r *CatalogRepository) GetPublicBySlug(ctx context.Context, slug string) (*models.PublicCatalogEntry, error) {
	query := publicCatalogSelect + ` WHERE c.slug = $1 AND c.publication_status = $2 AND c.classification = $3` + publicCatalogGroupBy
	var entry models.PublicCatalogEntry
	if err := r.db.GetContext(ctx, &entry, query, slug, models.PublicationPublished, models.ClassificationPublic); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get public catalog entry: %w", err)
	}
	return &entry, nil
}
