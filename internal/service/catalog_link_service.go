package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/satudata-api/internal/models"
	"github.com/noah-isme/satudata-api/internal/repository"
	"github.com/noah-isme/satudata-api/pkg/database"
)

const (
	catalogInsertAttempts = 3
	catalogAbstractRunes  = 280
)

type catalogLinkStore interface {
	FindByPriorityDatasetID(ctx context.Context, priorityDatasetID string) (*models.CatalogEntry, error)
	Create(ctx context.Context, entry *models.CatalogEntry) error
	UpdateMetadata(ctx context.Context, id string, meta models.CatalogMetadata, at time.Time) (*models.CatalogEntry, error)
}

type slugSource interface {
	Allocate(ctx context.Context, source string) string
}

// CatalogLinkService keeps the catalog entry of a priority dataset in sync.
// There is at most one entry per dataset.
type CatalogLinkService struct {
	store  catalogLinkStore
	slugs  slugSource
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
}

// NewCatalogLinkService constructs the service. cache may be nil.
func NewCatalogLinkService(store catalogLinkStore, slugs slugSource, cache *CacheService, logger *zap.Logger) *CatalogLinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogLinkService{store: store, slugs: slugs, cache: cache, logger: logger, now: time.Now}
}

// EnsureLink updates the entry linked to dataset or creates a DRAFT one.
// orgID overrides the dataset's assigned organization as publisher.
func (s *CatalogLinkService) EnsureLink(ctx context.Context, dataset *models.PriorityDataset, orgID *string) (*models.CatalogEntry, error) {
	if dataset == nil {
		return nil, errors.New("ensure catalog link: nil dataset")
	}
	meta := catalogMetadataFor(dataset, orgID)

	existing, err := s.store.FindByPriorityDatasetID(ctx, dataset.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ensure catalog link: %w", err)
	}
	if existing != nil {
		return s.update(ctx, existing.ID, meta)
	}

	source := dataset.Code
	if strings.TrimSpace(source) == "" {
		source = dataset.Name
	}
	var lastErr error
	for attempt := 0; attempt < catalogInsertAttempts; attempt++ {
		entry := &models.CatalogEntry{
			Slug:              s.slugs.Allocate(ctx, source),
			Title:             meta.Title,
			Abstract:          meta.Abstract,
			Description:       meta.Description,
			Classification:    meta.Classification,
			PublicationStatus: models.PublicationDraft,
			PublisherOrgID:    meta.PublisherOrgID,
			SourceName:        meta.SourceName,
			IsPriority:        true,
			PriorityDatasetID: &dataset.ID,
		}
		err := s.store.Create(ctx, entry)
		if err == nil {
			s.logger.Info("catalog entry created from priority dataset",
				zap.String("priority_dataset_id", dataset.ID), zap.String("catalog_entry_id", entry.ID), zap.String("slug", entry.Slug))
			return entry, nil
		}
		constraint, unique := database.UniqueViolation(err)
		switch {
		case unique && constraint == repository.CatalogPriorityDatasetConstraint:
			// A concurrent conversion inserted first; sync onto its row.
			winner, findErr := s.store.FindByPriorityDatasetID(ctx, dataset.ID)
			if findErr != nil {
				return nil, fmt.Errorf("ensure catalog link: reload after conflict: %w", findErr)
			}
			return s.update(ctx, winner.ID, meta)
		case unique && constraint == repository.CatalogSlugConstraint:
			s.logger.Warn("catalog slug taken concurrently, retrying",
				zap.String("slug", entry.Slug), zap.Int("attempt", attempt+1))
			lastErr = err
			continue
		default:
			return nil, fmt.Errorf("ensure catalog link: %w", err)
		}
	}
	return nil, fmt.Errorf("ensure catalog link: slug allocation exhausted: %w", lastErr)
}

func (s *CatalogLinkService) update(ctx context.Context, id string, meta models.CatalogMetadata) (*models.CatalogEntry, error) {
	entry, err := s.store.UpdateMetadata(ctx, id, meta, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("ensure catalog link: update %s: %w", id, err)
	}
	if entry.PublicationStatus == models.PublicationPublished {
		_ = s.cache.Invalidate(ctx, publicCatalogCachePattern)
	}
	return entry, nil
}

// catalogMetadataFor maps a priority dataset onto catalog fields. The
// classification is always public.
func catalogMetadataFor(dataset *models.PriorityDataset, orgID *string) models.CatalogMetadata {
	publisher := orgID
	if publisher == nil || *publisher == "" {
		publisher = dataset.AssignedOrg
	}
	source := strings.TrimSpace(dataset.SourceReference)
	if source == "" {
		source = strings.TrimSpace(dataset.ProducingAgency)
	}
	definition := strings.TrimSpace(dataset.OperationalDefinition)
	return models.CatalogMetadata{
		Title:          strings.TrimSpace(dataset.Name),
		Abstract:       truncateRunes(definition, catalogAbstractRunes),
		Description:    definition,
		Classification: models.ClassificationPublic,
		PublisherOrgID: publisher,
		SourceName:     source,
	}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
