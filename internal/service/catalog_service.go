package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/satudata-api/internal/dto"
	"github.com/noah-isme/satudata-api/internal/models"
	"github.com/noah-isme/satudata-api/internal/repository"
	appErrors "github.com/noah-isme/satudata-api/pkg/errors"
)

const (
	publicCatalogCachePrefix  = "public:catalog:"
	publicCatalogCachePattern = publicCatalogCachePrefix + "*"
)

type catalogStore interface {
	GetByID(ctx context.Context, id string) (*models.CatalogEntry, error)
	TransitionPublication(ctx context.Context, t repository.PublicationTransition) (*models.CatalogEntry, error)
	ListPublic(ctx context.Context, filter models.CatalogFilter) ([]models.PublicCatalogEntry, int, error)
	GetPublicBySlug(ctx context.Context, slug string) (*models.PublicCatalogEntry, error)
}

type cachedCatalogPage struct {
	Items []models.PublicCatalogEntry `json:"items"`
	Total int                         `json:"total"`
}

// CatalogService serves catalog entries to operators and the public site.
type CatalogService struct {
	store     catalogStore
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewCatalogService constructs the service. cache may be nil.
func NewCatalogService(store catalogStore, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{store: store, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger, now: time.Now}
}

// Get returns a catalog entry regardless of publication state.
func (s *CatalogService) Get(ctx context.Context, id string) (*models.CatalogEntry, error) {
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "catalog entry not found")
	}
	entry, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "catalog entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog entry")
	}
	return entry, nil
}

// Submit sends a draft or rejected entry to review. Operators and members of
// the publisher organization may submit.
func (s *CatalogService) Submit(ctx context.Context, actor models.Actor, id string) (*models.CatalogEntry, error) {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsOperator() {
		if actor.Role != models.RoleProducer || entry.PublisherOrgID == nil || !actor.BelongsTo(*entry.PublisherOrgID) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to submit this catalog entry")
		}
	}
	return s.transition(ctx, repository.PublicationTransition{
		ID:   id,
		From: []models.PublicationStatus{models.PublicationDraft, models.PublicationRejected},
		To:   models.PublicationPendingReview,
		At:   s.now().UTC(),
	})
}

// Review approves or rejects a pending entry. Operators only.
func (s *CatalogService) Review(ctx context.Context, actor models.Actor, id string, req dto.ReviewCatalogEntryRequest) (*models.CatalogEntry, error) {
	if !actor.Role.IsOperator() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only operators can review catalog entries")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "catalog entry not found")
	}
	target := models.PublicationPublished
	if req.Decision == dto.ReviewReject {
		target = models.PublicationRejected
	}
	reviewer := actor.UserID
	entry, err := s.transition(ctx, repository.PublicationTransition{
		ID:         id,
		From:       []models.PublicationStatus{models.PublicationPendingReview},
		To:         target,
		ReviewedBy: &reviewer,
		Note:       req.Note,
		At:         s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	_ = s.cache.Invalidate(ctx, publicCatalogCachePattern)
	return entry, nil
}

func (s *CatalogService) transition(ctx context.Context, t repository.PublicationTransition) (*models.CatalogEntry, error) {
	entry, err := s.store.TransitionPublication(ctx, t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("catalog publication transition not eligible",
				zap.String("catalog_entry_id", t.ID), zap.String("target", string(t.To)))
			return nil, appErrors.Clone(appErrors.ErrNotEligible, fmt.Sprintf("catalog entry cannot move to %s", t.To))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update publication status")
	}
	return entry, nil
}

// ListPublic returns published public entries. The bool reports a cache hit.
func (s *CatalogService) ListPublic(ctx context.Context, query dto.PublicCatalogQuery) ([]models.PublicCatalogEntry, *models.Pagination, bool, error) {
	page, size := models.NormalizePage(query.Page, query.PageSize)
	filter := models.CatalogFilter{
		Search:         strings.TrimSpace(query.Search),
		PublisherOrgID: strings.TrimSpace(query.OrganizationID),
		Page:           page,
		PageSize:       size,
	}
	key := publicListCacheKey(filter)

	var cached cachedCatalogPage
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached.Items, &models.Pagination{Page: page, PageSize: size, TotalCount: cached.Total}, true, nil
	}

	items, total, err := s.store.ListPublic(ctx, filter)
	if err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list catalog")
	}
	if items == nil {
		items = []models.PublicCatalogEntry{}
	}
	_ = s.cache.Set(ctx, key, cachedCatalogPage{Items: items, Total: total}, s.cacheTTL)
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, false, nil
}

// GetPublic returns one published public entry by slug. The bool reports a cache hit.
func (s *CatalogService) GetPublic(ctx context.Context, slug string) (*models.PublicCatalogEntry, bool, error) {
	key := publicCatalogCachePrefix + "slug:" + slug
	var cached models.PublicCatalogEntry
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}
	entry, err := s.store.GetPublicBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "dataset not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dataset")
	}
	_ = s.cache.Set(ctx, key, entry, s.cacheTTL)
	return entry, false, nil
}

func publicListCacheKey(filter models.CatalogFilter) string {
	values := url.Values{}
	values.Set("q", strings.ToLower(filter.Search))
	values.Set("org", filter.PublisherOrgID)
	values.Set("page", fmt.Sprint(filter.Page))
	values.Set("size", fmt.Sprint(filter.PageSize))
	return publicCatalogCachePrefix + "list:" + values.Encode()
}
