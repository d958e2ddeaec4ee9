package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/satudata-api/internal/dto"
	"github.com/noah-isme/satudata-api/internal/models"
	"github.com/noah-isme/satudata-api/internal/repository"
	appErrors "github.com/noah-isme/satudata-api/pkg/errors"
)

const entryC1 = "3e9a6b1c-5d2f-4c7e-b8a0-4f1d2c3b5a61"

type memoryCacheRepo struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{data: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			delete(m.data, key)
		}
	}
	m.deleted = append(m.deleted, pattern)
	return nil
}

type publicationStoreStub struct {
	entries     map[string]*models.CatalogEntry
	published   []models.PublicCatalogEntry
	listCalls   int
	detailCalls int
}

func newPublicationStoreStub() *publicationStoreStub {
	return &publicationStoreStub{entries: map[string]*models.CatalogEntry{}}
}

func (s *publicationStoreStub) add(id string, status models.PublicationStatus, org string) {
	s.entries[id] = &models.CatalogEntry{ID: id, Slug: "slug-" + id, PublicationStatus: status, PublisherOrgID: &org}
}

func (s *publicationStoreStub) GetByID(_ context.Context, id string) (*models.CatalogEntry, error) {
	entry, ok := s.entries[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *entry
	return &clone, nil
}

func (s *publicationStoreStub) TransitionPublication(_ context.Context, t repository.PublicationTransition) (*models.CatalogEntry, error) {
	entry, ok := s.entries[t.ID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	for _, from := range t.From {
		if entry.PublicationStatus == from {
			entry.PublicationStatus = t.To
			entry.ReviewedBy = t.ReviewedBy
			entry.ReviewNote = t.Note
			if t.To == models.PublicationPublished {
				at := t.At
				entry.PublishedAt = &at
			}
			clone := *entry
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *publicationStoreStub) ListPublic(_ context.Context, filter models.CatalogFilter) ([]models.PublicCatalogEntry, int, error) {
	s.listCalls++
	return s.published, len(s.published), nil
}

func (s *publicationStoreStub) GetPublicBySlug(_ context.Context, slug string) (*models.PublicCatalogEntry, error) {
	s.detailCalls++
	for _, entry := range s.published {
		if entry.Slug == slug {
			clone := entry
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func newCatalogServiceForTest(store *publicationStoreStub, cache *memoryCacheRepo) *CatalogService {
	svc := NewCatalogService(store, NewCacheService(cache, nil, time.Minute, nil, true), time.Minute, nil, nil)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestCatalogSubmitAndApprove(t *testing.T) {
	store := newPublicationStoreStub()
	store.add(entryC1, models.PublicationDraft, "O")
	cache := newMemoryCacheRepo()
	svc := newCatalogServiceForTest(store, cache)

	entry, err := svc.Submit(context.Background(), producer("P1", "O"), entryC1)
	require.NoError(t, err)
	require.Equal(t, models.PublicationPendingReview, entry.PublicationStatus)

	note := "looks good"
	entry, err = svc.Review(context.Background(), operator("U1"), entryC1, dto.ReviewCatalogEntryRequest{Decision: dto.ReviewApprove, Note: &note})
	require.NoError(t, err)
	assert.Equal(t, models.PublicationPublished, entry.PublicationStatus)
	require.NotNil(t, entry.ReviewedBy)
	assert.Equal(t, "U1", *entry.ReviewedBy)
	assert.Equal(t, fixedNow, *entry.PublishedAt)
	assert.Equal(t, []string{"public:catalog:*"}, cache.deleted)
}

func TestCatalogSubmitRejectsForeignProducer(t *testing.T) {
	store := newPublicationStoreStub()
	store.add(entryC1, models.PublicationDraft, "O")
	svc := newCatalogServiceForTest(store, newMemoryCacheRepo())

	_, err := svc.Submit(context.Background(), producer("P1", "OTHER"), entryC1)
	require.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = svc.Submit(context.Background(), models.Actor{UserID: "V", Role: models.RoleViewer}, entryC1)
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestCatalogReviewRequiresPending(t *testing.T) {
	store := newPublicationStoreStub()
	store.add(entryC1, models.PublicationDraft, "O")
	svc := newCatalogServiceForTest(store, newMemoryCacheRepo())

	_, err := svc.Review(context.Background(), operator("U1"), entryC1, dto.ReviewCatalogEntryRequest{Decision: dto.ReviewReject})
	require.ErrorIs(t, err, appErrors.ErrNotEligible)
	assert.Equal(t, models.PublicationDraft, store.entries[entryC1].PublicationStatus)

	_, err = svc.Review(context.Background(), producer("P1", "O"), entryC1, dto.ReviewCatalogEntryRequest{Decision: dto.ReviewApprove})
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Review(context.Background(), operator("U1"), entryC1, dto.ReviewCatalogEntryRequest{Decision: "maybe"})
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestCatalogRejectedEntryCanBeResubmitted(t *testing.T) {
	store := newPublicationStoreStub()
	store.add(entryC1, models.PublicationRejected, "O")
	svc := newCatalogServiceForTest(store, newMemoryCacheRepo())

	entry, err := svc.Submit(context.Background(), operator("U1"), entryC1)
	require.NoError(t, err)
	require.Equal(t, models.PublicationPendingReview, entry.PublicationStatus)
}

func TestCatalogListPublicUsesCache(t *testing.T) {
	store := newPublicationStoreStub()
	store.published = []models.PublicCatalogEntry{{ID: entryC1, Slug: "kemiskinan", Title: "Kemiskinan", ViewCount: 3}}
	svc := newCatalogServiceForTest(store, newMemoryCacheRepo())

	items, page, hit, err := svc.ListPublic(context.Background(), dto.PublicCatalogQuery{Search: "Kemiskinan"})
	require.NoError(t, err)
	require.False(t, hit)
	require.Len(t, items, 1)
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, 20, page.PageSize)

	items, _, hit, err = svc.ListPublic(context.Background(), dto.PublicCatalogQuery{Search: "kemiskinan"})
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, int64(3), items[0].ViewCount)
	assert.Equal(t, 1, store.listCalls)
}

func TestCatalogGetPublic(t *testing.T) {
	store := newPublicationStoreStub()
	store.published = []models.PublicCatalogEntry{{ID: entryC1, Slug: "kemiskinan"}}
	svc := newCatalogServiceForTest(store, newMemoryCacheRepo())

	entry, hit, err := svc.GetPublic(context.Background(), "kemiskinan")
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, entryC1, entry.ID)

	_, hit, err = svc.GetPublic(context.Background(), "kemiskinan")
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, 1, store.detailCalls)

	_, _, err = svc.GetPublic(context.Background(), "missing")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestCatalogMalformedIDNotFound(t *testing.T) {
	store := newPublicationStoreStub()
	store.add(entryC1, models.PublicationPendingReview, "O")
	svc := newCatalogServiceForTest(store, newMemoryCacheRepo())

	_, err := svc.Get(context.Background(), "C1")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = svc.Submit(context.Background(), operator("U1"), "C1")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = svc.Review(context.Background(), operator("U1"), "C1", dto.ReviewCatalogEntryRequest{Decision: dto.ReviewApprove})
	require.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Equal(t, models.PublicationPendingReview, store.entries[entryC1].PublicationStatus)
}
