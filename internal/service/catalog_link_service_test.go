package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/satudata-api/internal/models"
	"github.com/noah-isme/satudata-api/internal/repository"
	"github.com/noah-isme/satudata-api/pkg/slug"
)

func assignedDataset(id, org string) *models.PriorityDataset {
	actor := "U1"
	at := fixedNow
	return &models.PriorityDataset{
		ID:                    id,
		Code:                  "DS 01",
		Name:                  "Angka Kemiskinan",
		OperationalDefinition: strings.Repeat("a", 300),
		SourceReference:       "Susenas",
		ProducingAgency:       "BPS",
		Status:                models.PriorityStatusAssigned,
		AssignedOrg:           &org,
		AssignedBy:            &actor,
		AssignedAt:            &at,
	}
}

func TestCatalogLinkCreatesDraftEntry(t *testing.T) {
	store := newCatalogStoreStub()
	svc := NewCatalogLinkService(store, NewSlugAllocator(store, nil), nil, nil)

	entry, err := svc.EnsureLink(context.Background(), assignedDataset("pd-1", "org-1"), nil)
	require.NoError(t, err)
	assert.Equal(t, "ds-01", entry.Slug)
	assert.Equal(t, "Angka Kemiskinan", entry.Title)
	assert.Equal(t, "Susenas", entry.SourceName)
	assert.Equal(t, models.PublicationDraft, entry.PublicationStatus)
	assert.Equal(t, models.ClassificationPublic, entry.Classification)
	assert.Equal(t, "org-1", *entry.PublisherOrgID)
	assert.Equal(t, "pd-1", *entry.PriorityDatasetID)
	assert.True(t, entry.IsPriority)
	assert.Len(t, []rune(entry.Abstract), catalogAbstractRunes+1)
	assert.Len(t, entry.Description, 300)
}

func TestCatalogLinkUpdateKeepsPublicationStatus(t *testing.T) {
	store := newCatalogStoreStub()
	svc := NewCatalogLinkService(store, NewSlugAllocator(store, nil), nil, nil)
	dataset := assignedDataset("pd-1", "org-1")

	created, err := svc.EnsureLink(context.Background(), dataset, nil)
	require.NoError(t, err)
	store.entries[created.ID].PublicationStatus = models.PublicationPublished
	store.entries[created.ID].Classification = models.ClassificationRestricted

	dataset.Name = "Angka Kemiskinan Makro"
	updated, err := svc.EnsureLink(context.Background(), dataset, nil)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Angka Kemiskinan Makro", updated.Title)
	assert.Equal(t, models.PublicationPublished, updated.PublicationStatus)
	assert.Equal(t, models.ClassificationPublic, updated.Classification)
	assert.Equal(t, 1, store.creates)
	assert.Equal(t, 1, store.updates)
}

func TestCatalogLinkRetriesSlugConflict(t *testing.T) {
	store := newCatalogStoreStub()
	slugConflict := &pq.Error{Code: "23505", Constraint: repository.CatalogSlugConstraint}
	store.createErrs = []error{slugConflict, slugConflict}
	svc := NewCatalogLinkService(store, NewSlugAllocator(store, nil), nil, nil)

	entry, err := svc.EnsureLink(context.Background(), assignedDataset("pd-1", "org-1"), nil)
	require.NoError(t, err)
	assert.Equal(t, "ds-01", entry.Slug)
	assert.Equal(t, 1, store.creates)
}

func TestCatalogLinkGivesUpAfterRepeatedSlugConflicts(t *testing.T) {
	store := newCatalogStoreStub()
	slugConflict := &pq.Error{Code: "23505", Constraint: repository.CatalogSlugConstraint}
	store.createErrs = []error{slugConflict, slugConflict, slugConflict}
	svc := NewCatalogLinkService(store, NewSlugAllocator(store, nil), nil, nil)

	_, err := svc.EnsureLink(context.Background(), assignedDataset("pd-1", "org-1"), nil)
	require.Error(t, err)
	var pqErr *pq.Error
	assert.True(t, errors.As(err, &pqErr))
	assert.Zero(t, store.count())
}

func TestCatalogLinkLostInsertRaceSwitchesToUpdate(t *testing.T) {
	store := newCatalogStoreStub()
	svc := NewCatalogLinkService(store, NewSlugAllocator(store, nil), nil, nil)
	dataset := assignedDataset("pd-1", "org-1")

	racer := &racingCatalogStore{catalogStoreStub: store, dataset: dataset}
	svc.store = racer

	entry, err := svc.EnsureLink(context.Background(), dataset, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, store.count())
	assert.Equal(t, "cat-winner", entry.ID)
	assert.Equal(t, 1, store.updates)
}

// racingCatalogStore inserts a competing entry right before the first Create.
type racingCatalogStore struct {
	*catalogStoreStub
	dataset *models.PriorityDataset
	raced   bool
}

func (r *racingCatalogStore) Create(ctx context.Context, entry *models.CatalogEntry) error {
	if !r.raced {
		r.raced = true
		id := r.dataset.ID
		r.catalogStoreStub.entries["cat-winner"] = &models.CatalogEntry{ID: "cat-winner", Slug: "winner", PriorityDatasetID: &id}
	}
	return r.catalogStoreStub.Create(ctx, entry)
}

func TestCatalogLinkExplicitOrganizationAndFallbacks(t *testing.T) {
	dataset := assignedDataset("pd-1", "org-1")
	dataset.SourceReference = " "
	dataset.OperationalDefinition = ""
	override := "org-2"

	meta := catalogMetadataFor(dataset, &override)
	assert.Equal(t, "org-2", *meta.PublisherOrgID)
	assert.Equal(t, "BPS", meta.SourceName)
	assert.Empty(t, meta.Abstract)

	empty := ""
	meta = catalogMetadataFor(dataset, &empty)
	assert.Equal(t, "org-1", *meta.PublisherOrgID)
}

func TestCatalogLinkUsesNameWhenCodeEmpty(t *testing.T) {
	store := newCatalogStoreStub()
	svc := NewCatalogLinkService(store, NewSlugAllocator(store, nil), nil, nil)
	dataset := assignedDataset("pd-1", "org-1")
	dataset.Code = "  "

	entry, err := svc.EnsureLink(context.Background(), dataset, nil)
	require.NoError(t, err)
	assert.Equal(t, "angka-kemiskinan", entry.Slug)
	assert.True(t, slug.Valid(entry.Slug))
}
