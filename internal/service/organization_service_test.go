package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/satudata-api/internal/dto"
	"github.com/noah-isme/satudata-api/internal/models"
	appErrors "github.com/noah-isme/satudata-api/pkg/errors"
)

const (
	orgPemda  = "7a1e0c52-0b8d-4f3a-9c61-000000000001"
	orgBPS    = "7a1e0c52-0b8d-4f3a-9c61-000000000002"
	orgDinkes = "7a1e0c52-0b8d-4f3a-9c61-000000000003"
	orgOrphan = "7a1e0c52-0b8d-4f3a-9c61-000000000004"
	orgDisdik = "7a1e0c52-0b8d-4f3a-9c61-000000000005"
	orgGone   = "7a1e0c52-0b8d-4f3a-9c61-0000000000ff"
)

type organizationStoreStub struct {
	orgs       []models.Organization
	lastFilter models.OrganizationFilter
}

func (s *organizationStoreStub) List(_ context.Context, filter models.OrganizationFilter) ([]models.Organization, error) {
	s.lastFilter = filter
	return s.orgs, nil
}

func (s *organizationStoreStub) FindByID(_ context.Context, id string) (*models.Organization, error) {
	for _, org := range s.orgs {
		if org.ID == id {
			clone := org
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func sampleOrganizations() []models.Organization {
	root, gone := orgPemda, orgGone
	return []models.Organization{
		{ID: orgPemda, Name: "Pemerintah Daerah"},
		{ID: orgBPS, Name: "Badan Pusat Statistik"},
		{ID: orgDinkes, Name: "Dinas Kesehatan", ParentID: &root},
		{ID: orgOrphan, Name: "Unit Lama", ParentID: &gone},
		{ID: orgDisdik, Name: "Dinas Pendidikan", ParentID: &root},
	}
}

func TestOrganizationTree(t *testing.T) {
	store := &organizationStoreStub{orgs: sampleOrganizations()}
	nodes, err := NewOrganizationService(store, nil).Tree(context.Background(), dto.OrganizationQuery{})
	require.NoError(t, err)

	require.Len(t, nodes, 3)
	assert.Equal(t, orgPemda, nodes[0].ID)
	require.Len(t, nodes[0].Children, 2)
	assert.Equal(t, orgDinkes, nodes[0].Children[0].ID)
	assert.Equal(t, orgDisdik, nodes[0].Children[1].ID)
	assert.Equal(t, orgBPS, nodes[1].ID)
	assert.Empty(t, nodes[1].Children)
	assert.Equal(t, orgOrphan, nodes[2].ID)
}

func TestOrganizationTreeFilteredIsFlat(t *testing.T) {
	store := &organizationStoreStub{orgs: sampleOrganizations()[2:]}
	nodes, err := NewOrganizationService(store, nil).Tree(context.Background(), dto.OrganizationQuery{ParentID: orgPemda})
	require.NoError(t, err)
	assert.Len(t, nodes, 3)
	assert.Equal(t, orgPemda, store.lastFilter.ParentID)
}

func TestOrganizationGet(t *testing.T) {
	svc := NewOrganizationService(&organizationStoreStub{orgs: sampleOrganizations()}, nil)

	org, err := svc.Get(context.Background(), orgBPS)
	require.NoError(t, err)
	assert.Equal(t, "Badan Pusat Statistik", org.Name)

	_, err = svc.Get(context.Background(), orgGone)
	require.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = svc.Get(context.Background(), "BPS")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestOrganizationTreeRejectsMalformedParent(t *testing.T) {
	store := &organizationStoreStub{orgs: sampleOrganizations()}
	_, err := NewOrganizationService(store, nil).Tree(context.Background(), dto.OrganizationQuery{ParentID: "PEMDA"})
	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, store.lastFilter.ParentID)
}
