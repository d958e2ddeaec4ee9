package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/satudata-api/internal/dto"
	"github.com/noah-isme/satudata-api/internal/models"
	appErrors "github.com/noah-isme/satudata-api/pkg/errors"
)

type organizationStore interface {
	List(ctx context.Context, filter models.OrganizationFilter) ([]models.Organization, error)
	FindByID(ctx context.Context, id string) (*models.Organization, error)
}

// OrganizationService reads the organization hierarchy.
type OrganizationService struct {
	store  organizationStore
	logger *zap.Logger
}

// NewOrganizationService constructs the service.
func NewOrganizationService(store organizationStore, logger *zap.Logger) *OrganizationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrganizationService{store: store, logger: logger}
}

// Tree lists organizations as roots with their direct children. With a
// parent or type filter the result is flat.
func (s *OrganizationService) Tree(ctx context.Context, query dto.OrganizationQuery) ([]models.OrganizationNode, error) {
	if query.ParentID != "" && !validID(query.ParentID) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "parent_id must be a UUID")
	}
	orgs, err := s.store.List(ctx, models.OrganizationFilter{ParentID: query.ParentID, RootOnly: query.RootOnly, Type: query.Type})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list organizations")
	}
	if query.ParentID != "" || query.Type != "" || query.RootOnly {
		nodes := make([]models.OrganizationNode, len(orgs))
		for i, org := range orgs {
			nodes[i] = models.OrganizationNode{Organization: org}
		}
		return nodes, nil
	}
	return buildOrganizationTree(orgs), nil
}

// Get returns one organization.
func (s *OrganizationService) Get(ctx context.Context, id string) (*models.Organization, error) {
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "organization not found")
	}
	org, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "organization not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load organization")
	}
	return org, nil
}

// buildOrganizationTree keeps input order. Children whose parent is missing
// from the input are promoted to roots.
func buildOrganizationTree(orgs []models.Organization) []models.OrganizationNode {
	index := make(map[string]int, len(orgs))
	roots := make([]models.OrganizationNode, 0, len(orgs))
	for _, org := range orgs {
		if org.ParentID == nil {
			index[org.ID] = len(roots)
			roots = append(roots, models.OrganizationNode{Organization: org})
		}
	}
	for _, org := range orgs {
		if org.ParentID == nil {
			continue
		}
		if pos, ok := index[*org.ParentID]; ok {
			roots[pos].Children = append(roots[pos].Children, org)
			continue
		}
		roots = append(roots, models.OrganizationNode{Organization: org})
	}
	return roots
}
