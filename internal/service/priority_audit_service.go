package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/satudata-api/internal/models"
	appErrors "github.com/noah-isme/satudata-api/pkg/errors"
)

type priorityAuditStore interface {
	Append(ctx context.Context, entry *models.PriorityAuditEntry) error
	List(ctx context.Context, filter models.PriorityAuditFilter) ([]models.PriorityAuditEntry, error)
}

// PriorityAuditService exposes the append-only priority dataset log.
type PriorityAuditService struct {
	store  priorityAuditStore
	logger *zap.Logger
}

// NewPriorityAuditService constructs the service.
func NewPriorityAuditService(store priorityAuditStore, logger *zap.Logger) *PriorityAuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriorityAuditService{store: store, logger: logger}
}

// Append writes one entry. Failures are returned to the caller, which decides
// whether they matter.
func (s *PriorityAuditService) Append(ctx context.Context, entry *models.PriorityAuditEntry) error {
	if entry == nil || strings.TrimSpace(string(entry.Action)) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "audit action is required")
	}
	if strings.TrimSpace(entry.ActorID) == "" {
		entry.ActorID = models.SystemActorID
	}
	return s.store.Append(ctx, entry)
}

// List returns entries newest first. An empty dataset id lists everything.
func (s *PriorityAuditService) List(ctx context.Context, filter models.PriorityAuditFilter) ([]models.PriorityAuditEntry, error) {
	if filter.PriorityDatasetID != "" && !validID(filter.PriorityDatasetID) {
		return []models.PriorityAuditEntry{}, nil
	}
	entries, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit log")
	}
	if entries == nil {
		entries = []models.PriorityAuditEntry{}
	}
	return entries, nil
}
