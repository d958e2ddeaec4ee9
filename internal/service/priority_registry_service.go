package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/satudata-api/internal/dto"
	"github.com/noah-isme/satudata-api/internal/models"
	"github.com/noah-isme/satudata-api/internal/repository"
	"github.com/noah-isme/satudata-api/pkg/database"
	appErrors "github.com/noah-isme/satudata-api/pkg/errors"
	"github.com/noah-isme/satudata-api/pkg/jobs"
)

// Side-effect kinds reported on side_effect_failures_total.
const (
	SideEffectCatalogLink = "catalog_link"
	SideEffectAudit       = "audit"
)

// JobTypeAuditRetry tags audit appends re-queued after a failure.
const JobTypeAuditRetry = "priority_audit_retry"

type priorityDatasetStore interface {
	Create(ctx context.Context, dataset *models.PriorityDataset) error
	GetByID(ctx context.Context, id string) (*models.PriorityDataset, error)
	List(ctx context.Context, filter models.PriorityDatasetFilter) ([]models.PriorityDataset, int, error)
	TakeUnassigned(ctx context.Context, params repository.TakeParams) (*models.PriorityDataset, error)
	Reset(ctx context.Context, id string, at time.Time) (*models.PriorityDataset, error)
	UpdateFields(ctx context.Context, id string, patch models.PriorityDatasetPatch, at time.Time) (*models.PriorityDataset, error)
	Delete(ctx context.Context, id string) error
}

type catalogLinker interface {
	EnsureLink(ctx context.Context, dataset *models.PriorityDataset, orgID *string) (*models.CatalogEntry, error)
}

type auditAppender interface {
	Append(ctx context.Context, entry *models.PriorityAuditEntry) error
}

type sideEffectQueue interface {
	TryEnqueue(job jobs.Job) error
}

// PriorityRegistryService drives the priority dataset lifecycle:
// unassigned -> assigned | claimed, reset back to unassigned, and conversion
// into a catalog entry.
//
// Operations that find the row in the wrong state return (nil, nil) and log a
// warning. Catalog linkage and audit appends run after the state change and
// never undo it.
type PriorityRegistryService struct {
	store     priorityDatasetStore
	links     catalogLinker
	audit     auditAppender
	outbox    sideEffectQueue
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// PriorityRegistryOption configures the service.
type PriorityRegistryOption func(*PriorityRegistryService)

// WithSideEffectQueue re-queues failed audit appends for retry.
func WithSideEffectQueue(queue sideEffectQueue) PriorityRegistryOption {
	return func(s *PriorityRegistryService) {
		s.outbox = queue
	}
}

// WithRegistryMetrics records transition outcomes.
func WithRegistryMetrics(metrics *MetricsService) PriorityRegistryOption {
	return func(s *PriorityRegistryService) {
		s.metrics = metrics
	}
}

// WithRegistryClock overrides the time source.
func WithRegistryClock(now func() time.Time) PriorityRegistryOption {
	return func(s *PriorityRegistryService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewPriorityRegistryService constructs the service.
func NewPriorityRegistryService(store priorityDatasetStore, links catalogLinker, audit auditAppender, validate *validator.Validate, logger *zap.Logger, opts ...PriorityRegistryOption) *PriorityRegistryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &PriorityRegistryService{
		store:     store,
		links:     links,
		audit:     audit,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create stores a new unassigned proposal. Operators only.
func (s *PriorityRegistryService) Create(ctx context.Context, actor models.Actor, req dto.CreatePriorityDatasetRequest) (*models.PriorityDataset, error) {
	if !actor.Role.IsOperator() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only operators can propose priority datasets")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	dataset := &models.PriorityDataset{
		Code:                  strings.TrimSpace(req.Code),
		Name:                  strings.TrimSpace(req.Name),
		OperationalDefinition: strings.TrimSpace(req.OperationalDefinition),
		DataType:              strings.TrimSpace(req.DataType),
		ProposingAgency:       strings.TrimSpace(req.ProposingAgency),
		ProducingAgency:       strings.TrimSpace(req.ProducingAgency),
		SourceReference:       strings.TrimSpace(req.SourceReference),
		UpdateSchedule:        strings.TrimSpace(req.UpdateSchedule),
		CreatedAt:             s.now().UTC(),
	}
	if err := s.store.Create(ctx, dataset); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create priority dataset")
	}
	if dataset.OperationalDefinition == "" {
		s.logger.Info("priority dataset has no operational definition", zap.String("priority_dataset_id", dataset.ID))
	}
	return dataset, nil
}

// Get returns one dataset with its conversion state.
func (s *PriorityRegistryService) Get(ctx context.Context, id string) (*models.PriorityDataset, error) {
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "priority dataset not found")
	}
	dataset, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "priority dataset not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load priority dataset")
	}
	return dataset, nil
}

// List returns a page of datasets.
func (s *PriorityRegistryService) List(ctx context.Context, query dto.PriorityDatasetQuery) ([]models.PriorityDataset, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter")
	}
	page, size := models.NormalizePage(query.Page, query.PageSize)
	filter := models.PriorityDatasetFilter{
		Status:      models.PriorityStatus(query.Status),
		AssignedOrg: strings.TrimSpace(query.AssignedOrg),
		Search:      query.Search,
		Page:        page,
		PageSize:    size,
	}
	items, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list priority datasets")
	}
	if items == nil {
		items = []models.PriorityDataset{}
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Assign pushes an unassigned dataset onto an organization. Operators only.
func (s *PriorityRegistryService) Assign(ctx context.Context, actor models.Actor, id, organizationID string) (*models.PriorityDataset, error) {
	if !actor.Role.IsOperator() {
		s.metrics.RecordTransition(models.PriorityAuditAssign, OutcomeForbidden)
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only operators can assign priority datasets")
	}
	return s.take(ctx, actor, id, organizationID, models.PriorityStatusAssigned, models.PriorityAuditAssign)
}

// Claim lets a producer take an unassigned dataset for its own organization.
// Operators may claim on behalf of any organization. An empty organizationID
// means the actor's organization.
func (s *PriorityRegistryService) Claim(ctx context.Context, actor models.Actor, id, organizationID string) (*models.PriorityDataset, error) {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" && actor.OrganizationID != nil {
		organizationID = *actor.OrganizationID
	}
	switch {
	case actor.Role.IsOperator():
	case actor.Role == models.RoleProducer && actor.BelongsTo(organizationID):
	default:
		s.metrics.RecordTransition(models.PriorityAuditClaim, OutcomeForbidden)
		return nil, appErrors.Clone(appErrors.ErrForbidden, "producers can only claim for their own organization")
	}
	return s.take(ctx, actor, id, organizationID, models.PriorityStatusClaimed, models.PriorityAuditClaim)
}

func (s *PriorityRegistryService) take(ctx context.Context, actor models.Actor, id, organizationID string, status models.PriorityStatus, action models.PriorityAuditAction) (*models.PriorityDataset, error) {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "organization_id is required")
	}
	if err := s.validateOrganizationID(organizationID); err != nil {
		return nil, err
	}
	if !validID(id) {
		s.notEligible(action, id, actor)
		return nil, nil
	}
	dataset, err := s.store.TakeUnassigned(ctx, repository.TakeParams{
		ID:             id,
		Status:         status,
		OrganizationID: organizationID,
		ActorID:        actor.UserID,
		At:             s.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.notEligible(action, id, actor)
			return nil, nil
		}
		s.metrics.RecordTransition(action, OutcomeError)
		if _, ok := database.ForeignKeyViolation(err); ok {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "organization does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to %s priority dataset", action))
	}
	s.metrics.RecordTransition(action, OutcomeSuccess)

	s.linkCatalog(ctx, dataset, nil)
	s.emitAudit(ctx, &models.PriorityAuditEntry{
		PriorityDatasetID: &dataset.ID,
		Action:            action,
		ActorID:           actor.UserID,
		OrganizationID:    &organizationID,
	})
	return dataset, nil
}

// Convert creates or refreshes the catalog entry of an assigned or claimed
// dataset. organizationID overrides the assigned organization as publisher.
// Repeated calls update the same entry. Operators only.
func (s *PriorityRegistryService) Convert(ctx context.Context, actor models.Actor, id string, organizationID *string) (*models.PriorityDataset, *models.CatalogEntry, error) {
	if !actor.Role.IsOperator() {
		s.metrics.RecordTransition(models.PriorityAuditConvert, OutcomeForbidden)
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "only operators can convert priority datasets")
	}
	if s.links == nil {
		s.metrics.RecordTransition(models.PriorityAuditConvert, OutcomeError)
		return nil, nil, appErrors.Clone(appErrors.ErrInternal, "catalog linkage is not configured")
	}
	if organizationID != nil {
		trimmed := strings.TrimSpace(*organizationID)
		organizationID = nil
		if trimmed != "" {
			if err := s.validateOrganizationID(trimmed); err != nil {
				return nil, nil, err
			}
			organizationID = &trimmed
		}
	}
	if !validID(id) {
		s.notEligible(models.PriorityAuditConvert, id, actor)
		return nil, nil, nil
	}
	dataset, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.notEligible(models.PriorityAuditConvert, id, actor)
			return nil, nil, nil
		}
		s.metrics.RecordTransition(models.PriorityAuditConvert, OutcomeError)
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load priority dataset")
	}
	if dataset.Status != models.PriorityStatusAssigned && dataset.Status != models.PriorityStatusClaimed {
		s.notEligible(models.PriorityAuditConvert, id, actor)
		return nil, nil, nil
	}
	entry, err := s.links.EnsureLink(ctx, dataset, organizationID)
	if err != nil {
		s.metrics.RecordTransition(models.PriorityAuditConvert, OutcomeError)
		if _, ok := database.ForeignKeyViolation(err); ok {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "organization does not exist")
		}
		s.logger.Error("convert priority dataset failed", zap.String("priority_dataset_id", id), zap.Error(err))
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to convert priority dataset")
	}
	s.metrics.RecordTransition(models.PriorityAuditConvert, OutcomeSuccess)
	dataset.CatalogEntryID = &entry.ID

	org := organizationID
	if org == nil {
		org = dataset.AssignedOrg
	}
	note := "catalog entry " + entry.ID
	s.emitAudit(ctx, &models.PriorityAuditEntry{
		PriorityDatasetID: &dataset.ID,
		Action:            models.PriorityAuditConvert,
		ActorID:           actor.UserID,
		OrganizationID:    org,
		Notes:             &note,
	})
	return dataset, entry, nil
}

// Reset returns an assigned or claimed dataset to unassigned. A linked catalog
// entry is left as is. Operators only.
func (s *PriorityRegistryService) Reset(ctx context.Context, actor models.Actor, id string) (*models.PriorityDataset, error) {
	if !actor.Role.IsOperator() {
		s.metrics.RecordTransition(models.PriorityAuditReset, OutcomeForbidden)
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only operators can reset priority datasets")
	}
	if !validID(id) {
		s.notEligible(models.PriorityAuditReset, id, actor)
		return nil, nil
	}
	dataset, err := s.store.Reset(ctx, id, s.now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.notEligible(models.PriorityAuditReset, id, actor)
			return nil, nil
		}
		s.metrics.RecordTransition(models.PriorityAuditReset, OutcomeError)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset priority dataset")
	}
	s.metrics.RecordTransition(models.PriorityAuditReset, OutcomeSuccess)
	s.emitAudit(ctx, &models.PriorityAuditEntry{
		PriorityDatasetID: &dataset.ID,
		Action:            models.PriorityAuditReset,
		ActorID:           actor.UserID,
	})
	return dataset, nil
}

// Update edits proposal fields without touching status. Operators may edit any
// dataset; producers only those held by their organization. The audit entry is
// attributed to whoever assigned or claimed the dataset.
func (s *PriorityRegistryService) Update(ctx context.Context, actor models.Actor, id string, req dto.UpdatePriorityDatasetRequest) (*models.PriorityDataset, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	patch := req.Patch()
	if patch.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no fields to update")
	}
	if !validID(id) {
		s.notEligible(models.PriorityAuditUpdate, id, actor)
		return nil, nil
	}
	if !actor.Role.IsOperator() {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if actor.Role != models.RoleProducer || current.AssignedOrg == nil || !actor.BelongsTo(*current.AssignedOrg) {
			s.metrics.RecordTransition(models.PriorityAuditUpdate, OutcomeForbidden)
			return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to edit this priority dataset")
		}
	}

	dataset, err := s.store.UpdateFields(ctx, id, patch, s.now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.notEligible(models.PriorityAuditUpdate, id, actor)
			return nil, nil
		}
		s.metrics.RecordTransition(models.PriorityAuditUpdate, OutcomeError)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update priority dataset")
	}
	s.metrics.RecordTransition(models.PriorityAuditUpdate, OutcomeSuccess)
	note := "edited by " + actorLabel(actor)
	s.emitAudit(ctx, &models.PriorityAuditEntry{
		PriorityDatasetID: &dataset.ID,
		Action:            models.PriorityAuditUpdate,
		ActorID:           dataset.LastActor(),
		OrganizationID:    dataset.AssignedOrg,
		Notes:             &note,
	})
	return dataset, nil
}

// Delete removes a dataset and then logs an unassign entry pointing at the
// removed id. Returns the deleted row. Operators only.
func (s *PriorityRegistryService) Delete(ctx context.Context, actor models.Actor, id string) (*models.PriorityDataset, error) {
	if !actor.Role.IsOperator() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only operators can delete priority datasets")
	}
	if !validID(id) {
		s.notEligible(models.PriorityAuditUnassign, id, actor)
		return nil, nil
	}
	dataset, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.notEligible(models.PriorityAuditUnassign, id, actor)
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load priority dataset")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.notEligible(models.PriorityAuditUnassign, id, actor)
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete priority dataset")
	}
	s.metrics.RecordTransition(models.PriorityAuditUnassign, OutcomeSuccess)
	note := "dataset deleted"
	deletedID := dataset.ID
	s.emitAudit(ctx, &models.PriorityAuditEntry{
		PriorityDatasetID: &deletedID,
		Action:            models.PriorityAuditUnassign,
		ActorID:           actor.UserID,
		OrganizationID:    dataset.AssignedOrg,
		Notes:             &note,
	})
	return dataset, nil
}

func (s *PriorityRegistryService) validateOrganizationID(id string) error {
	if err := s.validator.Var(id, "uuid"); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "organization_id must be a UUID")
	}
	return nil
}

func (s *PriorityRegistryService) notEligible(action models.PriorityAuditAction, id string, actor models.Actor) {
	s.metrics.RecordTransition(action, OutcomeNotEligible)
	s.logger.Warn("priority dataset not eligible",
		zap.String("action", string(action)),
		zap.String("priority_dataset_id", id),
		zap.String("actor_id", actor.UserID),
	)
}

func (s *PriorityRegistryService) linkCatalog(ctx context.Context, dataset *models.PriorityDataset, orgID *string) {
	if s.links == nil {
		return
	}
	entry, err := s.links.EnsureLink(ctx, dataset, orgID)
	if err != nil {
		s.metrics.RecordSideEffectFailure(SideEffectCatalogLink)
		s.logger.Warn("catalog link failed", zap.String("priority_dataset_id", dataset.ID), zap.Error(err))
		return
	}
	dataset.CatalogEntryID = &entry.ID
}

func (s *PriorityRegistryService) emitAudit(ctx context.Context, entry *models.PriorityAuditEntry) {
	if s.audit == nil || entry == nil {
		return
	}
	err := s.audit.Append(ctx, entry)
	if err == nil {
		return
	}
	s.metrics.RecordSideEffectFailure(SideEffectAudit)
	s.logger.Warn("failed to write priority audit entry",
		zap.String("action", string(entry.Action)),
		zap.String("actor_id", entry.ActorID),
		zap.Error(err),
	)
	if s.outbox == nil {
		return
	}
	if qErr := s.outbox.TryEnqueue(jobs.Job{Type: JobTypeAuditRetry, Payload: entry}); qErr != nil {
		s.logger.Warn("audit retry not queued", zap.String("action", string(entry.Action)), zap.Error(qErr))
	}
}

// NewAuditRetryHandler builds the side-effect queue handler that replays
// failed audit appends.
func NewAuditRetryHandler(audit auditAppender) jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		entry, ok := job.Payload.(*models.PriorityAuditEntry)
		if !ok || entry == nil {
			return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
		}
		return audit.Append(ctx, entry)
	}
}

func actorLabel(actor models.Actor) string {
	if actor.UserID == "" {
		return models.SystemActorID
	}
	return actor.UserID
}
