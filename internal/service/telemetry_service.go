package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/satudata-api/internal/models"
	appErrors "github.com/noah-isme/satudata-api/pkg/errors"
	"github.com/noah-isme/satudata-api/pkg/jobs"
)

// JobTypeTelemetry tags queued view/download events.
const JobTypeTelemetry = "telemetry_event"

type telemetryRecorder interface {
	Record(ctx context.Context, event *models.TelemetryEvent) error
}

type publicEntryLookup interface {
	GetPublic(ctx context.Context, slug string) (*models.PublicCatalogEntry, bool, error)
}

type telemetryQueue interface {
	TryEnqueue(job jobs.Job) error
}

// TelemetryService records views and downloads of public datasets off the
// request path.
type TelemetryService struct {
	catalog publicEntryLookup
	store   telemetryRecorder
	queue   telemetryQueue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewTelemetryService constructs the service. The queue is attached later with
// AttachQueue because the queue handler is built from this service.
func NewTelemetryService(catalog publicEntryLookup, store telemetryRecorder, metrics *MetricsService, logger *zap.Logger) *TelemetryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelemetryService{catalog: catalog, store: store, metrics: metrics, logger: logger}
}

// AttachQueue sets the queue that Track enqueues on. Without one, events are
// written inline.
func (s *TelemetryService) AttachQueue(queue telemetryQueue) {
	s.queue = queue
}

// Track resolves the slug and records the event asynchronously. A full queue
// drops the event with a warning.
func (s *TelemetryService) Track(ctx context.Context, slug string, kind models.TelemetryKind, clientIP, userAgent string) error {
	if kind != models.TelemetryView && kind != models.TelemetryDownload {
		return appErrors.Clone(appErrors.ErrValidation, "unknown telemetry kind")
	}
	entry, _, err := s.catalog.GetPublic(ctx, slug)
	if err != nil {
		return err
	}
	event := &models.TelemetryEvent{
		CatalogEntryID: entry.ID,
		Kind:           kind,
		ClientHash:     HashIdentity(clientIP),
		UserAgent:      truncateRunes(userAgent, 255),
	}
	if s.queue == nil {
		return s.persist(ctx, event)
	}
	if err := s.queue.TryEnqueue(jobs.Job{Type: JobTypeTelemetry, Payload: event}); err != nil {
		s.logger.Warn("telemetry event dropped", zap.String("slug", slug), zap.String("kind", string(kind)), zap.Error(err))
	}
	return nil
}

// Handler is the queue handler that persists events.
func (s *TelemetryService) Handler() jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		event, ok := job.Payload.(*models.TelemetryEvent)
		if !ok || event == nil {
			return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
		}
		return s.persist(ctx, event)
	}
}

func (s *TelemetryService) persist(ctx context.Context, event *models.TelemetryEvent) error {
	if err := s.store.Record(ctx, event); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record telemetry")
	}
	s.metrics.RecordTelemetryEvent(event.Kind)
	return nil
}

// HashIdentity returns the hex SHA-256 of value. Raw IPs and API keys are
// never stored or used as keys.
func HashIdentity(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
