package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/satudata-api/internal/models"
	"github.com/noah-isme/satudata-api/pkg/export"
	appErrors "github.com/noah-isme/satudata-api/pkg/errors"
)

// ExportFormat is the rendered file type of an export.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

const auditExportLimit = 1000

var auditExportHeaders = []string{"created_at", "action", "priority_dataset_id", "actor_id", "organization_id", "notes"}

type renderer interface {
	Render(data export.Table, title string) ([]byte, error)
	ContentType() string
}

type auditLister interface {
	List(ctx context.Context, filter models.PriorityAuditFilter) ([]models.PriorityAuditEntry, error)
}

// ExportResult is a rendered export ready to stream.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders the priority dataset audit log as CSV or PDF.
type ExportService struct {
	audit  auditLister
	csv    renderer
	pdf    renderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers get defaults.
func NewExportService(audit auditLister, logger *zap.Logger, csv renderer, pdf renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{audit: audit, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// ParseExportFormat accepts csv or pdf, case-insensitively. Empty means csv.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatPDF:
		return ExportFormatPDF, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
}

// AuditLog renders the newest audit entries, optionally for one dataset.
func (s *ExportService) AuditLog(ctx context.Context, datasetID string, format ExportFormat) (*ExportResult, error) {
	entries, err := s.audit.List(ctx, models.PriorityAuditFilter{PriorityDatasetID: datasetID, Limit: auditExportLimit})
	if err != nil {
		return nil, err
	}

	table := export.Table{Headers: auditExportHeaders, Rows: make([]map[string]string, 0, len(entries))}
	for _, entry := range entries {
		table.Rows = append(table.Rows, map[string]string{
			"created_at":          entry.CreatedAt.UTC().Format(time.RFC3339),
			"action":              string(entry.Action),
			"priority_dataset_id": deref(entry.PriorityDatasetID),
			"actor_id":            entry.ActorID,
			"organization_id":     deref(entry.OrganizationID),
			"notes":               deref(entry.Notes),
		})
	}

	r := s.csv
	if format == ExportFormatPDF {
		r = s.pdf
	}
	payload, err := r.Render(table, "Priority Dataset Audit Log")
	if err != nil {
		s.logger.Error("render audit export", zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportResult{
		Filename:    fmt.Sprintf("priority-audit-%s.%s", s.now().UTC().Format("20060102-150405"), format),
		ContentType: r.ContentType(),
		Payload:     payload,
	}, nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
