package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/satudata-api/internal/models"
	"github.com/noah-isme/satudata-api/pkg/export"
	appErrors "github.com/noah-isme/satudata-api/pkg/errors"
)

type failingRenderer struct{}

func (failingRenderer) Render(export.Table, string) ([]byte, error) {
	return nil, errors.New("font missing")
}

func (failingRenderer) ContentType() string { return "application/pdf" }

func seededAuditStore() *auditStoreStub {
	audit := &auditStoreStub{}
	d1, d2, org, note := "D1", "D2", "O", "edited by U2"
	_ = audit.Append(context.Background(), &models.PriorityAuditEntry{PriorityDatasetID: &d1, Action: models.PriorityAuditAssign, ActorID: "U1", OrganizationID: &org})
	_ = audit.Append(context.Background(), &models.PriorityAuditEntry{PriorityDatasetID: &d2, Action: models.PriorityAuditClaim, ActorID: "U3", OrganizationID: &org})
	_ = audit.Append(context.Background(), &models.PriorityAuditEntry{PriorityDatasetID: &d1, Action: models.PriorityAuditUpdate, ActorID: "U1", Notes: &note})
	return audit
}

func TestExportAuditLogCSV(t *testing.T) {
	svc := NewExportService(seededAuditStore(), zap.NewNop(), nil, nil)
	svc.now = func() time.Time { return fixedNow }

	result, err := svc.AuditLog(context.Background(), "D1", ExportFormatCSV)
	require.NoError(t, err)
	require.Equal(t, "priority-audit-20240301-080000.csv", result.Filename)
	require.Equal(t, "text/csv; charset=utf-8", result.ContentType)

	lines := strings.Split(strings.TrimSpace(string(result.Payload)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, strings.Join(auditExportHeaders, ","), lines[0])
	require.True(t, strings.HasPrefix(lines[1], "2024-03-01T08:00:02Z,update,D1,U1,,edited by U2"))
	require.True(t, strings.HasPrefix(lines[2], "2024-03-01T08:00:00Z,assign,D1,U1,O,"))
}

func TestExportAuditLogPDF(t *testing.T) {
	svc := NewExportService(seededAuditStore(), zap.NewNop(), nil, nil)

	result, err := svc.AuditLog(context.Background(), "", ExportFormatPDF)
	require.NoError(t, err)
	require.Equal(t, "application/pdf", result.ContentType)
	require.True(t, strings.HasSuffix(result.Filename, ".pdf"))
	require.True(t, strings.HasPrefix(string(result.Payload), "%PDF"))
}

func TestExportAuditLogRenderFailure(t *testing.T) {
	svc := NewExportService(seededAuditStore(), zap.NewNop(), nil, failingRenderer{})

	_, err := svc.AuditLog(context.Background(), "", ExportFormatPDF)
	require.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestParseExportFormat(t *testing.T) {
	format, err := ParseExportFormat("")
	require.NoError(t, err)
	require.Equal(t, ExportFormatCSV, format)

	format, err = ParseExportFormat(" PDF ")
	require.NoError(t, err)
	require.Equal(t, ExportFormatPDF, format)

	_, err = ParseExportFormat("xlsx")
	require.ErrorIs(t, err, appErrors.ErrValidation)
}
