package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleTable() Table {
	return Table{
		Headers: []string{"action", "actor", "notes"},
		Rows: []map[string]string{
			{"action": "assign", "actor": "user-1", "notes": "assigned to BPS"},
			{"action": "reset", "actor": "user-2"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleTable(), "ignored")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Equal(t, []string{"action,actor,notes", "assign,user-1,assigned to BPS", "reset,user-2,"}, lines)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleTable(), "Log Dataset Prioritas")
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Table{}, "")
	require.Error(t, err)
	_, err = NewPDFExporter().Render(Table{}, "")
	require.Error(t, err)
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", 60)
	require.Len(t, []rune(truncate(long)), maxCellRunes)
	require.Equal(t, "short", truncate(" short "))
}
