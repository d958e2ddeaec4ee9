package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert catalog entry: %w", &pq.Error{Code: "23505", Constraint: "catalog_entries_slug_key"})
	constraint, ok := UniqueViolation(err)
	require.True(t, ok)
	require.Equal(t, "catalog_entries_slug_key", constraint)

	_, ok = UniqueViolation(&pq.Error{Code: "23503"})
	require.False(t, ok)

	_, ok = UniqueViolation(errors.New("boom"))
	require.False(t, ok)
}

func TestForeignKeyViolation(t *testing.T) {
	err := fmt.Errorf("take priority dataset: %w", &pq.Error{Code: "23503", Constraint: "priority_datasets_assigned_org_fkey"})
	constraint, ok := ForeignKeyViolation(err)
	require.True(t, ok)
	require.Equal(t, "priority_datasets_assigned_org_fkey", constraint)

	_, ok = ForeignKeyViolation(&pq.Error{Code: "23505"})
	require.False(t, ok)
}
