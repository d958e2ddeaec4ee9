package errors

import (
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(sql.ErrConnDone)
	require.Equal(t, ErrInternal.Code, appErr.Code)
	require.Equal(t, http.StatusInternalServerError, appErr.Status)
	require.ErrorIs(t, appErr, sql.ErrConnDone)
}

func TestCloneKeepsIdentity(t *testing.T) {
	cloned := Clone(ErrNotEligible, "priority dataset is already assigned")
	require.Equal(t, "priority dataset is already assigned", cloned.Message)
	require.True(t, errors.Is(cloned, ErrNotEligible))
	require.False(t, errors.Is(cloned, ErrConflict))
	require.Equal(t, "operation not allowed in the current state", ErrNotEligible.Message)
}
