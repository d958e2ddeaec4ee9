package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/satudata-api/internal/models"
	appErrors "github.com/noah-isme/satudata-api/pkg/errors"
)

func TestPriorityAuditAppendDefaultsActor(t *testing.T) {
	store := &auditStoreStub{}
	svc := NewPriorityAuditService(store, nil)

	require.NoError(t, svc.Append(context.Background(), &models.PriorityAuditEntry{Action: "archive"}))
	require.Len(t, store.entries, 1)
	assert.Equal(t, models.SystemActorID, store.entries[0].ActorID)
	assert.Equal(t, models.PriorityAuditAction("archive"), store.entries[0].Action)
}

func TestPriorityAuditAppendRequiresAction(t *testing.T) {
	svc := NewPriorityAuditService(&auditStoreStub{}, nil)
	require.ErrorIs(t, svc.Append(context.Background(), &models.PriorityAuditEntry{ActorID: "U1"}), appErrors.ErrValidation)
	require.ErrorIs(t, svc.Append(context.Background(), nil), appErrors.ErrValidation)
}

func TestPriorityAuditListNeverNil(t *testing.T) {
	entries, err := NewPriorityAuditService(&auditStoreStub{}, nil).List(context.Background(), models.PriorityAuditFilter{})
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestPriorityAuditListMalformedDatasetID(t *testing.T) {
	store := &auditStoreStub{}
	svc := NewPriorityAuditService(store, nil)
	legacy := "D1"
	require.NoError(t, svc.Append(context.Background(), &models.PriorityAuditEntry{PriorityDatasetID: &legacy, Action: models.PriorityAuditReset, ActorID: "U1"}))

	entries, err := svc.List(context.Background(), models.PriorityAuditFilter{PriorityDatasetID: legacy})
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}
