package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/satudata-api/internal/models"
	appErrors "github.com/noah-isme/satudata-api/pkg/errors"
)

// APIKeyPrefixLength is the number of leading characters stored in clear for lookup.
const APIKeyPrefixLength = 8

type apiKeyStore interface {
	FindAPIKeyByPrefix(ctx context.Context, prefix string) (*models.APIKey, error)
	TouchAPIKey(ctx context.Context, id string, at time.Time) error
}

// APIKeyService verifies public API keys.
type APIKeyService struct {
	store  apiKeyStore
	logger *zap.Logger
	now    func() time.Time
}

// NewAPIKeyService constructs the service.
func NewAPIKeyService(store apiKeyStore, logger *zap.Logger) *APIKeyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIKeyService{store: store, logger: logger, now: time.Now}
}

// Verify returns the active key matching raw, or ErrUnauthorized.
func (s *APIKeyService) Verify(ctx context.Context, raw string) (*models.APIKey, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) <= APIKeyPrefixLength {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid api key")
	}
	key, err := s.store.FindAPIKeyByPrefix(ctx, raw[:APIKeyPrefixLength])
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid api key")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify api key")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(key.Hash), []byte(raw)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid api key")
	}
	if err := s.store.TouchAPIKey(ctx, key.ID, s.now().UTC()); err != nil {
		s.logger.Warn("failed to record api key usage", zap.String("api_key_id", key.ID), zap.Error(err))
	}
	return key, nil
}

// HashAPIKey produces the bcrypt hash stored for a new key.
func HashAPIKey(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
