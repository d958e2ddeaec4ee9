package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/satudata-api/pkg/slug"
)

const (
	slugSuffixAttempts = 5
	slugTokenLength    = 8
)

type slugStore interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// SlugAllocator derives unique catalog slugs from human titles.
type SlugAllocator struct {
	store  slugStore
	logger *zap.Logger
	token  func() string
}

// NewSlugAllocator constructs the allocator.
func NewSlugAllocator(store slugStore, logger *zap.Logger) *SlugAllocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlugAllocator{store: store, logger: logger, token: randomSlugToken}
}

// Allocate returns the first free candidate among base, base-1 .. base-4.
// When all collide or the store cannot be queried, it returns base plus a
// random token without checking again.
func (a *SlugAllocator) Allocate(ctx context.Context, source string) string {
	base := slug.Normalize(source)
	if base == "" {
		return a.token()
	}
	for attempt := 0; attempt < slugSuffixAttempts; attempt++ {
		candidate := base
		if attempt > 0 {
			candidate = fmt.Sprintf("%s-%d", base, attempt)
		}
		exists, err := a.store.SlugExists(ctx, candidate)
		if err != nil {
			a.logger.Warn("slug lookup failed, using random suffix", zap.String("candidate", candidate), zap.Error(err))
			break
		}
		if !exists {
			return candidate
		}
	}
	return a.Fallback(base)
}

// Fallback appends a random token to base.
func (a *SlugAllocator) Fallback(base string) string {
	if base == "" {
		return a.token()
	}
	return base + "-" + a.token()
}

func randomSlugToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:slugTokenLength]
}
