package cache

import (
	"context"
	"time"

	"pricedesk/backend/internal/domain"
)

type DictionaryCache interface {
	Get(ctx context.Context, key string) (*domain.FormDictionaries, bool, error)
	Set(ctx context.Context, key string, value *domain.FormDictionaries, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type NoopDictionaryCache struct{}

func (NoopDictionaryCache) Get(_ context.Context, _ string) (*domain.FormDictionaries, bool, error) {
	return nil, false, nil
}

func (NoopDictionaryCache) Set(_ context.Context, _ string, _ *domain.FormDictionaries, _ time.Duration) error {
	return nil
}

func (NoopDictionaryCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
