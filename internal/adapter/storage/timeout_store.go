package storage

import (
	"context"
	"time"

	"github.com/barninzuniversity/DropAi-V2-sub000/internal/port"
)

// TimeoutStore bounds every call so a slow backend cannot hold the ledger or
// cart lock indefinitely.
type TimeoutStore struct {
	next    port.StateStore
	timeout time.Duration
}

func NewTimeoutStore(next port.StateStore, timeout time.Duration) *TimeoutStore {
	return &TimeoutStore{next: next, timeout: timeout}
}

func (s *TimeoutStore) Load(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.Load(ctx, key)
}

func (s *TimeoutStore) Save(ctx context.Context, key string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.Save(ctx, key, data)
}
