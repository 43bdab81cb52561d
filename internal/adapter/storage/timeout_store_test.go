package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type slowStore struct{}

func (slowStore) Load(ctx context.Context, key string) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowStore) Save(ctx context.Context, key string, data []byte) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestTimeoutStore(t *testing.T) {
	store := NewTimeoutStore(slowStore{}, 20*time.Millisecond)

	start := time.Now()
	err := store.Save(context.Background(), "k", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)

	_, err = store.Load(context.Background(), "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
