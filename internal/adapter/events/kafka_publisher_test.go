package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/domain"
	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/service"
)

type mockWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
	block    chan struct{}
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockWriter) sent() []kafka.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]kafka.Message(nil), m.messages...)
}

func TestKafkaPublisher_ForwardsLedgerChanges(t *testing.T) {
	writer := &mockWriter{}
	pub := NewKafkaPublisher(writer, 16, zap.NewNop())

	ledger := service.NewInventoryLedger(nil, zap.NewNop())
	unsubscribe := pub.Subscribe(ledger)
	defer unsubscribe()

	ctx := context.Background()
	_, err := ledger.Initialize(ctx, "A", 5)
	require.NoError(t, err)
	require.NoError(t, ledger.Deduct(ctx, "A", 2))

	require.NoError(t, pub.Close())

	msgs := writer.sent()
	require.Len(t, msgs, 2)
	assert.Equal(t, "A", string(msgs[1].Key))

	var event domain.InventoryEvent
	require.NoError(t, json.Unmarshal(msgs[1].Value, &event))
	assert.Equal(t, domain.EventInventoryUpdated, event.Type)
	assert.Equal(t, 3, event.Stock)
	assert.Equal(t, 5, event.Previous)
	assert.Equal(t, domain.StockDeducted, event.Reason)
	assert.Equal(t, domain.EventInventoryUpdated, string(msgs[1].Headers[0].Value))
	assert.True(t, writer.closed)
}

func TestKafkaPublisher_BufferFull(t *testing.T) {
	writer := &mockWriter{block: make(chan struct{})}
	pub := NewKafkaPublisher(writer, 1, zap.NewNop())
	ctx := context.Background()

	// first event is picked up by the worker and blocks in WriteMessages
	require.NoError(t, pub.PublishInventoryEvent(ctx, domain.InventoryEvent{ProductID: "A"}))
	assert.Eventually(t, func() bool { return len(pub.events) == 0 }, time.Second, time.Millisecond)

	require.NoError(t, pub.PublishInventoryEvent(ctx, domain.InventoryEvent{ProductID: "B"}))
	assert.ErrorIs(t, pub.PublishInventoryEvent(ctx, domain.InventoryEvent{ProductID: "C"}), ErrBufferFull)

	close(writer.block)
	require.NoError(t, pub.Close())
	assert.Len(t, writer.sent(), 2)
}

func TestKafkaPublisher_AfterClose(t *testing.T) {
	pub := NewKafkaPublisher(&mockWriter{}, 4, nil)
	require.NoError(t, pub.Close())
	require.NoError(t, pub.Close())

	err := pub.PublishInventoryEvent(context.Background(), domain.InventoryEvent{ProductID: "A"})
	assert.ErrorIs(t, err, ErrPublisherClosed)
}

func TestKafkaPublisher_WriteFailureLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	writer := &mockWriter{err: errors.New("broker unavailable")}
	pub := NewKafkaPublisher(writer, 4, zap.New(core))

	require.NoError(t, pub.PublishInventoryEvent(context.Background(), domain.InventoryEvent{ProductID: "A"}))
	require.NoError(t, pub.Close())

	entries := logs.FilterMessage("failed to publish inventory event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "A", entries[0].ContextMap()["product_id"])
}
