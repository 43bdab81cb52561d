package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/domain"
)

const defaultBufferSize = 1024

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ChangeSource is anything that reports inventory changes, usually the ledger.
type ChangeSource interface {
	OnChange(fn func(domain.InventoryEvent)) (unsubscribe func())
}

// KafkaPublisher forwards inventory events to a topic keyed by product ID.
// Ledger callbacks only enqueue; a single goroutine does the network writes.
type KafkaPublisher struct {
	writer  MessageWriter
	logger  *zap.Logger
	timeout time.Duration

	events chan domain.InventoryEvent
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
	}
}

func NewKafkaPublisher(writer MessageWriter, bufferSize int, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	p := &KafkaPublisher{
		writer:  writer,
		logger:  logger,
		timeout: 5 * time.Second,
		events:  make(chan domain.InventoryEvent, bufferSize),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Subscribe registers the publisher on source and returns the unsubscribe func.
func (p *KafkaPublisher) Subscribe(source ChangeSource) func() {
	return source.OnChange(func(e domain.InventoryEvent) {
		if err := p.PublishInventoryEvent(context.Background(), e); err != nil {
			p.logger.Warn("inventory event dropped", zap.String("product_id", e.ProductID), zap.Error(err))
		}
	})
}

// PublishInventoryEvent queues the event without blocking.
func (p *KafkaPublisher) PublishInventoryEvent(_ context.Context, event domain.InventoryEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.events <- event:
		return nil
	default:
		return ErrBufferFull
	}
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for event := range p.events {
		if err := p.write(event); err != nil {
			p.logger.Error("failed to publish inventory event",
				zap.String("product_id", event.ProductID),
				zap.Int("stock", event.Stock),
				zap.Error(err))
		}
	}
}

func (p *KafkaPublisher) write(event domain.InventoryEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ProductID),
		Value: payload,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	})
}

// Close drains queued events and closes the writer. Safe to call twice.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()

	<-p.done
	return p.writer.Close()
}
