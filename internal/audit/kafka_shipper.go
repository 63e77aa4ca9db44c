// Package audit ships audit entries to Kafka alongside the database sink.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"citizen-kiosk/internal/data/entity"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the part of *kafka.Writer the shipper uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type ShipperConfig struct {
	Brokers       []string
	Topic         string
	QueueCapacity int
	BatchSize     int
	FlushEvery    time.Duration
	WriteTimeout  time.Duration
}

// KafkaShipper buffers entries in a bounded queue and writes them in batches
// from one goroutine. Entries are dropped when the queue is full.
type KafkaShipper struct {
	writer    MessageWriter
	ch        chan *entity.AuditLog
	batchSize int
	stop      chan struct{}
	done      chan struct{}
	once      sync.Once
	dropped   uint64
	failed    uint64
	mu        sync.Mutex
	log       *zap.Logger
}

func NewKafkaShipper(cfg ShipperConfig, log *zap.Logger) (*KafkaShipper, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka: no audit topic configured")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: false,
		Async:                  true,
		BatchTimeout:           cfg.FlushEvery,
		BatchSize:              cfg.BatchSize,
		WriteTimeout:           cfg.WriteTimeout,
	}

	shipper := NewShipperWithWriter(writer, cfg.QueueCapacity, cfg.BatchSize, log)
	// async deliveries report failures here
	writer.Completion = shipper.completed
	return shipper, nil
}

func NewShipperWithWriter(writer MessageWriter, queueCapacity, batchSize int, log *zap.Logger) *KafkaShipper {
	if queueCapacity <= 0 {
		queueCapacity = 1024
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &KafkaShipper{
		writer:    writer,
		ch:        make(chan *entity.AuditLog, queueCapacity),
		batchSize: batchSize,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		log:       log.With(zap.String("component", "audit_shipper")),
	}
}

func (s *KafkaShipper) Start() {
	go s.loop()
}

// Publish enqueues an *entity.AuditLog without blocking. Other values are ignored.
func (s *KafkaShipper) Publish(ev any) {
	entry, ok := ev.(*entity.AuditLog)
	if !ok || entry == nil {
		return
	}
	select {
	case s.ch <- entry:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	}
}

func (s *KafkaShipper) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Failed counts entries the broker did not accept.
func (s *KafkaShipper) Failed() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

// Stop drains what is already queued, then closes the writer.
func (s *KafkaShipper) Stop(ctx context.Context) error {
	s.once.Do(func() { close(s.stop) })

	select {
	case <-s.done:
	case <-ctx.Done():
		s.log.Warn("Audit shipper stopped before draining", zap.Int("pending", len(s.ch)))
	}

	return s.writer.Close()
}

func (s *KafkaShipper) loop() {
	defer close(s.done)
	for {
		select {
		case entry := <-s.ch:
			s.dispatch(s.collect(entry))
		case <-s.stop:
			for len(s.ch) > 0 {
				s.dispatch(s.collect(<-s.ch))
			}
			return
		}
	}
}

// collect adds whatever is already queued to first, up to batchSize entries.
func (s *KafkaShipper) collect(first *entity.AuditLog) []*entity.AuditLog {
	batch := []*entity.AuditLog{first}
	for len(batch) < s.batchSize {
		select {
		case entry := <-s.ch:
			batch = append(batch, entry)
		default:
			return batch
		}
	}
	return batch
}

func (s *KafkaShipper) dispatch(batch []*entity.AuditLog) {
	msgs := make([]kafka.Message, 0, len(batch))
	for _, entry := range batch {
		payload, err := json.Marshal(entry)
		if err != nil {
			s.log.Error("Failed to encode audit entry", zap.Error(err))
			continue
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(entry.ActorIdentifier),
			Value: payload,
			Time:  entry.Timestamp,
			Headers: []kafka.Header{
				{Key: "action", Value: []byte(entry.Action)},
				{Key: "severity", Value: []byte(entry.Severity)},
			},
		})
	}
	if len(msgs) == 0 {
		return
	}

	if err := s.writer.WriteMessages(context.Background(), msgs...); err != nil {
		s.completed(msgs, err)
	}
}

func (s *KafkaShipper) completed(msgs []kafka.Message, err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.failed += uint64(len(msgs))
	s.mu.Unlock()
	s.log.Error("Failed to ship audit entries",
		zap.Error(err),
		zap.Int("count", len(msgs)))
}
