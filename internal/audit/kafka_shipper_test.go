package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"citizen-kiosk/internal/data/entity"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	calls    []int
	closed   bool
	block    chan struct{}
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.block != nil {
		<-w.block
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, len(msgs))
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) batches() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]int(nil), w.calls...)
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) snapshot() ([]kafka.Message, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.messages...), w.closed
}

func auditEntry(action entity.AuditAction) *entity.AuditLog {
	now := time.Now()
	return &entity.AuditLog{
		BaseSimple:      entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
		Action:          action,
		ActorIdentifier: "9000000001",
		Severity:        entity.SeverityInfo,
		Timestamp:       now,
	}
}

func TestKafkaShipper_ShipsAndDrainsOnStop(t *testing.T) {
	writer := &fakeWriter{}
	shipper := NewShipperWithWriter(writer, 16, 0, zap.NewNop())
	shipper.Start()

	shipper.Publish(auditEntry(entity.AuditLoginSuccess))
	shipper.Publish(auditEntry(entity.AuditPaymentSuccess))
	shipper.Publish("not an audit entry")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, shipper.Stop(ctx))

	messages, closed := writer.snapshot()
	assert.True(t, closed)
	require.Len(t, messages, 2)

	assert.Equal(t, []byte("9000000001"), messages[0].Key)
	assert.Equal(t, "action", messages[0].Headers[0].Key)
	assert.Equal(t, []byte(entity.AuditLoginSuccess), messages[0].Headers[0].Value)

	var decoded entity.AuditLog
	require.NoError(t, json.Unmarshal(messages[1].Value, &decoded))
	assert.Equal(t, entity.AuditPaymentSuccess, decoded.Action)
}

func TestKafkaShipper_DropsWhenFull(t *testing.T) {
	writer := &fakeWriter{block: make(chan struct{})}
	shipper := NewShipperWithWriter(writer, 1, 0, zap.NewNop())

	// Not started: the queue holds one entry, the rest are dropped
	shipper.Publish(auditEntry(entity.AuditOTPSent))
	shipper.Publish(auditEntry(entity.AuditOTPSent))
	shipper.Publish(auditEntry(entity.AuditOTPSent))

	assert.Equal(t, uint64(2), shipper.Dropped())

	shipper.Start()
	close(writer.block)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, shipper.Stop(ctx))

	messages, _ := writer.snapshot()
	assert.Len(t, messages, 1)
}

func TestKafkaShipper_WritesQueuedEntriesTogether(t *testing.T) {
	tests := []struct {
		name      string
		batchSize int
		want      []int
	}{
		{name: "one write for the backlog", batchSize: 10, want: []int{5}},
		{name: "capped by batch size", batchSize: 2, want: []int{2, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer := &fakeWriter{}
			shipper := NewShipperWithWriter(writer, 16, tt.batchSize, zap.NewNop())

			for i := 0; i < 5; i++ {
				shipper.Publish(auditEntry(entity.AuditOTPSent))
			}
			shipper.Start()

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			require.NoError(t, shipper.Stop(ctx))

			assert.Equal(t, tt.want, writer.batches())
			messages, _ := writer.snapshot()
			assert.Len(t, messages, 5)
		})
	}
}

func TestKafkaShipper_CountsFailedWrites(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	writer := &fakeWriter{err: errors.New("broker unavailable")}
	shipper := NewShipperWithWriter(writer, 16, 10, zap.New(core))

	shipper.Publish(auditEntry(entity.AuditPaymentSuccess))
	shipper.Publish(auditEntry(entity.AuditPaymentFailed))
	shipper.Publish(auditEntry(entity.AuditLoginSuccess))
	shipper.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, shipper.Stop(ctx))

	assert.Equal(t, uint64(3), shipper.Failed())
	entries := logs.FilterMessage("Failed to ship audit entries").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(3), entries[0].ContextMap()["count"])
}

func TestNewKafkaShipper_RequiresBrokersAndTopic(t *testing.T) {
	_, err := NewKafkaShipper(ShipperConfig{Topic: "kiosk.audit"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewKafkaShipper(ShipperConfig{Brokers: []string{"localhost:9092"}}, zap.NewNop())
	assert.Error(t, err)

	shipper, err := NewKafkaShipper(ShipperConfig{Brokers: []string{"localhost:9092"}, Topic: "kiosk.audit"}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, shipper)

	writer, ok := shipper.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.True(t, writer.Async)
	assert.NotNil(t, writer.Completion)
	assert.Equal(t, 100, shipper.batchSize)
}
