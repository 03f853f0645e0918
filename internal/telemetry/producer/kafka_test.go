package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"fleet-provisioning/internal/telemetry/domain"
)

type fakeWriter struct {
	msgs     []kafka.Message
	writeErr error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.writeErr != nil {
		return w.writeErr
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

var _ Producer = (*KafkaProducer)(nil)

func TestNewKafkaProducer_Disabled(t *testing.T) {
	tests := []struct {
		name    string
		brokers []string
		topic   string
	}{
		{"no brokers", nil, "events"},
		{"no topic", []string{"localhost:9092"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewKafkaProducer(tt.brokers, tt.topic)
			if err != nil {
				t.Fatalf("NewKafkaProducer: %v", err)
			}
			if p != nil {
				t.Errorf("NewKafkaProducer = %v, want nil", p)
			}
			// nil producer is a no-op
			if err := p.Emit(context.Background(), &domain.Event{}); err != nil {
				t.Errorf("nil Emit = %v", err)
			}
			if err := p.Close(); err != nil {
				t.Errorf("nil Close = %v", err)
			}
		})
	}
}

func TestNewKafkaProducer_Enabled(t *testing.T) {
	p, err := NewKafkaProducer([]string{"localhost:9092"}, "events")
	if err != nil {
		t.Fatalf("NewKafkaProducer: %v", err)
	}
	if p == nil {
		t.Fatal("NewKafkaProducer returned nil")
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestKafkaProducer_Emit(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{writer: w, topic: "events"}
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := &domain.Event{
		ID:         "e1",
		CustomerID: "alice",
		EventType:  domain.EventProvisioningSucceeded,
		Source:     domain.SourceProvisioner,
		CreatedAt:  created,
	}

	if err := p.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("wrote %d messages, want 1", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "alice" {
		t.Errorf("key = %q, want %q", msg.Key, "alice")
	}
	if !msg.Time.Equal(created) {
		t.Errorf("time = %v, want %v", msg.Time, created)
	}
	var got domain.Event
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("unmarshal value: %v", err)
	}
	if got.CustomerID != "alice" || got.EventType != domain.EventProvisioningSucceeded {
		t.Errorf("value = %+v", got)
	}
}

func TestKafkaProducer_EmitError(t *testing.T) {
	w := &fakeWriter{writeErr: errors.New("broker unavailable")}
	p := &KafkaProducer{writer: w, topic: "events"}
	if err := p.Emit(context.Background(), &domain.Event{CustomerID: "alice"}); err == nil {
		t.Error("Emit should return the write error")
	}
}

func TestKafkaProducer_NilEventAndClose(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaProducer{writer: w, topic: "events"}
	if err := p.Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(nil) = %v", err)
	}
	if len(w.msgs) != 0 {
		t.Errorf("wrote %d messages for nil event", len(w.msgs))
	}
	if err := p.Close(); err != nil || !w.closed {
		t.Errorf("Close = %v, closed = %v", err, w.closed)
	}
}
