package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"fleet-provisioning/internal/telemetry"
	"fleet-provisioning/internal/telemetry/domain"
)

const loggerName = "fleet-provisioning.telemetry"

// RecordEmitter is the part of otellog.Logger used by the event emitter.
type RecordEmitter interface {
	Emit(ctx context.Context, record otellog.Record)
}

// NewEventEmitter returns an EventEmitter that sends events as OTel log records via the given LoggerProvider.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return NewEventEmitterWithLogger(provider.Logger(loggerName))
}

// NewEventEmitterWithLogger returns an EventEmitter writing to logger directly.
func NewEventEmitterWithLogger(logger RecordEmitter) telemetry.EventEmitter {
	if logger == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *domain.Event) error { return nil }

type otelEmitter struct {
	logger RecordEmitter
}

// Emit converts the event to an OTel log record and emits it. Failed runs are logged at ERROR, everything else at INFO.
func (e *otelEmitter) Emit(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	ts := event.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec.SetTimestamp(ts)
	rec.SetObservedTimestamp(time.Now().UTC())
	if event.EventType == domain.EventProvisioningFailed {
		rec.SetSeverity(otellog.SeverityError)
		rec.SetSeverityText("ERROR")
	} else {
		rec.SetSeverity(otellog.SeverityInfo)
		rec.SetSeverityText("INFO")
	}
	if len(event.Metadata) > 0 {
		rec.SetBody(otellog.BytesValue(event.Metadata))
	}
	for _, kv := range []struct{ key, value string }{
		{"event_id", event.ID},
		{"customer_id", event.CustomerID},
		{"run_id", event.RunID},
		{"event_type", event.EventType},
		{"source", event.Source},
		{"step", event.Step},
		{"error", event.Error},
	} {
		if kv.value != "" {
			rec.AddAttributes(otellog.String(kv.key, kv.value))
		}
	}
	if event.ItemID != 0 {
		rec.AddAttributes(otellog.Int64("item_id", event.ItemID))
	}
	e.logger.Emit(ctx, rec)
	return nil
}
