package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"crewdesk/internal/telemetry"
	"crewdesk/internal/telemetry/domain"
)

// recordLogger is the subset of otellog.Logger the emitter uses; tests
// substitute a capture.
type recordLogger interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewEventEmitter returns an EventEmitter that sends auth events as OTel log
// records via the given LoggerProvider. If provider is nil, returns a no-op
// emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return NewEventEmitterWithLogger(provider.Logger("crewdesk.auth"))
}

// NewEventEmitterWithLogger returns an EventEmitter over an explicit logger.
func NewEventEmitterWithLogger(logger recordLogger) telemetry.EventEmitter {
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *domain.AuthEvent) error { return nil }

type otelEmitter struct {
	logger recordLogger
}

// Emit converts the auth event to an OTel log record and emits it.
// Best-effort; it never returns an error.
func (e *otelEmitter) Emit(ctx context.Context, event *domain.AuthEvent) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	if !event.At.IsZero() {
		rec.SetTimestamp(event.At)
	} else {
		rec.SetTimestamp(time.Now().UTC())
	}
	if event.Type != "" {
		rec.SetBody(otellog.StringValue(event.Type))
		rec.AddAttributes(otellog.String("event_type", event.Type))
	}
	if event.TenantID != "" {
		rec.AddAttributes(otellog.String("tenant_id", event.TenantID))
	}
	if event.IdentityID != "" {
		rec.AddAttributes(otellog.String("identity_id", event.IdentityID))
	}
	if event.SessionID != "" {
		rec.AddAttributes(otellog.String("session_id", event.SessionID))
	}
	if event.IP != "" {
		rec.AddAttributes(otellog.String("ip", event.IP))
	}
	if event.UserAgent != "" {
		rec.AddAttributes(otellog.String("user_agent", event.UserAgent))
	}
	e.logger.Emit(ctx, rec)
	return nil
}
