package telemetry

import (
	"context"
	"log"
	"time"

	"crewdesk/internal/telemetry/domain"
)

// emitTimeout is the max time allowed for a single async emit. Used by
// EmitAsync and by ShutdownDrainDuration.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait after the HTTP server drains
// before shutting down OTel providers and the event producer, so in-flight
// async emits have time to complete. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// EmitAsync runs Emit in a goroutine with a short timeout so the caller is not
// blocked. Use from request handlers for fire-and-forget, best-effort events;
// errors are logged.
//
// emitter and event may be nil; EmitAsync returns immediately without starting
// a goroutine. The goroutine uses context.Background() with emitTimeout so
// request cancellation does not abort an in-flight emit; that is why EmitAsync
// takes no context.
func EmitAsync(emitter EventEmitter, event *domain.AuthEvent) {
	if emitter == nil || event == nil {
		return
	}
	go func() {
		emitCtx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(emitCtx, event); err != nil {
			log.Printf("telemetry: async emit failed: %v", err)
		}
	}()
}
