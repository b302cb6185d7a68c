// Package telemetry emits auth activity events to the event stream.
package telemetry

import (
	"context"
	"errors"

	"crewdesk/internal/telemetry/domain"
)

// EventEmitter emits auth events. Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.AuthEvent) error
}

// Multi returns an EventEmitter that fans every event out to all of emitters.
// Nil entries are skipped. Every emitter is attempted even when an earlier one
// fails; the joined errors are returned.
func Multi(emitters ...EventEmitter) EventEmitter {
	kept := make([]EventEmitter, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			kept = append(kept, e)
		}
	}
	return multiEmitter(kept)
}

type multiEmitter []EventEmitter

func (m multiEmitter) Emit(ctx context.Context, event *domain.AuthEvent) error {
	var errs []error
	for _, e := range m {
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
