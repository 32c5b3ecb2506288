package sim

import (
	"reflect"

	"github.com/go-logr/logr"
)

// A Namer is anything that has a name, usually a component handling events.
type Namer interface {
	Name() string
}

// EventLogger is an hook that prints the event information
type EventLogger struct {
	logger logr.Logger
	level  int
}

// NewEventLogger returns a new EventLogger that writes to the logger at the
// given verbosity level.
func NewEventLogger(logger logr.Logger, level int) *EventLogger {
	return &EventLogger{
		logger: logger,
		level:  level,
	}
}

// Func writes the event information into the logger
func (h *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	l := h.logger.V(h.level)
	if !l.Enabled() {
		return
	}

	kv := []any{
		"time", float64(ctx.Now),
		"type", reflect.TypeOf(evt).String(),
	}

	if comp, ok := evt.Handler().(Namer); ok {
		kv = append(kv, "handler", comp.Name())
	}

	l.Info("event", kv...)
}
