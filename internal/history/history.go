package history

import (
	"context"
	"time"

	"github.com/loykin/storegw/internal/storenode"
)

// EventType is the kind of lifecycle event.
type EventType string

const (
	EventApply   EventType = "apply"
	EventStart   EventType = "start"
	EventStop    EventType = "stop"
	EventRestart EventType = "restart"
)

// Event is one lifecycle event for export to external analytics systems.
type Event struct {
	Type       EventType          `json:"type"`
	OccurredAt time.Time          `json:"occurred_at"`
	Node       string             `json:"node"`
	RunState   storenode.RunState `json:"run_state"`
	PID        int                `json:"pid"`
	Argv       string             `json:"argv,omitempty"`
	ExitErr    string             `json:"exit_err,omitempty"`
}

// Sink is a destination for history events. Implementations must be safe for
// concurrent use; delivery is best-effort and never blocks convergence.
type Sink interface {
	Send(ctx context.Context, e Event) error
}
