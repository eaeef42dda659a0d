package process

import (
	"time"

	"github.com/loykin/storegw/internal/storenode"
)

// Status is the observed state of the supervised store node.
type Status struct {
	Name      string             `json:"name"`
	RunState  storenode.RunState `json:"run_state"`
	Running   bool               `json:"running"`
	PID       int                `json:"pid"`
	StartedAt time.Time          `json:"started_at"`
	StoppedAt time.Time          `json:"stopped_at"`
	ExitErr   string             `json:"exit_error,omitempty"`
	Restarts  int                `json:"restarts"`
}
