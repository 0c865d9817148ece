// internal/supervisor/health.go
package supervisor

import "time"

// State is the device lifecycle state exposed to consumers.
type State string

const (
	// StateConnecting: a connection attempt is in progress.
	StateConnecting State = "connecting"
	// StatePolling: connected, samples are flowing.
	StatePolling State = "polling"
	// StateDegraded: the last attempt failed; a retry is scheduled.
	StateDegraded State = "degraded"
	// StateDisconnected: retries exhausted or shutdown; no retry scheduled.
	StateDisconnected State = "disconnected"
)

// Health is the last known condition of one device.
// It carries no logic and no memory of the past beyond current state.
type Health struct {
	Device    string     `json:"device"`
	State     State      `json:"state"`
	LastError string     `json:"last_error,omitempty"`
	Attempts  int        `json:"attempts,omitempty"` // consecutive failed connect attempts
	RetryAt   *time.Time `json:"retry_at,omitempty"` // set while degraded
	UpdatedAt time.Time  `json:"updated_at"`
}

// Label renders the state with its error for one-line status displays.
func (h Health) Label() string {
	if h.LastError != "" && h.State != StatePolling {
		return string(h.State) + ": " + h.LastError
	}
	return string(h.State)
}
