package poller

import (
	"errors"

	"github.com/specialistvlad/simgridgo/internal/job"
)

// State is the state of a poll session.
type State int

const (
	StatePolling State = iota
	StateFinished
	StateFailed
	StateCanceled
	StateTimeout
	StateDetached
)

func (s State) String() string {
	switch s {
	case StatePolling:
		return "POLLING"
	case StateFinished:
		return "FINISHED"
	case StateFailed:
		return "FAILED"
	case StateCanceled:
		return "CANCELED"
	case StateTimeout:
		return "TIMEOUT"
	case StateDetached:
		return "DETACHED"
	default:
		return "UNKNOWN"
	}
}

var (
	// ErrCancellationRequested marks outcomes of sessions whose observer asked
	// to abort. It is informational: the terminal state still comes from the
	// service.
	ErrCancellationRequested = errors.New("cancellation requested")

	// ErrTimeout is returned when a session exceeds its configured budget.
	ErrTimeout = errors.New("poll session timed out")

	// ErrUnknownStatus is returned when the service reports a status outside
	// the configured status set.
	ErrUnknownStatus = errors.New("unknown job status")
)

// Outcome is the result of one poll session. Err is nil only for
// StateFinished. For StateFailed it is either a *job.ServiceFailure or a
// transport-level error; errors.As tells them apart.
type Outcome struct {
	State          State
	Snapshot       job.Snapshot
	Err            error
	AbortRequested bool
	Ticks          int
}

// ServiceFailure returns the service-reported failure, if that is what ended
// the session.
func (o Outcome) ServiceFailure() (*job.ServiceFailure, bool) {
	var f *job.ServiceFailure
	if errors.As(o.Err, &f) {
		return f, true
	}
	return nil, false
}
