package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/simgridgo/internal/ctxlog"
	"github.com/specialistvlad/simgridgo/internal/job"
)

// Handlers receive the events of a background session. Exactly one terminal
// handler fires per session; nil handlers are skipped.
type Handlers struct {
	OnPollTick       func(job.Snapshot) (abort bool)
	OnFinished       func(job.Snapshot)
	OnFailed         func(job.Snapshot, *job.ServiceFailure)
	OnTransportError func(error)
	// OnCanceled fires when the service reports failure after a local abort
	// request. When nil, OnFailed is used instead.
	OnCanceled func(job.Snapshot, *job.ServiceFailure)
	// OnTimeout fires when the session budget runs out.
	OnTimeout func(job.Snapshot)
	// OnDetached fires when the caller's context ended first.
	OnDetached func(error)
}

// Session is a handle on a poll running in the background.
type Session struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	out Outcome
}

// Done is closed once the session ended and its terminal handler returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Stop detaches from the session. The remote job is not canceled.
func (s *Session) Stop() {
	s.cancel()
}

// Wait blocks until the session ends and returns its outcome.
func (s *Session) Wait() Outcome {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out
}

// Start polls job id in a new goroutine and reports through h.
func (p *Poller) Start(ctx context.Context, id string, h Handlers) *Session {
	return p.spawn(ctx, h, func(ctx context.Context) Outcome {
		return p.Run(ctx, id, h.OnPollTick)
	})
}

// SubmitAndPoll submits spec and polls the resulting job in a new goroutine.
// A submission error is delivered through OnTransportError.
func (p *Poller) SubmitAndPoll(ctx context.Context, spec any, h Handlers) *Session {
	return p.spawn(ctx, h, func(ctx context.Context) Outcome {
		ref, err := p.api.Submit(ctx, spec)
		if err != nil {
			if ctx.Err() != nil {
				return Outcome{State: StateDetached, Err: ctx.Err()}
			}
			return Outcome{State: StateFailed, Err: fmt.Errorf("submit job: %w", err)}
		}
		ctxlog.FromContext(ctx).Debug("Polling submitted job.", "job_id", ref.ID)
		return p.Run(ctx, ref.ID, h.OnPollTick)
	})
}

func (p *Poller) spawn(ctx context.Context, h Handlers, run func(context.Context) Outcome) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		defer cancel()
		out := run(ctx)
		s.mu.Lock()
		s.out = out
		s.mu.Unlock()
		Dispatch(out, h)
	}()
	return s
}

// Dispatch delivers out to the matching terminal handler.
func Dispatch(out Outcome, h Handlers) {
	switch out.State {
	case StateFinished:
		if h.OnFinished != nil {
			h.OnFinished(out.Snapshot)
		}
	case StateCanceled:
		failure, _ := out.ServiceFailure()
		switch {
		case h.OnCanceled != nil:
			h.OnCanceled(out.Snapshot, failure)
		case h.OnFailed != nil:
			h.OnFailed(out.Snapshot, failure)
		}
	case StateFailed:
		if failure, ok := out.ServiceFailure(); ok {
			if h.OnFailed != nil {
				h.OnFailed(out.Snapshot, failure)
			}
			return
		}
		if h.OnTransportError != nil {
			h.OnTransportError(out.Err)
		}
	case StateTimeout:
		if h.OnTimeout != nil {
			h.OnTimeout(out.Snapshot)
		}
	case StateDetached:
		if h.OnDetached != nil {
			h.OnDetached(out.Err)
		}
	}
}

// IsServiceFailure reports whether err carries a service-reported failure.
func IsServiceFailure(err error) bool {
	var f *job.ServiceFailure
	return errors.As(err, &f)
}
