package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/specialistvlad/simgridgo/internal/ctxlog"
	"github.com/specialistvlad/simgridgo/internal/job"
	"github.com/specialistvlad/simgridgo/internal/scheduler"
	"github.com/specialistvlad/simgridgo/internal/transport"
)

// JobAPI is the subset of the job client a poller needs.
type JobAPI interface {
	Submit(ctx context.Context, spec any) (job.Ref, error)
	Status(ctx context.Context, id string) (job.Snapshot, error)
	Cancel(ctx context.Context, id string) error
}

// Observer sees every pending snapshot. Returning true asks the service to
// abort the job; polling continues regardless.
type Observer func(job.Snapshot) (abort bool)

// Poller runs poll sessions against a JobAPI.
type Poller struct {
	api   JobAPI
	cfg   Config
	clock scheduler.Clock
}

// New creates a Poller. A nil clock means the wall clock.
func New(api JobAPI, cfg Config, clock scheduler.Clock) (*Poller, error) {
	if api == nil {
		return nil, fmt.Errorf("poller: job api is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Statuses.Pending == nil && cfg.Statuses.Succeeded == nil && cfg.Statuses.Failed == nil {
		cfg.Statuses = job.DefaultStatusSet()
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if clock == nil {
		clock = scheduler.System()
	}
	return &Poller{api: api, cfg: cfg, clock: clock}, nil
}

// Config returns the effective configuration.
func (p *Poller) Config() Config {
	return p.cfg
}

// Run polls job id until it reaches a terminal state and returns the outcome.
// It blocks; the first status query happens immediately.
func (p *Poller) Run(ctx context.Context, id string, observe Observer) Outcome {
	logger := ctxlog.FromContext(ctx).With("job_id", id)
	s := &session{
		p:       p,
		id:      id,
		observe: observe,
		backoff: p.cfg.newBackOff(p.clock),
		start:   p.clock.Now(),
	}
	s.interval = s.backoff.NextBackOff()
	out := s.loop(ctx)
	logger.Debug("Poll session ended.", "state", out.State, "ticks", out.Ticks)
	return out
}

// session is the state of one Run. It is confined to the calling goroutine.
type session struct {
	p              *Poller
	id             string
	observe        Observer
	backoff        *backoff.ExponentialBackOff
	interval       time.Duration
	start          time.Time
	abortRequested bool
	ticks          int
	last           job.Snapshot
}

func (s *session) loop(ctx context.Context) Outcome {
	logger := ctxlog.FromContext(ctx).With("job_id", s.id)
	for {
		snap, err := s.p.api.Status(ctx, s.id)
		if err != nil {
			if ctx.Err() != nil {
				return s.outcome(StateDetached, ctx.Err())
			}
			if transport.IsRateLimited(err) {
				logger.Debug("Status query rate limited, retrying after the same interval.", "interval", s.interval)
				if out, done := s.wait(ctx, s.interval); done {
					return out
				}
				continue
			}
			return s.outcome(StateFailed, fmt.Errorf("query status of job %s: %w", s.id, err))
		}
		s.last = snap

		switch s.p.cfg.Statuses.Classify(snap.Status) {
		case job.PhaseSucceeded:
			return s.outcome(StateFinished, nil)
		case job.PhaseFailed:
			if s.abortRequested {
				return s.outcome(StateCanceled, fmt.Errorf("%w: %w", ErrCancellationRequested, job.NewServiceFailure(snap)))
			}
			return s.outcome(StateFailed, job.NewServiceFailure(snap))
		case job.PhasePending:
			s.ticks++
			logger.Debug("Job pending.", "status", snap.Status, "tick", s.ticks, "interval", s.interval)
			if s.observe != nil && s.observe(snap) && !s.abortRequested {
				s.abortRequested = true
				s.requestCancel(ctx)
			}
			s.interval = s.backoff.NextBackOff()
			if out, done := s.wait(ctx, s.interval); done {
				return out
			}
		default:
			return s.outcome(StateFailed, fmt.Errorf("job %s: %w %q", s.id, ErrUnknownStatus, snap.Status))
		}
	}
}

// requestCancel sends the one cancel request of a session. Its result never
// changes the outcome.
func (s *session) requestCancel(ctx context.Context) {
	logger := ctxlog.FromContext(ctx).With("job_id", s.id)
	logger.Info("Abort requested, sending cancel request.")
	if err := s.p.api.Cancel(ctx, s.id); err != nil {
		logger.Warn("Cancel request failed, continuing to poll.", "error", err)
	}
}

// wait sleeps for d, clipped to the remaining budget. It reports done with a
// terminal outcome when the context ended or the budget ran out.
func (s *session) wait(ctx context.Context, d time.Duration) (Outcome, bool) {
	timeout := s.p.cfg.Timeout
	budgetHit := false
	if timeout > 0 {
		remaining := timeout - s.p.clock.Now().Sub(s.start)
		if remaining <= 0 {
			return s.outcome(StateTimeout, ErrTimeout), true
		}
		if d >= remaining {
			d = remaining
			budgetHit = true
		}
	}
	if err := scheduler.Wait(ctx, s.p.clock, d); err != nil {
		return s.outcome(StateDetached, err), true
	}
	if budgetHit {
		return s.outcome(StateTimeout, ErrTimeout), true
	}
	return Outcome{}, false
}

func (s *session) outcome(state State, err error) Outcome {
	return Outcome{
		State:          state,
		Snapshot:       s.last,
		Err:            err,
		AbortRequested: s.abortRequested,
		Ticks:          s.ticks,
	}
}
