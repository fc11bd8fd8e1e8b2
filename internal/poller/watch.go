package poller

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/specialistvlad/simgridgo/internal/ctxlog"
	"github.com/specialistvlad/simgridgo/internal/job"
)

// WatchObserver is an Observer that also learns which job it is looking at.
type WatchObserver func(id string, snap job.Snapshot) (abort bool)

// Watch polls every id in its own session, at most Config.MaxConcurrent at a
// time, and returns the outcomes in the order of ids. Sessions are
// independent: one failing does not stop the others.
func (p *Poller) Watch(ctx context.Context, observe WatchObserver, ids ...string) []Outcome {
	outcomes := make([]Outcome, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MaxConcurrent)
	for i, id := range ids {
		g.Go(func() error {
			var obs Observer
			if observe != nil {
				obs = func(s job.Snapshot) bool { return observe(id, s) }
			}
			outcomes[i] = p.Run(ctxlog.With(gctx, "watch_index", i), id, obs)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}
