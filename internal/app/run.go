package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/specialistvlad/simgridgo/internal/hclgraph"
	"github.com/specialistvlad/simgridgo/internal/job"
	"github.com/specialistvlad/simgridgo/internal/poller"
)

// PollOptions control a blocking poll from the command line.
type PollOptions struct {
	// AbortAfter asks the service to cancel the job once this many pending
	// ticks were observed. Zero never aborts.
	AbortAfter int
	// Quiet suppresses the per-tick progress lines.
	Quiet bool
}

// observer prints progress and requests an abort after opts.AbortAfter ticks.
func (a *App) observer(opts PollOptions) poller.Observer {
	ticks := 0
	return func(snap job.Snapshot) bool {
		ticks++
		if !opts.Quiet {
			printProgress(a.outW, snap)
		}
		return opts.AbortAfter > 0 && ticks >= opts.AbortAfter
	}
}

// RunGraph loads a job graph from paths, submits it as one batch and waits
// for it. On success the terminal node's result is printed.
func (a *App) RunGraph(ctx context.Context, paths []string, opts PollOptions) error {
	ctx = a.withLogger(ctx)
	a.logger.Debug("App.RunGraph started.", "paths", paths)

	g, err := hclgraph.Load(ctx, paths...)
	if err != nil {
		return fmt.Errorf("failed to load job graph: %w", err)
	}
	a.logger.Info("Job graph loaded.", "materials", len(g.Batch.Materials), "nodes", len(g.Batch.Nodes), "terminal", g.Terminal)

	ref, err := a.jobs.SubmitGraph(ctx, g)
	if err != nil {
		return fmt.Errorf("failed to submit job graph: %w", err)
	}
	fmt.Fprintf(a.outW, "submitted job %s (terminal node %s)\n", ref.ID, g.Terminal)

	out := a.poller.Run(ctx, ref.ID, a.observer(opts))
	printOutcome(a.outW, ref.ID, out)
	if out.State != poller.StateFinished {
		return outcomeError(out)
	}

	result, err := job.NodeResult(out.Snapshot, g.Terminal)
	if err != nil {
		a.logger.Warn("Result has no entry for the terminal node, printing the full result.", "error", err)
		result = out.Snapshot.Result
	}
	if len(result) == 0 {
		return nil
	}
	return printJSON(a.outW, result)
}

// Submit sends the spec stored in specPath. With wait set it polls the job
// like RunGraph does.
func (a *App) Submit(ctx context.Context, specPath string, wait bool, opts PollOptions) error {
	ctx = a.withLogger(ctx)
	spec, err := loadSpecFile(specPath)
	if err != nil {
		return err
	}
	ref, err := a.jobs.Submit(ctx, spec)
	if err != nil {
		return fmt.Errorf("failed to submit job: %w", err)
	}
	fmt.Fprintf(a.outW, "submitted job %s\n", ref.ID)
	if !wait {
		return nil
	}

	out := a.poller.Run(ctx, ref.ID, a.observer(opts))
	printOutcome(a.outW, ref.ID, out)
	if err := outcomeError(out); err != nil {
		return err
	}
	if len(out.Snapshot.Result) > 0 {
		return printJSON(a.outW, out.Snapshot.Result)
	}
	return nil
}

// Status fetches every id concurrently and prints one table row per job.
func (a *App) Status(ctx context.Context, ids []string) error {
	ctx = a.withLogger(ctx)
	snaps := make([]job.Snapshot, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			s, err := a.jobs.Status(gctx, id)
			if err != nil {
				return fmt.Errorf("failed to query job %s: %w", id, err)
			}
			snaps[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return printSnapshots(a.outW, snaps)
}

// Cancel requests cancellation of job id. The service decides whether it
// applies; use Watch to see the final state.
func (a *App) Cancel(ctx context.Context, id string) error {
	ctx = a.withLogger(ctx)
	if err := a.jobs.Cancel(ctx, id); err != nil {
		return fmt.Errorf("failed to cancel job %s: %w", id, err)
	}
	fmt.Fprintf(a.outW, "cancellation requested for job %s\n", id)
	return nil
}

// Watch polls every id until all reached a terminal state and prints a
// summary table. The returned error joins every non-successful outcome.
func (a *App) Watch(ctx context.Context, ids []string, opts PollOptions) error {
	ctx = a.withLogger(ctx)
	var mu sync.Mutex
	counts := make(map[string]int, len(ids))
	observe := func(id string, snap job.Snapshot) bool {
		mu.Lock()
		defer mu.Unlock()
		counts[id]++
		if !opts.Quiet {
			printProgress(a.outW, snap)
		}
		return opts.AbortAfter > 0 && counts[id] >= opts.AbortAfter
	}
	outs := a.poller.Watch(ctx, observe, ids...)
	if err := printOutcomes(a.outW, ids, outs); err != nil {
		return err
	}

	var errs []error
	for i, out := range outs {
		if err := outcomeError(out); err != nil {
			errs = append(errs, fmt.Errorf("job %s: %w", ids[i], err))
		}
	}
	return errors.Join(errs...)
}
