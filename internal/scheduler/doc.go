// Package scheduler provides the cancellable delayed task the poller waits on
// between ticks.
//
// # Why Scheduler Exists
//
// A poll loop spends almost all of its life waiting. Keeping that wait behind
// a Clock lets the poller hold a handle to the pending task and drop it the
// moment the caller goes away, and lets tests replace wall-clock time with a
// Manual clock that records every requested delay.
//
// # Relationship with Other Components
//
//   - **Poller:** calls Wait between ticks, never sleeping directly.
//   - **Tests:** use Manual to observe intervals and to fire or hold tasks.
package scheduler
