// Package poller drives a submitted job to a terminal state.
//
// # How It Works
//
// A poll session is a strictly sequential loop:
//
//	POLLING ──> FINISHED   service reported a success status
//	        ──> FAILED     service reported a failure status, or a
//	                       non-rate-limit transport error occurred
//	        ──> CANCELED   the observer asked to abort earlier and the
//	                       service then reported a failure status
//	        ──> TIMEOUT    optional wall-clock budget ran out
//	        ──> DETACHED   the caller's context ended
//
// Each tick queries the job status once. Pending statuses are shown to the
// observer and the wait before the next tick grows by Config.GrowthFactor up
// to Config.MaxInterval. Rate-limited queries are retried after the same
// interval without telling the observer. The next tick is only scheduled
// after the previous one fully resolved, so a session never has two status
// queries in flight.
//
// # Cancellation
//
// An observer returning true does not stop the loop. It sends one cancel
// request to the service and keeps polling; the final state still comes
// from the service. Ending the caller's context is the only way to stop
// polling locally, and it leaves the remote job untouched.
//
// Independent sessions share no mutable state and may run concurrently; see
// Watch.
package poller
