package job

// Status is the service-reported state of a job.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusQueued   Status = "queued"
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
	StatusAborted  Status = "aborted"
	StatusFailed   Status = "failed"
)

// Phase is the partition a status falls into.
type Phase int

const (
	PhaseUnknown Phase = iota
	PhasePending
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StatusSet partitions a job type's status vocabulary. Job types that report
// extra statuses supply their own set to the poller.
type StatusSet struct {
	Pending   []Status
	Succeeded []Status
	Failed    []Status
}

// DefaultStatusSet is the vocabulary shared by every built-in job type.
func DefaultStatusSet() StatusSet {
	return StatusSet{
		Pending:   []Status{StatusIdle, StatusQueued, StatusRunning},
		Succeeded: []Status{StatusFinished},
		Failed:    []Status{StatusFailed, StatusAborted},
	}
}

// Classify returns the phase of s, or PhaseUnknown if s is not in the set.
func (ss StatusSet) Classify(s Status) Phase {
	for _, p := range ss.Pending {
		if p == s {
			return PhasePending
		}
	}
	for _, p := range ss.Succeeded {
		if p == s {
			return PhaseSucceeded
		}
	}
	for _, p := range ss.Failed {
		if p == s {
			return PhaseFailed
		}
	}
	return PhaseUnknown
}
