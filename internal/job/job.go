package job

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Ref identifies a submitted job.
type Ref struct {
	ID string `json:"id"`
}

// ErrorDetail is one entry of the error list the service attaches to a failed job.
type ErrorDetail struct {
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message"`
	Node    string          `json:"node,omitempty"`
	Detail  json.RawMessage `json:"detail,omitempty"`
}

func (d ErrorDetail) String() string {
	var b strings.Builder
	if d.Node != "" {
		b.WriteString(d.Node)
		b.WriteString(": ")
	}
	if d.Code != "" {
		b.WriteString("[")
		b.WriteString(d.Code)
		b.WriteString("] ")
	}
	b.WriteString(d.Message)
	return b.String()
}

// Snapshot is one observation of a job's state. Result is set only for a
// successful terminal status, Errors only for a failed one.
type Snapshot struct {
	ID       string          `json:"id"`
	Status   Status          `json:"status"`
	Progress *float64        `json:"progress,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Errors   []ErrorDetail   `json:"errors,omitempty"`
}

// ServiceFailure reports that the job itself reached a failure state. It is
// never produced for transport problems.
type ServiceFailure struct {
	ID     string
	Status Status
	Errors []ErrorDetail
}

// NewServiceFailure builds a ServiceFailure from a terminal snapshot.
func NewServiceFailure(s Snapshot) *ServiceFailure {
	return &ServiceFailure{ID: s.ID, Status: s.Status, Errors: s.Errors}
}

func (f *ServiceFailure) Error() string {
	if len(f.Errors) == 0 {
		return fmt.Sprintf("job %s %s", f.ID, f.Status)
	}
	msgs := make([]string, len(f.Errors))
	for i, d := range f.Errors {
		msgs[i] = d.String()
	}
	return fmt.Sprintf("job %s %s: %s", f.ID, f.Status, strings.Join(msgs, "; "))
}

// NodeResult extracts the named entry from a batch job's result set.
func NodeResult(s Snapshot, name string) (json.RawMessage, error) {
	if len(s.Result) == 0 {
		return nil, fmt.Errorf("job %s has no result", s.ID)
	}
	var set map[string]json.RawMessage
	if err := json.Unmarshal(s.Result, &set); err != nil {
		return nil, fmt.Errorf("job %s result is not a result set: %w", s.ID, err)
	}
	entry, ok := set[name]
	if !ok {
		return nil, fmt.Errorf("job %s result has no entry for node %q", s.ID, name)
	}
	return entry, nil
}
