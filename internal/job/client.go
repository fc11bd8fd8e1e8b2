package job

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/specialistvlad/simgridgo/internal/ctxlog"
	"github.com/specialistvlad/simgridgo/internal/jobgraph"
	"github.com/specialistvlad/simgridgo/internal/transport"
)

// DefaultAPIVersion is the route prefix used when none is configured.
const DefaultAPIVersion = "v1"

// Client issues create/read/cancel calls for job resources. It never retries.
type Client struct {
	doer    transport.Doer
	version string
}

// NewClient creates a job client on top of a transport. An empty version
// selects DefaultAPIVersion.
func NewClient(doer transport.Doer, version string) *Client {
	if version == "" {
		version = DefaultAPIVersion
	}
	return &Client{doer: doer, version: version}
}

func (c *Client) route(parts ...string) string {
	r := "/" + c.version + "/jobs"
	for _, p := range parts {
		r += "/" + url.PathEscape(p)
	}
	return r
}

// Submit sends a job specification and returns the service-assigned id.
// The spec is an opaque payload owned by the caller.
func (c *Client) Submit(ctx context.Context, spec any) (Ref, error) {
	res, err := c.doer.Do(ctx, transport.Request{Method: http.MethodPost, Route: c.route(), Body: spec})
	if err != nil {
		return Ref{}, err
	}
	var ref Ref
	if err := res.Decode(&ref); err != nil {
		return Ref{}, fmt.Errorf("failed to decode submit response: %w", err)
	}
	if ref.ID == "" {
		return Ref{}, errors.New("submit response did not contain a job id")
	}
	ctxlog.FromContext(ctx).Info("Job submitted.", "job_id", ref.ID)
	return ref, nil
}

// batchSpec is the wire shape of a job graph submission.
type batchSpec struct {
	Kind      string              `json:"kind"`
	Materials []jobgraph.Material `json:"materials"`
	Nodes     []jobgraph.NodeSpec `json:"nodes"`
	Terminal  string              `json:"terminal"`
}

// SubmitGraph submits a built job graph as a single batch job.
func (c *Client) SubmitGraph(ctx context.Context, g *jobgraph.Graph) (Ref, error) {
	return c.Submit(ctx, batchSpec{
		Kind:      "batch",
		Materials: g.Batch.Materials,
		Nodes:     g.Batch.Nodes,
		Terminal:  g.Terminal,
	})
}

// Status fetches the current snapshot of a job.
func (c *Client) Status(ctx context.Context, id string) (Snapshot, error) {
	res, err := c.doer.Do(ctx, transport.Request{Method: http.MethodGet, Route: c.route(id)})
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := res.Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode status response: %w", err)
	}
	if snap.ID == "" {
		snap.ID = id
	}
	return snap, nil
}

// Cancel asks the service to stop a job. The service is the authority on
// whether cancellation applies, so a 409 for an already-terminal job counts
// as an acknowledgement.
func (c *Client) Cancel(ctx context.Context, id string) error {
	_, err := c.doer.Do(ctx, transport.Request{Method: http.MethodPost, Route: c.route(id, "cancel")})
	if err != nil {
		var tErr *transport.Error
		if errors.As(err, &tErr) && tErr.StatusCode == http.StatusConflict {
			ctxlog.FromContext(ctx).Debug("Cancel acknowledged for already-terminal job.", "job_id", id)
			return nil
		}
		return err
	}
	ctxlog.FromContext(ctx).Info("Cancellation requested.", "job_id", id)
	return nil
}
