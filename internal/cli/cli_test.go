package cli

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/simgridgo/internal/job"
	"github.com/specialistvlad/simgridgo/internal/jobgraph"
	"github.com/specialistvlad/simgridgo/internal/poller"
	"github.com/specialistvlad/simgridgo/internal/scheduler"
	"github.com/specialistvlad/simgridgo/internal/testutil"
	"github.com/specialistvlad/simgridgo/internal/transport"
)

const graphHCL = `
material "epoxy" {
  type          = "isotropic"
  young_modulus = 3.5e9
  poisson_ratio = 0.35
}

node "laminate" {
  kind   = "layer"
  inputs = { matrix = material.epoxy }
}
`

// runCLI executes the CLI against svc with an instantly firing clock.
func runCLI(t *testing.T, svc *testutil.FakeService, args ...string) (string, error) {
	t.Helper()
	out, logs := &testutil.SafeBuffer{}, &testutil.SafeBuffer{}
	full := []string{"--env", "", "--api-url", svc.URL}
	full = append(full, args...)
	err := RunWithClock(context.Background(), full, out, logs, scheduler.NewManual(time.Unix(0, 0), true))
	return out.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var ee *ExitError
	require.True(t, errors.As(err, &ee), "want *ExitError, got %T: %v", err, err)
	return ee.Code
}

func TestRun_GraphFinished(t *testing.T) {
	svc := testutil.NewFakeService(t)
	svc.ScriptSubmitted(
		testutil.StatusReply{Status: "running"},
		testutil.StatusReply{Status: "finished", Result: map[string]any{"laminate": map[string]any{"a11": 1.5}}},
	)
	dir := testutil.WriteFiles(t, map[string]string{"graph/main.hcl": graphHCL})

	out, err := runCLI(t, svc, "run", dir+"/graph")
	require.NoError(t, err)
	assert.Contains(t, out, "job job-1: running")
	assert.Contains(t, out, `"a11": 1.5`)
}

func TestRun_ExitCodes(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{"main.hcl": graphHCL})

	t.Run("service failure", func(t *testing.T) {
		svc := testutil.NewFakeService(t)
		svc.ScriptSubmitted(testutil.StatusReply{Status: "failed", Errors: []testutil.ErrorReply{{Code: "E42", Message: "bad layup"}}})
		out, err := runCLI(t, svc, "run", dir)
		assert.Equal(t, ExitServiceFailure, exitCode(t, err))
		assert.Contains(t, out, "[E42] bad layup")
	})

	t.Run("canceled", func(t *testing.T) {
		svc := testutil.NewFakeService(t)
		svc.ScriptSubmitted(testutil.StatusReply{Status: "running"}, testutil.StatusReply{Status: "aborted"})
		_, err := runCLI(t, svc, "run", "--abort-after", "1", dir)
		assert.Equal(t, ExitCanceled, exitCode(t, err))
		assert.Equal(t, []string{"job-1"}, svc.Cancels())
	})

	t.Run("timeout", func(t *testing.T) {
		svc := testutil.NewFakeService(t)
		svc.ScriptSubmitted(testutil.StatusReply{Status: "running"})
		_, err := runCLI(t, svc, "--poll-timeout", "5s", "run", "--quiet", dir)
		assert.Equal(t, ExitTimeout, exitCode(t, err))
	})

	t.Run("transport", func(t *testing.T) {
		svc := testutil.NewFakeService(t)
		svc.FailSubmits(500)
		_, err := runCLI(t, svc, "run", dir)
		assert.Equal(t, ExitTransport, exitCode(t, err))
		assert.Contains(t, err.Error(), "HTTP 500")
	})

	t.Run("invalid graph", func(t *testing.T) {
		svc := testutil.NewFakeService(t)
		bad := testutil.WriteFiles(t, map[string]string{"main.hcl": `
node "a" {
  kind   = "layer"
  inputs = { ply = node.a }
}
`})
		_, err := runCLI(t, svc, "run", bad)
		assert.Equal(t, ExitInvalidGraph, exitCode(t, err))
	})
}

func TestRun_UsageErrors(t *testing.T) {
	svc := testutil.NewFakeService(t)
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--this-is-not-a-valid-flag", "status", "x"}},
		{"missing ids", []string{"status"}},
		{"two cancel ids", []string{"cancel", "a", "b"}},
		{"bad encoding", []string{"--encoding", "xml", "status", "x"}},
		{"bad log level", []string{"--log-level", "loud", "status", "x"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runCLI(t, svc, tc.args...)
			assert.Equal(t, ExitUsage, exitCode(t, err))
		})
	}
}

func TestRun_MissingAPIURL(t *testing.T) {
	t.Setenv("SIMGRID_API_URL", "")
	err := Run(context.Background(), []string{"--env", "", "status", "x"}, &testutil.SafeBuffer{}, &testutil.SafeBuffer{})
	assert.Equal(t, ExitUsage, exitCode(t, err))
	assert.Contains(t, err.Error(), "API URL")
}

func TestRun_StatusCancelWatch(t *testing.T) {
	svc := testutil.NewFakeService(t)
	svc.Script("a", testutil.StatusReply{Status: "queued"}, testutil.StatusReply{Status: "finished"})

	out, err := runCLI(t, svc, "status", "a")
	require.NoError(t, err)
	assert.Contains(t, out, "queued")

	out, err = runCLI(t, svc, "cancel", "a")
	require.NoError(t, err)
	assert.Contains(t, out, "cancellation requested for job a")

	out, err = runCLI(t, svc, "watch", "a")
	require.NoError(t, err)
	assert.Contains(t, out, "FINISHED")

	_, err = runCLI(t, svc, "status", "nope")
	assert.Equal(t, ExitTransport, exitCode(t, err))
}

func TestRun_SubmitSpec(t *testing.T) {
	svc := testutil.NewFakeService(t)
	dir := testutil.WriteFiles(t, map[string]string{"spec.json": `{"kind":"micromechanics"}`})

	out, err := runCLI(t, svc, "--gzip", "submit", "--spec", dir+"/spec.json")
	require.NoError(t, err)
	assert.Contains(t, out, "submitted job job-1")
	require.Len(t, svc.Submitted(), 1)
	assert.Equal(t, "micromechanics", svc.Submitted()[0]["kind"])
}

func TestExitError_Classification(t *testing.T) {
	failure := &job.ServiceFailure{ID: "j", Status: job.StatusFailed}
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("wrap: %w", failure), ExitServiceFailure},
		{fmt.Errorf("%w: %w", poller.ErrCancellationRequested, failure), ExitCanceled},
		{poller.ErrTimeout, ExitTimeout},
		{&transport.Error{Kind: transport.KindRateLimited, StatusCode: 429}, ExitTransport},
		{&jobgraph.InvalidGraphError{Node: "a", Reason: "cycle"}, ExitInvalidGraph},
		{context.Canceled, ExitInterrupted},
		{errors.New("boom"), ExitFailure},
		{&ExitError{Code: ExitUsage, Message: "usage"}, ExitUsage},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.code, exitError(tc.err).Code, "error %v", tc.err)
	}
}
