package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/specialistvlad/simgridgo/internal/job"
	"github.com/specialistvlad/simgridgo/internal/poller"
)

func formatProgress(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", *p*100)
}

// printProgress writes one line per poll tick.
func printProgress(w io.Writer, snap job.Snapshot) {
	fmt.Fprintf(w, "job %s: %s (%s)\n", snap.ID, snap.Status, formatProgress(snap.Progress))
}

// printSnapshots renders snapshots as a table.
func printSnapshots(w io.Writer, snaps []job.Snapshot) error {
	table := tablewriter.NewWriter(w)
	table.Header("Job", "Status", "Progress", "Errors")
	for _, s := range snaps {
		if err := table.Append(s.ID, string(s.Status), formatProgress(s.Progress), fmt.Sprintf("%d", len(s.Errors))); err != nil {
			return err
		}
	}
	return table.Render()
}

// printOutcomes renders poll outcomes as a table.
func printOutcomes(w io.Writer, ids []string, outs []poller.Outcome) error {
	table := tablewriter.NewWriter(w)
	table.Header("Job", "State", "Status", "Ticks", "Detail")
	for i, out := range outs {
		detail := ""
		if out.Err != nil {
			detail = out.Err.Error()
		}
		if err := table.Append(ids[i], out.State.String(), string(out.Snapshot.Status), fmt.Sprintf("%d", out.Ticks), detail); err != nil {
			return err
		}
	}
	return table.Render()
}

// printOutcome writes the final summary of the session polling job id.
// Service failures list every error the service reported.
func printOutcome(w io.Writer, id string, out poller.Outcome) {
	switch out.State {
	case poller.StateFinished:
		fmt.Fprintf(w, "job %s finished\n", id)
	case poller.StateFailed, poller.StateCanceled:
		failure, ok := out.ServiceFailure()
		if !ok {
			fmt.Fprintf(w, "job %s: polling failed: %v\n", id, out.Err)
			return
		}
		verb := "failed"
		if out.State == poller.StateCanceled {
			verb = "was canceled"
		}
		fmt.Fprintf(w, "job %s %s with status %s\n", id, verb, failure.Status)
		for _, d := range failure.Errors {
			fmt.Fprintf(w, "  - %s\n", d)
		}
	case poller.StateTimeout:
		fmt.Fprintf(w, "job %s: gave up waiting (last status %s)\n", id, out.Snapshot.Status)
	case poller.StateDetached:
		fmt.Fprintf(w, "job %s: stopped polling, the job keeps running\n", id)
	}
}

// printJSON writes raw indented.
func printJSON(w io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, err = fmt.Fprintf(w, "%s\n", raw)
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

// outcomeError maps an outcome onto the error the caller should see.
func outcomeError(out poller.Outcome) error {
	if out.State == poller.StateFinished {
		return nil
	}
	return out.Err
}
