package cli

import (
	"context"
	"errors"

	"github.com/specialistvlad/simgridgo/internal/job"
	"github.com/specialistvlad/simgridgo/internal/jobgraph"
	"github.com/specialistvlad/simgridgo/internal/poller"
	"github.com/specialistvlad/simgridgo/internal/transport"
)

// Process exit codes.
const (
	ExitOK             = 0
	ExitFailure        = 1
	ExitUsage          = 2
	ExitServiceFailure = 3
	ExitTransport      = 4
	ExitCanceled       = 5
	ExitTimeout        = 6
	ExitInvalidGraph   = 7
	ExitInterrupted    = 130
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// exitError classifies err into an ExitError. The order matters: a canceled
// job also carries a service failure.
func exitError(err error) *ExitError {
	if err == nil {
		return nil
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee
	}

	code := ExitFailure
	var (
		failure  *job.ServiceFailure
		tErr     *transport.Error
		graphErr *jobgraph.InvalidGraphError
	)
	switch {
	case errors.Is(err, poller.ErrCancellationRequested):
		code = ExitCanceled
	case errors.As(err, &failure):
		code = ExitServiceFailure
	case errors.Is(err, poller.ErrTimeout):
		code = ExitTimeout
	case errors.As(err, &graphErr):
		code = ExitInvalidGraph
	case errors.As(err, &tErr), errors.Is(err, poller.ErrUnknownStatus):
		code = ExitTransport
	case errors.Is(err, context.Canceled):
		code = ExitInterrupted
	}
	return &ExitError{Code: code, Message: err.Error()}
}
