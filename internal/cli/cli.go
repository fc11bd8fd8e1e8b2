package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	ucli "github.com/urfave/cli/v3"

	"github.com/specialistvlad/simgridgo/internal/app"
	"github.com/specialistvlad/simgridgo/internal/scheduler"
)

// Run parses args (without the program name) and executes the selected
// command. Results go to outW, logs and diagnostics to errW. Every returned
// error is an *ExitError.
func Run(ctx context.Context, args []string, outW, errW io.Writer) error {
	return RunWithClock(ctx, args, outW, errW, nil)
}

// RunWithClock is Run with an explicit poll clock; nil selects the wall clock.
func RunWithClock(ctx context.Context, args []string, outW, errW io.Writer, clock scheduler.Clock) error {
	slog.Debug("CLI parser started.")
	root := newRootCommand(outW, errW, clock)
	if err := root.Run(ctx, append([]string{root.Name}, args...)); err != nil {
		return exitError(err)
	}
	return nil
}

func newRootCommand(outW, errW io.Writer, clock scheduler.Clock) *ucli.Command {
	defaults := app.DefaultConfig()
	withApp := func(fn func(ctx context.Context, cmd *ucli.Command, a *app.App) error) ucli.ActionFunc {
		return func(ctx context.Context, cmd *ucli.Command) error {
			cfg, err := buildConfig(cmd)
			if err != nil {
				return &ExitError{Code: ExitUsage, Message: err.Error()}
			}
			a, err := app.NewApp(outW, errW, cfg, clock)
			if err != nil {
				return &ExitError{Code: ExitUsage, Message: err.Error()}
			}
			defer a.Close()
			return fn(ctx, cmd, a)
		}
	}

	return &ucli.Command{
		Name:      "simgridgo",
		Usage:     "Submit, poll and cancel structural simulation jobs.",
		Writer:    outW,
		ErrWriter: errW,
		OnUsageError: func(ctx context.Context, cmd *ucli.Command, err error, isSubcommand bool) error {
			return &ExitError{Code: ExitUsage, Message: err.Error()}
		},
		ExitErrHandler: func(context.Context, *ucli.Command, error) {},
		Flags: []ucli.Flag{
			&ucli.StringFlag{Name: "env", Usage: "Path of a .env file with SIMGRID_* settings.", Value: ".env"},
			&ucli.StringFlag{Name: "api-url", Usage: "Base URL of the simulation service. (" + app.EnvAPIURL + ")"},
			&ucli.StringFlag{Name: "api-token", Usage: "Bearer token for the service. (" + app.EnvAPIToken + ")"},
			&ucli.StringFlag{Name: "api-version", Usage: "API version route prefix. (" + app.EnvAPIVersion + ")", Value: defaults.APIVersion},
			&ucli.StringFlag{Name: "encoding", Usage: "Request encoding: 'json' or 'msgpack'. (" + app.EnvEncoding + ")", Value: defaults.Encoding},
			&ucli.BoolFlag{Name: "gzip", Usage: "Compress request bodies. (" + app.EnvGzip + ")"},
			&ucli.DurationFlag{Name: "http-timeout", Usage: "Timeout of a single request. (" + app.EnvHTTPTimeout + ")", Value: defaults.HTTPTimeout},
			&ucli.DurationFlag{Name: "poll-initial", Usage: "First poll interval. (" + app.EnvPollInitial + ")", Value: defaults.PollInitial},
			&ucli.DurationFlag{Name: "poll-max", Usage: "Upper bound of the poll interval. (" + app.EnvPollMax + ")", Value: defaults.PollMax},
			&ucli.FloatFlag{Name: "poll-growth", Usage: "Poll interval multiplier. (" + app.EnvPollGrowth + ")", Value: defaults.PollGrowth},
			&ucli.DurationFlag{Name: "poll-timeout", Usage: "Give up polling after this long; 0 waits forever. (" + app.EnvPollTimeout + ")"},
			&ucli.StringFlag{Name: "log-format", Usage: "Log output format. Options: 'text' or 'json'.", Value: defaults.LogFormat},
			&ucli.StringFlag{Name: "log-level", Usage: "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.", Value: defaults.LogLevel},
		},
		Commands: []*ucli.Command{
			{
				Name:      "run",
				Usage:     "Submit a job graph from HCL files and wait for its terminal node.",
				ArgsUsage: "GRAPH_PATH...",
				Flags:     pollFlags(),
				Action: withApp(func(ctx context.Context, cmd *ucli.Command, a *app.App) error {
					paths, err := requireArgs(cmd, 1, "at least one graph file or directory")
					if err != nil {
						return err
					}
					return a.RunGraph(ctx, paths, pollOptions(cmd))
				}),
			},
			{
				Name:  "submit",
				Usage: "Submit a job spec from a JSON or YAML file.",
				Flags: append(pollFlags(),
					&ucli.StringFlag{Name: "spec", Usage: "Path of the job spec file.", Required: true},
					&ucli.BoolFlag{Name: "wait", Usage: "Poll the job until it ends."},
				),
				Action: withApp(func(ctx context.Context, cmd *ucli.Command, a *app.App) error {
					return a.Submit(ctx, cmd.String("spec"), cmd.Bool("wait"), pollOptions(cmd))
				}),
			},
			{
				Name:      "status",
				Usage:     "Show the current status of jobs.",
				ArgsUsage: "JOB_ID...",
				Action: withApp(func(ctx context.Context, cmd *ucli.Command, a *app.App) error {
					ids, err := requireArgs(cmd, 1, "at least one job id")
					if err != nil {
						return err
					}
					return a.Status(ctx, ids)
				}),
			},
			{
				Name:      "cancel",
				Usage:     "Ask the service to cancel a job.",
				ArgsUsage: "JOB_ID",
				Action: withApp(func(ctx context.Context, cmd *ucli.Command, a *app.App) error {
					ids, err := requireArgs(cmd, 1, "a job id")
					if err != nil {
						return err
					}
					if len(ids) > 1 {
						return &ExitError{Code: ExitUsage, Message: "cancel takes exactly one job id"}
					}
					return a.Cancel(ctx, ids[0])
				}),
			},
			{
				Name:      "watch",
				Usage:     "Poll jobs until every one of them ended.",
				ArgsUsage: "JOB_ID...",
				Flags:     pollFlags(),
				Action: withApp(func(ctx context.Context, cmd *ucli.Command, a *app.App) error {
					ids, err := requireArgs(cmd, 1, "at least one job id")
					if err != nil {
						return err
					}
					return a.Watch(ctx, ids, pollOptions(cmd))
				}),
			},
		},
	}
}

func pollFlags() []ucli.Flag {
	return []ucli.Flag{
		&ucli.IntFlag{Name: "abort-after", Usage: "Request cancellation after N pending poll ticks. 0 never aborts."},
		&ucli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Do not print a line per poll tick."},
	}
}

func pollOptions(cmd *ucli.Command) app.PollOptions {
	return app.PollOptions{
		AbortAfter: int(cmd.Int("abort-after")),
		Quiet:      cmd.Bool("quiet"),
	}
}

func requireArgs(cmd *ucli.Command, n int, what string) ([]string, error) {
	args := cmd.Args().Slice()
	if len(args) < n {
		return nil, &ExitError{Code: ExitUsage, Message: fmt.Sprintf("%s: missing %s", cmd.Name, what)}
	}
	return args, nil
}

// buildConfig layers explicitly set flags over the environment and the
// defaults, then validates the result.
func buildConfig(cmd *ucli.Command) (*app.Config, error) {
	cfg, err := app.ConfigFromEnv(cmd.String("env"))
	if err != nil {
		return nil, err
	}
	if cmd.IsSet("api-url") {
		cfg.APIURL = cmd.String("api-url")
	}
	if cmd.IsSet("api-token") {
		cfg.APIToken = cmd.String("api-token")
	}
	if cmd.IsSet("api-version") {
		cfg.APIVersion = cmd.String("api-version")
	}
	if cmd.IsSet("encoding") {
		cfg.Encoding = strings.ToLower(cmd.String("encoding"))
	}
	if cmd.IsSet("gzip") {
		cfg.Gzip = cmd.Bool("gzip")
	}
	if cmd.IsSet("http-timeout") {
		cfg.HTTPTimeout = cmd.Duration("http-timeout")
	}
	if cmd.IsSet("poll-initial") {
		cfg.PollInitial = cmd.Duration("poll-initial")
	}
	if cmd.IsSet("poll-max") {
		cfg.PollMax = cmd.Duration("poll-max")
	}
	if cmd.IsSet("poll-growth") {
		cfg.PollGrowth = cmd.Float("poll-growth")
	}
	if cmd.IsSet("poll-timeout") {
		cfg.PollTimeout = cmd.Duration("poll-timeout")
	}
	cfg.LogFormat = strings.ToLower(cmd.String("log-format"))
	cfg.LogLevel = strings.ToLower(cmd.String("log-level"))

	valid, err := app.NewConfig(cfg)
	if err != nil {
		return nil, err
	}
	slog.Debug("CLI configuration resolved.", "api_url", valid.APIURL, "encoding", valid.Encoding)
	return valid, nil
}
