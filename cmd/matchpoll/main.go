// Command matchpoll runs poll cycles once and exits, for cron-style triggers.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/preston-bernstein/matchday-notifier/internal/config"
	"github.com/preston-bernstein/matchday-notifier/internal/domain/matches"
	"github.com/preston-bernstein/matchday-notifier/internal/logging"
	"github.com/preston-bernstein/matchday-notifier/internal/metrics"
	"github.com/preston-bernstein/matchday-notifier/internal/pipeline"
	"github.com/preston-bernstein/matchday-notifier/internal/runner"
)

const appVersion = "dev"

var (
	// errRunFailed marks a run where at least one competition failed.
	errRunFailed = errors.New("one or more competitions failed")
	// errMemoryStore rejects a one-shot run whose state would vanish on exit.
	errMemoryStore = errors.New("run needs a persistent store: set STORE_BACKEND=redis or pass --allow-memory-store")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, errRunFailed) {
		return 2
	}
	return 1
}

func newApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:      "matchpoll",
		Usage:     "poll live match feeds and notify followers once",
		Version:   appVersion,
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				EnvVars: []string{"LOG_FORMAT"},
			},
		},
		Commands: []*cli.Command{
			newRunCommand(),
			newCompetitionsCommand(),
		},
	}
}

func newRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "run one poll cycle per competition and print the summaries",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "competition",
				Aliases: []string{"c"},
				Usage:   "competition id to poll (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "poll every configured competition",
			},
			&cli.BoolFlag{
				Name:  "allow-memory-store",
				Usage: "permit STORE_BACKEND=memory; state is lost on exit, so no run sends anything",
			},
		},
		Action: func(c *cli.Context) error {
			ids := c.StringSlice("competition")
			all := c.Bool("all")
			if all == (len(ids) > 0) {
				return errors.New("pass either --competition or --all")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if ephemeralStore(cfg) && !c.Bool("allow-memory-store") {
				return errMemoryStore
			}
			logger := newLogger(c)

			p, err := pipeline.Build(c.Context, cfg, logger, metrics.NewRecorder())
			if err != nil {
				return err
			}
			defer func() {
				if err := p.Close(); err != nil {
					logging.Warn(logger, "pipeline close failed", slog.Any(logging.FieldError, err))
				}
			}()

			if all {
				for _, comp := range p.Runner.Competitions() {
					ids = append(ids, comp.ID)
				}
			}

			results, failed := runAll(c.Context, p.Runner, ids)
			if err := writeJSON(c.App.Writer, results); err != nil {
				return err
			}
			if failed {
				return errRunFailed
			}
			return nil
		},
	}
}

func newCompetitionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "competitions",
		Usage: "list the configured competitions",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return writeJSON(c.App.Writer, cfg.Competitions)
		},
	}
}

type runResult struct {
	Competition string              `json:"competition"`
	Success     bool                `json:"success"`
	Error       string              `json:"error,omitempty"`
	Summary     *matches.RunSummary `json:"summary,omitempty"`
}

type competitionRunner interface {
	RunCompetition(ctx context.Context, id string) (matches.RunSummary, error)
}

// runAll polls competitions one after another. A held lease is reported but not a failure.
func runAll(ctx context.Context, r competitionRunner, ids []string) ([]runResult, bool) {
	results := make([]runResult, 0, len(ids))
	failed := false
	for _, id := range ids {
		summary, err := r.RunCompetition(ctx, id)
		res := runResult{Competition: id, Success: err == nil}
		switch {
		case err == nil:
			res.Summary = &summary
		case errors.Is(err, runner.ErrRunInProgress):
			res.Error = err.Error()
		default:
			res.Error = err.Error()
			failed = true
		}
		results = append(results, res)
	}
	return results, failed
}

// ephemeralStore reports whether state lives only in this process. Every match
// would then be a first sighting, and first sightings never notify.
func ephemeralStore(cfg config.Config) bool {
	backend := strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	return backend == "" || backend == pipeline.BackendMemory
}

func newLogger(c *cli.Context) *slog.Logger {
	return logging.NewLogger(logging.Config{
		Level:   c.String("log-level"),
		Format:  c.String("log-format"),
		Service: "matchpoll",
		Version: appVersion,
		Output:  c.App.ErrWriter,
	})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
