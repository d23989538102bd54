package engine

import (
	"context"
	"fmt"
	"io"
	"os"

	"ghasexport/internal/cachestore"
	"ghasexport/internal/config"
	"ghasexport/internal/discovery"
	gh "ghasexport/internal/github"
	"ghasexport/internal/logging"
	"ghasexport/internal/output"
	"ghasexport/internal/report"
	"ghasexport/internal/scan"
	"ghasexport/internal/scanner"

	"github.com/google/uuid"
)

// Exit code contract:
const (
	ExitOK          = 0   // every repository resolved
	ExitPartial     = 2   // some repositories or organizations errored
	ExitFatal       = 3   // the export did not run or could not be written
	ExitInterrupted = 130 // interrupted; the report holds what was collected
)

func exitCodeForRun(fatal, interrupted, partial bool) int {
	if fatal {
		return ExitFatal
	}
	if interrupted {
		return ExitInterrupted
	}
	if partial {
		return ExitPartial
	}
	return ExitOK
}

type Engine struct {
	client *gh.Client
	stdout io.Writer
	stderr io.Writer
	runID  func() string
}

func NewEngine(client *gh.Client) *Engine {
	return &Engine{
		client: client,
		stdout: os.Stdout,
		stderr: os.Stderr,
		runID:  uuid.NewString,
	}
}

func setupOutputManager(cfg *config.Config, console io.Writer, runID string) (*output.Manager, error) {
	outMgr := output.NewManager(runID)

	// Console Sink
	if !cfg.Output.NoConsole {
		if err := outMgr.AddSink(output.NewConsoleSink(console)); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Progress Sink (terminals only)
	if cfg.Output.Progress {
		if ps := output.NewProgressSink(); ps != nil {
			if err := outMgr.AddSink(ps); err != nil {
				outMgr.Close()
				return nil, err
			}
		}
	}

	// Event File Sink
	if cfg.Output.Events != "" {
		fs, err := output.NewFileSink(cfg.Output.Events)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(fs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	return outMgr, nil
}

// Run exports every targeted organization and writes the CSV report. It
// returns the process exit code.
func (e *Engine) Run(ctx context.Context, cfg *config.Config) int {
	logger := logging.From(ctx)

	cols, unknown := cfg.Columns()
	if len(unknown) > 0 {
		logger.Warn("ignoring unknown report columns", "columns", unknown)
	}
	if len(cols) == 0 {
		fmt.Fprintf(e.stderr, "Error: --headers selects no known columns: %q\n", cfg.Output.Headers)
		return ExitFatal
	}

	meta := scanner.NewMetadata(e.client)
	lister := discovery.NewLister(e.client, meta, cfg.Filter())

	orgs, err := e.resolveOrganizations(ctx, cfg, lister)
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(e.stderr, "Interrupted while discovering organizations.")
			return ExitInterrupted
		}
		fmt.Fprintf(e.stderr, "Error discovering organizations: %v\n", err)
		return ExitFatal
	}

	store, err := cachestore.Open(cfg.Cache.Backend, cfg.Cache.Dir)
	if err != nil {
		fmt.Fprintf(e.stderr, "Error opening cache: %v\n", err)
		return ExitFatal
	}

	outMgr, err := setupOutputManager(cfg, e.stdout, e.runID())
	if err != nil {
		fmt.Fprintf(e.stderr, "Error creating output sinks: %v\n", err)
		return ExitFatal
	}

	logger = logger.With("run_id", outMgr.RunID())
	ctx = logging.With(ctx, logger)
	logger.Debug("starting export", "orgs", orgs, "cache", cfg.Cache.Dir, "backend", cfg.Cache.Backend)

	orch := scan.New(lister, scanner.NewGitHubScanners(e.client, meta), store, outMgr, scan.Options{
		FlushFrequency:     cfg.Cache.Frequency,
		IgnoreCachedErrors: cfg.Cache.IgnoreErrors,
		Debug:              cfg.Runtime.Debug,
	})
	res, runErr := orch.Run(ctx, orgs)
	if err := outMgr.Close(); err != nil {
		logger.Warn("failed to close output sinks", "error", err)
	}
	if runErr != nil {
		fmt.Fprintf(e.stderr, "Error: export aborted: %v\n", runErr)
	}

	if err := report.WriteFile(cfg.Output.Path, cols, res.Records); err != nil {
		fmt.Fprintf(e.stderr, "Error writing report: %v\n", err)
		return ExitFatal
	}
	fmt.Fprintf(e.stderr, "Wrote %d repositories (%d errored) to %s.\n", len(res.Records), res.Errored, cfg.Output.Path)
	if len(res.FailedOrgs) > 0 {
		fmt.Fprintf(e.stderr, "Failed organizations: %v\n", res.FailedOrgs)
	}
	if res.Interrupted {
		fmt.Fprintln(e.stderr, "Interrupted; rerun the same command to resume from the cache.")
	}

	return exitCodeForRun(runErr != nil, res.Interrupted, res.Errored > 0 || len(res.FailedOrgs) > 0)
}

func (e *Engine) resolveOrganizations(ctx context.Context, cfg *config.Config, lister *discovery.Lister) ([]string, error) {
	if cfg.Targeting.Enterprise == "" {
		return cfg.Targeting.Orgs, nil
	}
	orgs, err := lister.ListOrganizations(ctx, cfg.Targeting.Enterprise)
	if err != nil {
		return nil, err
	}
	if len(orgs) == 0 {
		fmt.Fprintf(e.stderr, "Enterprise %s has no organizations.\n", cfg.Targeting.Enterprise)
	}
	return orgs, nil
}
