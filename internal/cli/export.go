package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ghasexport/internal/config"
	"ghasexport/internal/engine"
	"ghasexport/internal/flags"
	gh "ghasexport/internal/github"
	"ghasexport/internal/logging"
	"ghasexport/internal/report"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfg = config.New()

const exportHelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}Usage:
  {{.UseLine}}

{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}Environment:
  ghasexport authenticates to GitHub using an access token.

  Sources (in order):
  1) --token
  2) GITHUB_TOKEN environment variable
  3) GH_TOKEN environment variable
  4) GitHub CLI (gh) authentication via gh auth token (if gh is installed and logged in)
  5) an interactive prompt (only when stdin is a terminal)

  A .env file in the working directory is loaded first; variables already set
  in the environment win.

  Token guidance (brief):
  - PAT (classic): needs repo and security_events to read alerts, and read:org
    (read:enterprise for --enterprise) to enumerate repositories.
  - Fine-grained PAT: grant Metadata, Code scanning alerts, Dependabot alerts
    and Secret scanning alerts read access.

{{if .HasAvailableSubCommands}}Available Commands:
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.
{{end}}`

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export alert counts for an organization or enterprise",
	Long: `Export open alert counts for every repository of the target organizations.

One CSV row is written per repository, in organization then listing order.
A count of -1 means the feature is disabled on the repository; an empty cell
means the repository could not be fully queried.

Caching:
	Records are cached per organization under --cache-dir and written every
	--cache-frequency fetched repositories. Rerunning the same command reuses
	cached records. Cached failures are reused as failures unless
	--cache-ignore-errors is set.

Config file:
	Flags may also be set in a YAML file whose keys are flag names (--config,
	or .ghasexport.yaml in the working directory). Command line flags win.

Exit codes:
	0   = every repository exported
	2   = partial failure (some repositories or organizations errored)
	3   = fatal error (export did not run, or cache/report could not be written)
	130 = interrupted (the report holds what was collected)

Examples:
	# Export one organization
	export GITHUB_TOKEN="<your_token>"
	ghasexport export --org my-org

	# Export an enterprise on GitHub Enterprise Server
	ghasexport export --enterprise my-ent --github-url https://ghe.example.com/api/v3/

	# Only selected columns, machine-readable progress
	ghasexport export --org my-org --headers name,secret_scanning --no-console --events events.ndjson
`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 && cmd.Flags().NFlag() == 0 && !hasDefaultConfigFile() {
			_ = cmd.Help()
			return
		}
		os.Exit(runExport(cmd))
	},
}

func hasDefaultConfigFile() bool {
	_, err := os.Stat(config.DefaultFile)
	return !errors.Is(err, fs.ErrNotExist)
}

func runExport(cmd *cobra.Command) int {
	stderr := cmd.ErrOrStderr()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(stderr, "Warning: failed to load .env: %v\n", err)
	}

	if _, err := config.ApplyFile(cfg.Runtime.ConfigFile, cmd.Flags()); err != nil {
		printError(stderr, err)
		return engine.ExitFatal
	}

	if err := cfg.Validate(); err != nil {
		printError(stderr, err)
		return engine.ExitFatal
	}

	logger, err := logging.New(cfg.Runtime.LogFormat, cfg.Runtime.LogLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return engine.ExitFatal
	}
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.With(ctx, logger)

	token, source, err := resolveToken(ctx, cfg.Runtime.Token, cfg.Runtime.GitHubURL, terminalPrompt(os.Stdin, stderr))
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to resolve GitHub auth token: %v\n", err)
		return engine.ExitFatal
	}
	if strings.TrimSpace(token) == "" {
		fmt.Fprintln(stderr, "Error: GitHub auth token is required (use --token, set GITHUB_TOKEN or run 'gh auth login')")
		return engine.ExitFatal
	}
	cfg.Runtime.Token = token
	logger.Debug("resolved configuration", "config", cfg, "token_source", string(source))

	client, err := newClient(ctx, cfg, token)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to create GitHub client: %v\n", err)
		return engine.ExitFatal
	}
	return engine.NewEngine(client).Run(ctx, cfg)
}

func newClient(ctx context.Context, cfg *config.Config, token string) (*gh.Client, error) {
	return gh.NewClient(ctx, token,
		gh.WithBaseURL(cfg.Runtime.GitHubURL),
		gh.WithTimeout(cfg.Runtime.Timeout),
		gh.WithBudget(gh.NewRequestBudget()),
		gh.WithVerbose(cfg.Runtime.Verbose, logging.From(ctx)),
	)
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.SetHelpTemplate(exportHelpTemplate)

	// MAINTAINER NOTE: flag names double as config file keys; keep them in
	// internal/flags.

	// Targeting
	exportCmd.Flags().StringSliceVar(&cfg.Targeting.Orgs, flags.FlagOrg, nil, "GitHub organization(s) to export (name or URL; repeatable; comma-separated accepted)")
	exportCmd.Flags().StringVar(&cfg.Targeting.Enterprise, flags.FlagEnterprise, "", "GitHub enterprise whose organizations are exported (slug or URL)")
	exportCmd.Flags().StringSliceVar(&cfg.Targeting.Include, flags.FlagInclude, nil, "Include pattern(s) (repeatable; comma-separated accepted). Go path.Match style; if pattern contains '/', matches OWNER/REPO, else matches repo name")
	exportCmd.Flags().StringSliceVar(&cfg.Targeting.Exclude, flags.FlagExclude, nil, "Exclude pattern(s) (repeatable; comma-separated accepted). Same matching rules as --include")
	exportCmd.Flags().StringVar(&cfg.Targeting.Archived, flags.FlagArchived, cfg.Targeting.Archived, "Archived repos policy: include|exclude|only")
	exportCmd.Flags().IntVar(&cfg.Targeting.MaxRepos, flags.FlagMaxRepos, 0, "Maximum number of repositories per organization (0 = unlimited)")

	// Cache
	exportCmd.Flags().StringVar(&cfg.Cache.Dir, flags.FlagCacheDir, cfg.Cache.Dir, "Directory holding one cache document per organization")
	exportCmd.Flags().StringVar(&cfg.Cache.Backend, flags.FlagCacheBackend, cfg.Cache.Backend, "Cache document format: json|sqlite")
	exportCmd.Flags().IntVar(&cfg.Cache.Frequency, flags.FlagCacheFrequency, cfg.Cache.Frequency, "Fetched repositories between cache writes")
	exportCmd.Flags().BoolVar(&cfg.Cache.IgnoreErrors, flags.FlagCacheIgnoreErrors, false, "Re-fetch repositories whose cached record is errored")

	// Output
	exportCmd.Flags().StringVar(&cfg.Output.Headers, flags.FlagHeaders, cfg.Output.Headers, "Comma-separated CSV columns (available: "+joinColumns()+")")
	exportCmd.Flags().StringVarP(&cfg.Output.Path, flags.FlagOutput, "o", cfg.Output.Path, "CSV report path")
	exportCmd.Flags().StringVar(&cfg.Output.Events, flags.FlagEvents, "", "Write an NDJSON progress event stream to this path")
	exportCmd.Flags().BoolVar(&cfg.Output.Progress, flags.FlagProgress, false, "Show a progress bar on stderr (terminals only)")
	exportCmd.Flags().BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress per-repository console output")

	// Runtime
	exportCmd.Flags().StringVar(&cfg.Runtime.GitHubURL, flags.FlagGitHubURL, "", "GitHub API base URL (GitHub Enterprise Server: https://HOST/api/v3/)")
	exportCmd.Flags().StringVar(&cfg.Runtime.Token, flags.FlagToken, "", "GitHub access token (default: GITHUB_TOKEN, GH_TOKEN, gh auth token, prompt)")
	exportCmd.Flags().DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Timeout for each GitHub API request")
	exportCmd.Flags().BoolVar(&cfg.Runtime.Debug, flags.FlagDebug, false, "Abort on the first organization-level failure")
	exportCmd.Flags().StringVar(&cfg.Runtime.LogLevel, flags.FlagLogLevel, cfg.Runtime.LogLevel, "Log level: debug|info|warn|error")
	exportCmd.Flags().StringVar(&cfg.Runtime.LogFormat, flags.FlagLogFormat, cfg.Runtime.LogFormat, "Log format: text|json")
	exportCmd.Flags().StringVar(&cfg.Runtime.ConfigFile, flags.FlagConfig, "", "YAML config file (default: "+config.DefaultFile+" if present)")
}

func joinColumns() string {
	cols := report.AllColumns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = string(c)
	}
	return strings.Join(names, ",")
}
