package cli

import (
	"fmt"
	"os"

	"ghasexport/internal/flags"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "ghasexport",
	Short: "Export GitHub Advanced Security alert counts to CSV",
	Long: `ghasexport walks every repository of a GitHub organization (or of every
organization in an enterprise) and writes a CSV summary of open code scanning,
Dependabot and secret scanning alerts.

Progress is cached per organization, so an interrupted export resumes where it
stopped when the same command is run again.

Examples:
	# Show available commands and global flags
	ghasexport --help

	# Export one organization
	ghasexport export --org my-org

	# Export every organization of an enterprise
	ghasexport export --enterprise my-enterprise --output ghas.csv

	# Print build info
	ghasexport version`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, flags.FlagVerbose, false, "Enable verbose logging (prints every GitHub API call)")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
