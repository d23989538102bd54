// Package flags defines canonical CLI flag names shared by the CLI and the
// config file overlay, which maps file keys onto these same names.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringSliceVar(&cfg.Targeting.Orgs, flags.FlagOrg, nil, "...")
//	arg := "--" + flags.FlagOrg
package flags

const (
	// Targeting
	FlagOrg        = "org"
	FlagEnterprise = "enterprise"
	FlagInclude    = "include"
	FlagExclude    = "exclude"
	FlagArchived   = "archived"
	FlagMaxRepos   = "max-repos"

	// Cache
	FlagCacheDir          = "cache-dir"
	FlagCacheBackend      = "cache-backend"
	FlagCacheFrequency    = "cache-frequency"
	FlagCacheIgnoreErrors = "cache-ignore-errors"

	// Output
	FlagHeaders   = "headers"
	FlagOutput    = "output"
	FlagEvents    = "events"
	FlagProgress  = "progress"
	FlagNoConsole = "no-console"

	// Runtime
	FlagGitHubURL = "github-url"
	FlagToken     = "token"
	FlagTimeout   = "timeout"
	FlagDebug     = "debug"
	FlagVerbose   = "verbose"
	FlagLogLevel  = "log-level"
	FlagLogFormat = "log-format"
	FlagConfig    = "config"
)
