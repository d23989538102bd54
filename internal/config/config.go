package config

import (
	"net/url"
	"strings"
	"time"

	"ghasexport/internal/cachestore"
	"ghasexport/internal/discovery"
	"ghasexport/internal/logging"
	"ghasexport/internal/report"

	"github.com/m-mizutani/goerr/v2"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields, keep the CLI
	// flags in internal/cli/export.go in sync; config files are applied
	// through those same flags.
	Targeting Targeting
	Cache     Cache
	Output    Output
	Runtime   Runtime
}

type Targeting struct {
	// Orgs are the GitHub organizations to export (names or URLs; see --org).
	// Values may be provided as repeated flags and/or comma-separated lists.
	Orgs []string

	// Enterprise is the GitHub enterprise slug whose organizations are
	// exported (name or URL; see --enterprise).
	Enterprise string

	// Include filters repositories by name using Go path.Match style (see --include).
	// If a pattern contains '/', it matches OWNER/REPO; otherwise it matches repo name.
	Include []string

	// Exclude filters repositories by name using Go path.Match style (see --exclude).
	Exclude []string

	// Archived controls how archived repos are handled (see --archived).
	// Allowed values: include, exclude, only.
	Archived string

	// MaxRepos limits how many repositories are exported per organization (see --max-repos).
	// 0 means unlimited.
	MaxRepos int
}

type Cache struct {
	// Dir holds one cache document per organization (see --cache-dir).
	Dir string

	// Backend selects the cache document format: json or sqlite (see --cache-backend).
	Backend string

	// Frequency is the number of fetched repositories between cache writes
	// (see --cache-frequency). Must be >= 1.
	Frequency int

	// IgnoreErrors re-fetches repositories whose cached record is errored
	// (see --cache-ignore-errors).
	IgnoreErrors bool
}

type Output struct {
	// Headers is the comma-separated CSV column list (see --headers).
	Headers string

	// Path is the CSV report path (see --output).
	Path string

	// Events writes an NDJSON progress event stream to this path (see --events).
	Events string

	// Progress draws a progress bar on stderr when it is a terminal (see --progress).
	Progress bool

	// NoConsole suppresses the per-repository console lines (see --no-console).
	NoConsole bool
}

type Runtime struct {
	// GitHubURL is the API base URL; empty means github.com (see --github-url).
	GitHubURL string

	// Token is the GitHub access token (see --token). Empty means resolve from
	// the environment, the gh CLI or an interactive prompt.
	Token string `masq:"secret"`

	// Timeout bounds each GitHub API request (see --timeout). Must be > 0.
	Timeout time.Duration

	// Debug makes organization-level failures abort the run (see --debug).
	Debug bool

	// Verbose logs every GitHub API call (see --verbose).
	Verbose bool

	// LogLevel is one of debug, info, warn, error (see --log-level).
	LogLevel string

	// LogFormat is text or json (see --log-format).
	LogFormat string

	// ConfigFile is an optional YAML file whose keys are flag names (see --config).
	ConfigFile string
}

func New() *Config {
	return &Config{
		Targeting: Targeting{
			Archived: discovery.ArchivedInclude,
		},
		Cache: Cache{
			Dir:       ".cache",
			Backend:   cachestore.BackendJSON,
			Frequency: 10,
		},
		Output: Output{
			Headers: report.DefaultHeaders,
			Path:    "output.csv",
		},
		Runtime: Runtime{
			Timeout:   2 * time.Minute,
			LogLevel:  "info",
			LogFormat: logging.FormatText,
		},
	}
}

func (c *Config) Validate() error {
	// Normalize comma-delimited list inputs.
	c.Targeting.Orgs = splitCommaList(c.Targeting.Orgs)
	c.Targeting.Include = splitCommaList(c.Targeting.Include)
	c.Targeting.Exclude = splitCommaList(c.Targeting.Exclude)

	// Normalize account selectors.
	orgs := make([]string, 0, len(c.Targeting.Orgs))
	for _, raw := range c.Targeting.Orgs {
		org, err := normalizeAccountSelector(raw)
		if err != nil {
			return goerr.Wrap(err, "invalid --org value")
		}
		orgs = append(orgs, org)
	}
	c.Targeting.Orgs = dedupe(orgs)

	if c.Targeting.Enterprise != "" {
		ent, err := normalizeEnterpriseSelector(c.Targeting.Enterprise)
		if err != nil {
			return goerr.Wrap(err, "invalid --enterprise value")
		}
		c.Targeting.Enterprise = ent
	}

	// Targeting validation
	if len(c.Targeting.Orgs) == 0 && c.Targeting.Enterprise == "" {
		return goerr.New("one of --org or --enterprise must be provided")
	}
	if len(c.Targeting.Orgs) > 0 && c.Targeting.Enterprise != "" {
		return goerr.New("--org and --enterprise are mutually exclusive")
	}

	c.Targeting.Archived = normalizeEnumValue(c.Targeting.Archived)
	if c.Targeting.Archived == "" {
		c.Targeting.Archived = discovery.ArchivedInclude
	}
	switch c.Targeting.Archived {
	case discovery.ArchivedInclude, discovery.ArchivedExclude, discovery.ArchivedOnly:
	default:
		return goerr.New("unsupported --archived (must be one of: include, exclude, only)", goerr.V("archived", c.Targeting.Archived))
	}
	if c.Targeting.MaxRepos < 0 {
		return goerr.New("--max-repos must be >= 0", goerr.V("max_repos", c.Targeting.MaxRepos))
	}

	// Cache validation
	c.Cache.Dir = strings.TrimSpace(c.Cache.Dir)
	if c.Cache.Dir == "" {
		return goerr.New("--cache-dir must not be empty")
	}
	c.Cache.Backend = normalizeEnumValue(c.Cache.Backend)
	if c.Cache.Backend == "" {
		c.Cache.Backend = cachestore.BackendJSON
	}
	if c.Cache.Backend != cachestore.BackendJSON && c.Cache.Backend != cachestore.BackendSQLite {
		return goerr.New("unsupported --cache-backend (must be one of: json, sqlite)", goerr.V("cache_backend", c.Cache.Backend))
	}
	if c.Cache.Frequency < 1 {
		return goerr.New("--cache-frequency must be >= 1", goerr.V("cache_frequency", c.Cache.Frequency))
	}

	// Output validation
	c.Output.Path = strings.TrimSpace(c.Output.Path)
	if c.Output.Path == "" {
		return goerr.New("--output must not be empty")
	}
	if strings.TrimSpace(c.Output.Headers) == "" {
		c.Output.Headers = report.DefaultHeaders
	}
	c.Output.Events = strings.TrimSpace(c.Output.Events)

	// Runtime validation
	c.Runtime.GitHubURL = strings.TrimSpace(c.Runtime.GitHubURL)
	if c.Runtime.GitHubURL != "" {
		u, err := url.Parse(c.Runtime.GitHubURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return goerr.New("invalid --github-url (expected http(s)://host[/api/v3])", goerr.V("github_url", c.Runtime.GitHubURL))
		}
	}
	if c.Runtime.Timeout <= 0 {
		return goerr.New("--timeout must be > 0", goerr.V("timeout", c.Runtime.Timeout))
	}
	if _, err := logging.ParseLevel(c.Runtime.LogLevel); err != nil {
		return goerr.New("unsupported --log-level (must be one of: debug, info, warn, error)", goerr.V("log_level", c.Runtime.LogLevel))
	}
	c.Runtime.LogFormat = normalizeEnumValue(c.Runtime.LogFormat)
	if c.Runtime.LogFormat != logging.FormatText && c.Runtime.LogFormat != logging.FormatJSON {
		return goerr.New("unsupported --log-format (must be one of: text, json)", goerr.V("log_format", c.Runtime.LogFormat))
	}

	return nil
}

// Columns returns the report columns selected by Headers and any names that
// matched no column.
func (c *Config) Columns() ([]report.Column, []string) {
	return report.ParseColumns(strings.Split(c.Output.Headers, ","))
}

// Filter returns the repository filter selected by Targeting.
func (c *Config) Filter() discovery.Filter {
	return discovery.Filter{
		Include:  c.Targeting.Include,
		Exclude:  c.Targeting.Exclude,
		Archived: c.Targeting.Archived,
		MaxRepos: c.Targeting.MaxRepos,
	}
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func normalizeEnterpriseSelector(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	// Accept a raw enterprise slug, or a GitHub URL like:
	//   https://github.com/enterprises/<slug>
	//   github.com/enterprises/<slug>
	if strings.HasPrefix(raw, "github.com/") || strings.HasPrefix(raw, "www.github.com/") {
		raw = "https://" + raw
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", goerr.New("malformed enterprise selector", goerr.V("enterprise", raw))
		}
		parts := strings.FieldsFunc(strings.Trim(u.Path, "/"), func(r rune) bool { return r == '/' })
		if len(parts) < 2 || parts[0] != "enterprises" {
			return "", goerr.New("malformed enterprise selector", goerr.V("enterprise", raw))
		}
		return parts[1], nil
	}

	// Basic sanity: reject obvious owner/repo-like inputs.
	if strings.Contains(raw, "/") {
		return "", goerr.New("malformed enterprise selector", goerr.V("enterprise", raw))
	}
	return raw, nil
}

func normalizeAccountSelector(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", goerr.New("malformed organization selector", goerr.V("org", raw))
	}

	// Accept a raw organization name, or a URL on github.com or an
	// Enterprise Server host like:
	//   https://github.com/<name>
	//   https://github.com/orgs/<name>
	//   github.com/<name>
	if strings.HasPrefix(raw, "github.com/") || strings.HasPrefix(raw, "www.github.com/") {
		raw = "https://" + raw
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", goerr.New("malformed organization selector", goerr.V("org", raw))
		}
		parts := strings.FieldsFunc(strings.Trim(u.Path, "/"), func(r rune) bool { return r == '/' })
		if len(parts) == 0 {
			return "", goerr.New("malformed organization selector", goerr.V("org", raw))
		}
		if parts[0] == "orgs" {
			if len(parts) < 2 {
				return "", goerr.New("malformed organization selector", goerr.V("org", raw))
			}
			return parts[1], nil
		}
		return parts[0], nil
	}

	// Basic sanity: reject obvious repo-like inputs.
	if strings.Contains(raw, "/") {
		return "", goerr.New("malformed organization selector", goerr.V("org", raw))
	}
	return raw, nil
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
