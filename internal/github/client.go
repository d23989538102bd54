// Package github wraps go-github with the transports every export needs:
// token auth, request budgeting against the rate limit, and verbose request
// logging.
package github

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v81/github"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/oauth2"
)

type Client struct {
	Client *github.Client
	HTTP   *http.Client
	Budget *RequestBudget
}

type options struct {
	verbose bool
	logger  *slog.Logger
	baseURL string
	budget  *RequestBudget
	timeout time.Duration
}

type Option func(*options)

// WithVerbose logs one line per request and response on logger.
func WithVerbose(enabled bool, logger *slog.Logger) Option {
	return func(o *options) {
		o.verbose = enabled
		o.logger = logger
	}
}

// WithBaseURL points the client at a GitHub Enterprise Server instance. An
// empty value or the public API URL keeps the github.com defaults.
func WithBaseURL(raw string) Option {
	return func(o *options) {
		o.baseURL = strings.TrimSpace(raw)
	}
}

// WithBudget throttles every request through b.
func WithBudget(b *RequestBudget) Option {
	return func(o *options) {
		o.budget = b
	}
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// loggingRoundTripper wraps an underlying transport and emits one line per
// request and response (including latency) when verbose logging is enabled.
type loggingRoundTripper struct {
	base   http.RoundTripper
	logger *slog.Logger
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	t.logger.Info("github api request", "method", req.Method, "url", req.URL.String())
	resp, err := t.base.RoundTrip(req)
	dur := time.Since(start).Truncate(time.Millisecond)
	if err != nil {
		t.logger.Info("github api error", "method", req.Method, "url", req.URL.String(), "duration", dur, "error", err)
	} else {
		t.logger.Info("github api response", "method", req.Method, "url", req.URL.String(), "status", resp.StatusCode, "duration", dur)
	}
	return resp, err
}

// budgetRoundTripper acquires one unit of budget before each request and
// feeds the rate limit headers of every response back into the budget.
type budgetRoundTripper struct {
	base   http.RoundTripper
	budget *RequestBudget
}

func (t *budgetRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.budget.Acquire(req.Context(), 1); err != nil {
		return nil, err
	}
	resp, err := t.base.RoundTrip(req)
	if resp != nil {
		t.budget.UpdateFromResponse(resp)
	}
	return resp, err
}

func NewClient(ctx context.Context, token string, opts ...Option) (*Client, error) {
	if ctx == nil {
		return nil, goerr.New("github client: ctx is nil")
	}

	o := &options{}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}
	if o.verbose && o.logger == nil {
		o.logger = slog.Default()
	}

	transport := http.DefaultTransport
	if o.verbose {
		transport = &loggingRoundTripper{base: transport, logger: o.logger}
	}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		transport = &oauth2.Transport{Source: ts, Base: transport}
	}
	if o.budget != nil {
		transport = &budgetRoundTripper{base: transport, budget: o.budget}
	}
	// Always provide an http.Client so verbose logging works even without a token.
	tc := &http.Client{Transport: transport, Timeout: o.timeout}

	client := github.NewClient(tc)
	if o.baseURL != "" && !isPublicAPI(o.baseURL) {
		var err error
		client, err = client.WithEnterpriseURLs(o.baseURL, o.baseURL)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid GitHub base URL", goerr.V("url", o.baseURL))
		}
	}

	return &Client{
		Client: client,
		HTTP:   tc,
		Budget: o.budget,
	}, nil
}

func isPublicAPI(raw string) bool {
	u := strings.TrimSuffix(strings.ToLower(raw), "/")
	return u == "https://api.github.com" || u == "https://github.com"
}
