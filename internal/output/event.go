package output

import "time"

// Event types emitted while an export runs.
const (
	EventRunStarted   = "run.started"
	EventOrgStarted   = "org.started"
	EventOrgFailed    = "org.failed"
	EventOrgFinished  = "org.finished"
	EventRepoCached   = "repo.cached"
	EventRepoRetry    = "repo.retry"
	EventRepoFetching = "repo.fetching"
	EventRepoFetched  = "repo.fetched"
	EventCacheFlushed = "cache.flushed"
	EventRunFinished  = "run.finished"
)

// Event is a progress record. Sinks decide which types they render; the
// NDJSON file sink writes every event as one line.
//
// Repository events carry Status ("resolved" or "errored") so consumers can
// tell cache reuse, cached failures and fresh fetches apart.
type Event struct {
	Type    string    `json:"type"`
	RunID   string    `json:"run_id,omitempty"`
	Time    time.Time `json:"time"`
	Org     string    `json:"org,omitempty"`
	Repo    string    `json:"repo,omitempty"`
	Status  string    `json:"status,omitempty"`
	Message string    `json:"message,omitempty"`
	Path    string    `json:"path,omitempty"`
	Orgs    int       `json:"orgs,omitempty"`
	Repos   int       `json:"repos,omitempty"`
	Errored int       `json:"errored,omitempty"`
}
