package record

import (
	"encoding/json"
	"fmt"
)

// DisabledSentinel is the count persisted and reported for a feature that is
// disabled on the repository.
const DisabledSentinel = -1

// Ref identifies a repository.
type Ref struct {
	Owner string
	Name  string
}

func (r Ref) FullName() string {
	return r.Owner + "/" + r.Name
}

func (r Ref) String() string {
	return r.FullName()
}

// Feature is one of the security scanning subsystems queried per repository.
type Feature string

const (
	FeatureCodeScanning   Feature = "code_scanning"
	FeatureDependabot     Feature = "dependabot"
	FeatureSecretScanning Feature = "secret_scanning"
)

// Features lists every feature in fetch and report order.
func Features() []Feature {
	return []Feature{FeatureCodeScanning, FeatureDependabot, FeatureSecretScanning}
}

// ResultState tags a FeatureResult.
type ResultState int

const (
	// StatePending means the feature has not been fetched (or the fetch failed before it).
	StatePending ResultState = iota
	// StateCounted means Alerts holds the number of alerts reported.
	StateCounted
	// StateDisabled means the feature is disabled for the repository.
	StateDisabled
)

// FeatureResult is the outcome of querying one feature for one repository.
type FeatureResult struct {
	State  ResultState
	Alerts int
}

func Counted(n int) FeatureResult {
	return FeatureResult{State: StateCounted, Alerts: n}
}

func Disabled() FeatureResult {
	return FeatureResult{State: StateDisabled}
}

func (f FeatureResult) IsPending() bool {
	return f.State == StatePending
}

// Value returns the persisted form of the result: the alert count, the
// disabled sentinel, or nil while pending.
func (f FeatureResult) Value() *int {
	switch f.State {
	case StateCounted:
		n := f.Alerts
		return &n
	case StateDisabled:
		n := DisabledSentinel
		return &n
	default:
		return nil
	}
}

func resultFromValue(v *int) FeatureResult {
	switch {
	case v == nil:
		return FeatureResult{}
	case *v == DisabledSentinel:
		return Disabled()
	default:
		return Counted(*v)
	}
}

// Status is the overall state of a Record.
type Status string

const (
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
	StatusErrored  Status = "errored"
)

// Record holds the scan results for one repository.
type Record struct {
	Owner string
	Name  string

	CodeScanning   FeatureResult
	Dependabot     FeatureResult
	SecretScanning FeatureResult

	// Error is the message of the last failed fetch, if any.
	Error string
}

func New(ref Ref) Record {
	return Record{Owner: ref.Owner, Name: ref.Name}
}

func (r Record) Ref() Ref {
	return Ref{Owner: r.Owner, Name: r.Name}
}

// Result returns the outcome recorded for a feature.
func (r Record) Result(f Feature) FeatureResult {
	switch f {
	case FeatureCodeScanning:
		return r.CodeScanning
	case FeatureDependabot:
		return r.Dependabot
	case FeatureSecretScanning:
		return r.SecretScanning
	default:
		return FeatureResult{}
	}
}

// Set stores the outcome for a feature.
func (r *Record) Set(f Feature, res FeatureResult) {
	switch f {
	case FeatureCodeScanning:
		r.CodeScanning = res
	case FeatureDependabot:
		r.Dependabot = res
	case FeatureSecretScanning:
		r.SecretScanning = res
	}
}

func (r Record) Status() Status {
	pending := 0
	for _, f := range Features() {
		if r.Result(f).IsPending() {
			pending++
		}
	}
	switch {
	case r.Error == "" && pending == 0:
		return StatusResolved
	case r.Error == "" && pending == len(Features()):
		return StatusPending
	default:
		return StatusErrored
	}
}

// IsError reports whether the record is not fully resolved. A record with any
// pending feature is errored regardless of its Error message.
func (r Record) IsError() bool {
	return r.Status() != StatusResolved
}

func (r Record) String() string {
	if r.IsError() {
		return fmt.Sprintf("%s/%s (error)", r.Owner, r.Name)
	}
	return fmt.Sprintf("%s/%s", r.Owner, r.Name)
}

// wireRecord is the cache document form. Nulls are written explicitly so the
// document shape is stable across pending and resolved records.
type wireRecord struct {
	Owner          string  `json:"owner"`
	Name           string  `json:"name"`
	CodeScanning   *int    `json:"code_scanning"`
	Dependabot     *int    `json:"dependabot"`
	SecretScanning *int    `json:"secret_scanning"`
	Error          *string `json:"error"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	w := wireRecord{
		Owner:          r.Owner,
		Name:           r.Name,
		CodeScanning:   r.CodeScanning.Value(),
		Dependabot:     r.Dependabot.Value(),
		SecretScanning: r.SecretScanning.Value(),
	}
	if r.Error != "" {
		msg := r.Error
		w.Error = &msg
	}
	return json.Marshal(w)
}

func (r *Record) UnmarshalJSON(b []byte) error {
	var w wireRecord
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = FromValues(w.Owner, w.Name, w.CodeScanning, w.Dependabot, w.SecretScanning, w.Error)
	return nil
}

// FromValues rebuilds a Record from its persisted column values.
func FromValues(owner, name string, codeScanning, dependabot, secretScanning *int, errMsg *string) Record {
	r := Record{
		Owner:          owner,
		Name:           name,
		CodeScanning:   resultFromValue(codeScanning),
		Dependabot:     resultFromValue(dependabot),
		SecretScanning: resultFromValue(secretScanning),
	}
	if errMsg != nil {
		r.Error = *errMsg
	}
	return r
}
