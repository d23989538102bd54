package output

import (
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Sink defines a destination for progress events.
type Sink interface {
	Write(e Event) error
	Close() error
}

// Manager fans events out to multiple sinks and stamps run identity and time.
type Manager struct {
	runID string
	now   func() time.Time
	sinks []Sink
}

func NewManager(runID string) *Manager {
	return &Manager{runID: runID, now: time.Now}
}

func (m *Manager) RunID() string {
	if m == nil {
		return ""
	}
	return m.runID
}

func (m *Manager) AddSink(s Sink) error {
	if m == nil {
		return goerr.New("output manager is nil")
	}
	if s == nil {
		return goerr.New("sink must not be nil")
	}
	m.sinks = append(m.sinks, s)
	return nil
}

func (m *Manager) Write(e Event) error {
	if m == nil {
		return goerr.New("output manager is nil")
	}
	if e.RunID == "" {
		e.RunID = m.runID
	}
	if e.Time.IsZero() {
		e.Time = m.now().UTC()
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(e); err != nil {
			errs = append(errs, goerr.Wrap(err, fmt.Sprintf("write %T", s)))
		}
	}
	if len(errs) > 0 {
		return goerr.Wrap(goerr.Join(errs...), "errors writing to sinks")
	}
	return nil
}

func (m *Manager) Close() error {
	if m == nil {
		return goerr.New("output manager is nil")
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, goerr.Wrap(err, fmt.Sprintf("close %T", s)))
		}
	}
	if len(errs) > 0 {
		return goerr.Wrap(goerr.Join(errs...), "errors closing sinks")
	}
	return nil
}
