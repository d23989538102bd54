package output

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// ProgressSink draws one progress bar per organization. Each repository
// (cache hit or fetch) advances the bar by one.
type ProgressSink struct {
	writer io.Writer
	mu     sync.Mutex
	bar    *progressbar.ProgressBar
}

// NewProgressSink returns nil when stderr is not a terminal.
func NewProgressSink() *ProgressSink {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}
	return newProgressSink(os.Stderr)
}

func newProgressSink(w io.Writer) *ProgressSink {
	return &ProgressSink{writer: w}
}

func (s *ProgressSink) Write(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e.Type {
	case EventOrgStarted:
		s.finishLocked()
		s.bar = progressbar.NewOptions(
			e.Repos,
			progressbar.OptionSetWriter(s.writer),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetDescription(e.Org),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionThrottle(65*time.Millisecond),
		)
	case EventRepoCached, EventRepoFetched:
		if s.bar != nil {
			return s.bar.Add(1)
		}
	case EventOrgFinished, EventOrgFailed:
		return s.finishLocked()
	}
	return nil
}

func (s *ProgressSink) finishLocked() error {
	if s.bar == nil {
		return nil
	}
	err := s.bar.Finish()
	s.bar = nil
	return err
}

func (s *ProgressSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishLocked()
}
