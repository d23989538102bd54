package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// ConsoleSink renders human-readable progress, one line per repository,
// tagged by where the record came from:
//
//	[C] cache hit            [C] ... (error) cached failure
//	[R] cached failure retry [F] fresh fetch
type ConsoleSink struct {
	writer io.Writer
	mu     sync.Mutex

	cached  func(a ...any) string
	retry   func(a ...any) string
	fetched func(a ...any) string
	failed  func(a ...any) string
	header  func(a ...any) string
}

func NewConsoleSink(w io.Writer) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleSink{
		writer:  w,
		cached:  color.New(color.FgCyan).SprintFunc(),
		retry:   color.New(color.FgYellow).SprintFunc(),
		fetched: color.New(color.FgGreen).SprintFunc(),
		failed:  color.New(color.FgRed).SprintFunc(),
		header:  color.New(color.Bold).SprintFunc(),
	}
}

func (s *ConsoleSink) Write(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var line string
	switch e.Type {
	case EventOrgStarted:
		line = s.header(fmt.Sprintf("GitHub Organization :: %s (%d repositories)", e.Org, e.Repos))
	case EventOrgFailed:
		line = s.failed(fmt.Sprintf("Error processing organization %s: %s", e.Org, e.Message))
	case EventRepoCached:
		if e.Status == "errored" {
			line = fmt.Sprintf(" - %s %s (error)", s.cached("[C]"), e.Repo)
		} else {
			line = fmt.Sprintf(" - %s %s", s.cached("[C]"), e.Repo)
		}
	case EventRepoRetry:
		line = fmt.Sprintf(" - %s %s (cached error ignored)", s.retry("[R]"), e.Repo)
	case EventRepoFetching:
		line = fmt.Sprintf(" - %s %s", s.fetched("[F]"), e.Repo)
	case EventRepoFetched:
		if e.Status != "errored" {
			return nil
		}
		line = fmt.Sprintf("   %s %s: %s", s.failed("!"), e.Repo, e.Message)
	case EventRunFinished:
		line = fmt.Sprintf("Processed %d repositories (%d errored or skipped)", e.Repos, e.Errored)
	default:
		return nil
	}

	_, err := fmt.Fprintln(s.writer, line)
	return err
}

func (s *ConsoleSink) Close() error {
	return nil
}
