package scan

import "fmt"

// OutcomeKind classifies how processing of one organization ended.
type OutcomeKind int

const (
	// OutcomeOK means every repository was processed.
	OutcomeOK OutcomeKind = iota
	// OutcomeRecoverable means the organization failed but the run continues.
	OutcomeRecoverable
	// OutcomeCancelled means the run was interrupted. No further
	// organizations are processed.
	OutcomeCancelled
	// OutcomeFatal aborts the run.
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeRecoverable:
		return "recoverable"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFatal:
		return "fatal"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

type Outcome struct {
	Kind OutcomeKind
	Err  error
}

func okOutcome() Outcome {
	return Outcome{Kind: OutcomeOK}
}

func cancelled(err error) Outcome {
	return Outcome{Kind: OutcomeCancelled, Err: err}
}

func recoverable(err error) Outcome {
	return Outcome{Kind: OutcomeRecoverable, Err: err}
}

func fatal(err error) Outcome {
	return Outcome{Kind: OutcomeFatal, Err: err}
}
