package dispatch

import (
	"fmt"
	"strings"
)

// Strategy selects how a dispatch invokes listeners and aggregates their outcomes.
type Strategy int

const (
	// FullEIT returns true if any listener returned true. Every listener runs.
	FullEIT Strategy = iota + 1
	// FullEIF returns false if any listener returned false. Every listener runs.
	FullEIF
	// Arithmetic returns true if at least half (rounded down) of the listeners
	// returned true. With no listeners the vote passes.
	Arithmetic
	// ShortEIT returns true at the first listener returning true and skips the rest.
	ShortEIT
	// ShortEIF returns false at the first listener returning false and skips the rest.
	ShortEIF
	// Async runs every listener in order on one background task.
	Async
	// Parallel runs each listener on its own background task.
	Parallel
)

var strategyNames = map[Strategy]string{
	FullEIT:    "full_eit",
	FullEIF:    "full_eif",
	Arithmetic: "arithmetic",
	ShortEIT:   "short_eit",
	ShortEIF:   "short_eif",
	Async:      "async",
	Parallel:   "parallel",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Valid reports whether s is one of the defined strategies.
func (s Strategy) Valid() bool {
	_, ok := strategyNames[s]
	return ok
}

// Background reports whether the strategy runs listeners off the caller goroutine.
func (s Strategy) Background() bool {
	return s == Async || s == Parallel
}

// ParseStrategy returns the strategy for a name as produced by String.
// Matching ignores case and accepts '-' in place of '_'.
func ParseStrategy(name string) (Strategy, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for s, n := range strategyNames {
		if n == normalized {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// defaultOutcome is the result of a synchronous strategy with no listeners.
func (s Strategy) defaultOutcome() bool {
	switch s {
	case FullEIF, Arithmetic, ShortEIF:
		return true
	default:
		return false
	}
}

// aggregator folds listener outcomes for the synchronous strategies.
type aggregator struct {
	strategy Strategy
	total    int
	positive int
	negative int
}

func newAggregator(s Strategy, total int) *aggregator {
	return &aggregator{strategy: s, total: total}
}

// add records an outcome and reports whether the remaining listeners can be skipped.
func (a *aggregator) add(outcome bool) (stop bool) {
	if outcome {
		a.positive++
	} else {
		a.negative++
	}
	switch a.strategy {
	case ShortEIT:
		return outcome
	case ShortEIF:
		return !outcome
	default:
		return false
	}
}

func (a *aggregator) result() bool {
	switch a.strategy {
	case FullEIT, ShortEIT:
		return a.positive > 0
	case FullEIF, ShortEIF:
		return a.negative == 0
	case Arithmetic:
		return a.positive >= a.total/2
	default:
		return false
	}
}
