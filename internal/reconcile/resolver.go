// Package reconcile resolves conflicts between a local and a remote copy of
// the same logical record. It is generic over the value type and holds no state.
package reconcile

import (
	"errors"
	"fmt"
	"time"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
)

// Strategy selects how a conflict is resolved
type Strategy string

const (
	LastWriteWins Strategy = "LAST_WRITE_WINS"
	LocalWins     Strategy = "LOCAL_WINS"
	ServerWins    Strategy = "SERVER_WINS"
	Manual        Strategy = "MANUAL"
)

// ParseStrategy maps a strategy name to a Strategy
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(name); s {
	case LastWriteWins, LocalWins, ServerWins, Manual:
		return s, nil
	default:
		return "", fmt.Errorf("unknown strategy %q: %w", name, contracts.ErrInvalidArgument)
	}
}

// Candidate is a local/remote pair of the same record.
// A nil pointer means that side is absent.
type Candidate[T any] struct {
	Key      string    `json:"key"`
	Local    *T        `json:"local,omitempty"`
	Remote   *T        `json:"remote,omitempty"`
	LocalAt  time.Time `json:"local_at"`
	RemoteAt time.Time `json:"remote_at"`
}

// Outcome is either a resolved value or a request for manual resolution
type Outcome[T any] struct {
	Value       T            `json:"value"`
	NeedsManual bool         `json:"needs_manual"`
	Candidate   Candidate[T] `json:"candidate"`
}

// Resolve applies the strategy to one candidate.
// Deterministic strategies fail with contracts.ErrInvalidArgument when both sides are absent.
func Resolve[T any](c Candidate[T], strategy Strategy) (Outcome[T], error) {
	switch strategy {
	case Manual:
		return Outcome[T]{NeedsManual: true, Candidate: c}, nil
	case LastWriteWins:
		if c.Local != nil && c.Remote != nil {
			// tie → local
			if c.RemoteAt.After(c.LocalAt) {
				return resolved(c, *c.Remote), nil
			}
			return resolved(c, *c.Local), nil
		}
		return presentSide(c, strategy, false)
	case LocalWins:
		return presentSide(c, strategy, false)
	case ServerWins:
		return presentSide(c, strategy, true)
	default:
		return Outcome[T]{}, fmt.Errorf("unknown strategy %q: %w", strategy, contracts.ErrInvalidArgument)
	}
}

func presentSide[T any](c Candidate[T], strategy Strategy, preferRemote bool) (Outcome[T], error) {
	first, second := c.Local, c.Remote
	if preferRemote {
		first, second = c.Remote, c.Local
	}
	switch {
	case first != nil:
		return resolved(c, *first), nil
	case second != nil:
		return resolved(c, *second), nil
	default:
		return Outcome[T]{}, fmt.Errorf("candidate %q has neither local nor remote value under %s: %w",
			c.Key, strategy, contracts.ErrInvalidArgument)
	}
}

func resolved[T any](c Candidate[T], value T) Outcome[T] {
	return Outcome[T]{Value: value, Candidate: c}
}

// Failure records a candidate whose resolution failed inside a batch
type Failure struct {
	Index int    `json:"index"`
	Key   string `json:"key"`
	Err   error  `json:"-"`
}

// Batch is the result of ResolveAll. Every input candidate appears in exactly
// one of Resolved / Unresolved; input order is kept in both.
type Batch[T any] struct {
	Resolved   []T            `json:"resolved"`
	Unresolved []Candidate[T] `json:"unresolved"`
	Failures   []Failure      `json:"failures,omitempty"`
}

// ResolveAll resolves every candidate with the same strategy.
//
// Failure policy: skip and continue. A failing candidate is placed in
// Unresolved, listed in Failures, and processing goes on; the returned error
// joins all failures and is nil when every candidate succeeded.
func ResolveAll[T any](candidates []Candidate[T], strategy Strategy) (Batch[T], error) {
	batch := Batch[T]{
		Resolved:   make([]T, 0, len(candidates)),
		Unresolved: make([]Candidate[T], 0),
	}

	var errs []error
	for i, c := range candidates {
		out, err := Resolve(c, strategy)
		if err != nil {
			batch.Unresolved = append(batch.Unresolved, c)
			batch.Failures = append(batch.Failures, Failure{Index: i, Key: c.Key, Err: err})
			errs = append(errs, fmt.Errorf("candidate %d: %w", i, err))
			continue
		}
		if out.NeedsManual {
			batch.Unresolved = append(batch.Unresolved, out.Candidate)
			continue
		}
		batch.Resolved = append(batch.Resolved, out.Value)
	}

	return batch, errors.Join(errs...)
}
