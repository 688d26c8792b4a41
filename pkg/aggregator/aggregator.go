// Package aggregator fans one tool call out into several upstream requests
// and joins them with continue-on-error semantics.
//
// Every slot settles independently: a failing or panicking slot resolves to
// its declared fallback and never cancels its siblings. The joined result
// holds exactly one outcome per slot, in declaration order.
package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/harun/apigate/internal/observability"
	"github.com/harun/apigate/internal/tracing"
	"github.com/harun/apigate/pkg/toolerr"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// Slot is one sub-request of an aggregate. A nil Fetch skips the slot: it
// resolves to Fallback without counting as a failure.
type Slot[T any] struct {
	Name     string
	Fetch    func(ctx context.Context) (T, error)
	Fallback T
}

// Outcome is the settled state of one slot.
type Outcome[T any] struct {
	Name  string
	Value T
	// Err is set when the slot failed and Value holds the fallback.
	Err     error
	Skipped bool
}

// Failed reports whether the slot fell back after an error.
func (o Outcome[T]) Failed() bool {
	return o.Err != nil
}

// SlotFailure names a slot that fell back and why.
type SlotFailure struct {
	Slot  string `json:"slot"`
	Error string `json:"error"`
}

// Result is the join of all slots of one aggregate.
type Result[T any] struct {
	outcomes []Outcome[T]
}

// JoinAll runs every slot concurrently and waits for all of them to settle.
// The wall-clock cost is that of the slowest slot.
func JoinAll[T any](ctx context.Context, aggregate string, slots ...Slot[T]) *Result[T] {
	startTime := time.Now()
	outcomes := make([]Outcome[T], len(slots))

	var wg conc.WaitGroup
	for i, slot := range slots {
		outcomes[i] = Outcome[T]{Name: slot.Name, Value: slot.Fallback}
		if slot.Fetch == nil {
			outcomes[i].Skipped = true
			continue
		}

		wg.Go(func() {
			var value T
			var err error

			var catcher panics.Catcher
			catcher.Try(func() {
				value, err = slot.Fetch(ctx)
			})
			if recovered := catcher.Recovered(); recovered != nil {
				err = toolerr.Wrap(toolerr.KindInternal,
					fmt.Sprintf("slot %s panicked: %v", slot.Name, recovered.Value), recovered.AsError())
			}

			if err != nil {
				outcomes[i].Err = err
				return
			}
			outcomes[i].Value = value
		})
	}
	wg.Wait()

	result := &Result[T]{outcomes: outcomes}

	logger := tracing.LoggerFromContext(ctx, log.Logger)
	for _, out := range outcomes {
		if !out.Failed() {
			continue
		}
		observability.RecordSlotFallback(aggregate, out.Name)
		logger.Warn().
			Str("aggregate", aggregate).
			Str("slot", out.Name).
			Str("kind", string(toolerr.KindOf(out.Err))).
			Err(out.Err).
			Msg("Aggregate slot failed, using fallback")
	}

	logger.Debug().
		Str("aggregate", aggregate).
		Int("slots", len(slots)).
		Int("failed", len(result.Failures())).
		Dur("duration", time.Since(startTime)).
		Msg("Aggregate joined")

	return result
}

// Len returns the number of slots.
func (r *Result[T]) Len() int {
	return len(r.outcomes)
}

// Outcomes returns every slot outcome in declaration order.
func (r *Result[T]) Outcomes() []Outcome[T] {
	out := make([]Outcome[T], len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

// Outcome returns the outcome of the named slot.
func (r *Result[T]) Outcome(name string) (Outcome[T], bool) {
	for _, out := range r.outcomes {
		if out.Name == name {
			return out, true
		}
	}
	return Outcome[T]{}, false
}

// Value returns the named slot's value (real or fallback).
func (r *Result[T]) Value(name string) T {
	out, _ := r.Outcome(name)
	return out.Value
}

// Failures lists the slots that fell back after an error. It is nil when
// every attempted slot succeeded.
func (r *Result[T]) Failures() []SlotFailure {
	var failures []SlotFailure
	for _, out := range r.outcomes {
		if out.Failed() {
			failures = append(failures, SlotFailure{Slot: out.Name, Error: out.Err.Error()})
		}
	}
	return failures
}

// AllFailed reports whether at least one slot was attempted and every
// attempted slot failed.
func (r *Result[T]) AllFailed() bool {
	attempted := 0
	for _, out := range r.outcomes {
		if out.Skipped {
			continue
		}
		attempted++
		if !out.Failed() {
			return false
		}
	}
	return attempted > 0
}

// FirstError returns the error of the first failed slot in declaration order.
func (r *Result[T]) FirstError() error {
	for _, out := range r.outcomes {
		if out.Failed() {
			return out.Err
		}
	}
	return nil
}
