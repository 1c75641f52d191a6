// Package poll runs a device task across an inventory with bounded
// concurrency, per-device timeouts, and retry on transient transport
// failures.
package poll

import (
	"context"
	"errors"
	"time"

	"github.com/netsweep/netsweep/pkg/inventory"
	"github.com/netsweep/netsweep/pkg/transport"
)

// Outcome classifies how a device's poll ended.
type Outcome int

const (
	// OutcomeSuccess means the task completed and produced data.
	OutcomeSuccess Outcome = iota
	// OutcomeEmpty means the task completed but the device had nothing to
	// report. Not a failure and never retried.
	OutcomeEmpty
	// OutcomeConnectFailed means every connection attempt was refused or
	// unreachable.
	OutcomeConnectFailed
	// OutcomeTimedOut means the device or one of its commands exceeded its
	// deadline on every attempt.
	OutcomeTimedOut
	// OutcomeParseFailed means the device answered but its output was not
	// in a recognized format.
	OutcomeParseFailed
	// OutcomeCanceled means the run was canceled before or during this
	// device's poll.
	OutcomeCanceled
	// OutcomeFailed covers everything else.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	case OutcomeConnectFailed:
		return "connect-failed"
	case OutcomeTimedOut:
		return "timed-out"
	case OutcomeParseFailed:
		return "parse-failed"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "failed"
	}
}

// classify maps a task error to its outcome.
func classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, transport.ErrEmptyResult):
		return OutcomeEmpty
	case errors.Is(err, transport.ErrConnect):
		return OutcomeConnectFailed
	case errors.Is(err, transport.ErrCommandTimeout), errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimedOut
	case errors.Is(err, transport.ErrParse):
		return OutcomeParseFailed
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	default:
		return OutcomeFailed
	}
}

// retryable reports whether the error justifies another attempt. Only
// connection failures and timeouts do; a parse failure or an empty result
// would just repeat.
func retryable(err error) bool {
	return errors.Is(err, transport.ErrConnect) ||
		errors.Is(err, transport.ErrCommandTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Result is the terminal record for one device. Every scheduled device
// produces exactly one.
type Result struct {
	Device   inventory.Device
	Outcome  Outcome
	Payload  interface{}
	Err      error
	Attempts int
	Duration time.Duration
}

// Aggregate collects the results of a run in inventory order.
type Aggregate struct {
	Results []Result
	Counts  map[Outcome]int
	Elapsed time.Duration
}

func newAggregate(n int) *Aggregate {
	return &Aggregate{
		Results: make([]Result, n),
		Counts:  make(map[Outcome]int),
	}
}

func (a *Aggregate) tally() {
	for _, r := range a.Results {
		a.Counts[r.Outcome]++
	}
}

// Succeeded returns the count of devices that produced data.
func (a *Aggregate) Succeeded() int {
	return a.Counts[OutcomeSuccess]
}

// Failed returns the count of devices that ended in any failure outcome.
func (a *Aggregate) Failed() int {
	return len(a.Results) - a.Counts[OutcomeSuccess] - a.Counts[OutcomeEmpty]
}
