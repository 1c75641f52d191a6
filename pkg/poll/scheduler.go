package poll

import (
	"context"
	"sync"
	"time"

	"github.com/netsweep/netsweep/pkg/inventory"
	"github.com/netsweep/netsweep/pkg/util"
)

// Task interrogates one device and returns its payload. The context carries
// the per-device deadline; implementations must respect it on every blocking
// call.
type Task func(ctx context.Context, dev inventory.Device) (interface{}, error)

// Scheduler fans a Task out across devices, at most Concurrency at a time.
type Scheduler struct {
	// Concurrency caps the number of devices in flight. Zero or negative
	// selects the default.
	Concurrency int

	// Timeout bounds each device attempt end to end, connect included.
	Timeout time.Duration

	// Retries is the number of extra attempts after a transient failure.
	Retries int

	// OnProgress, when set, is called after each device finishes with the
	// number done so far and the total.
	OnProgress func(done, total int)
}

// DefaultConcurrency bounds in-flight devices when the caller does not.
const DefaultConcurrency = 6

// Run polls every device and returns one result per device, in input order.
// Canceling ctx stops dispatching new devices; devices already in flight run
// to completion, devices never started are marked canceled.
func (s *Scheduler) Run(ctx context.Context, devices []inventory.Device, task Task) *Aggregate {
	parallel := s.Concurrency
	if parallel <= 0 {
		parallel = DefaultConcurrency
	}

	agg := newAggregate(len(devices))
	start := time.Now()

	var done int
	var mu sync.Mutex
	finish := func(i int, r Result) {
		mu.Lock()
		agg.Results[i] = r
		done++
		n := done
		mu.Unlock()
		if s.OnProgress != nil {
			s.OnProgress(n, len(devices))
		}
	}

	sem := make(chan struct{}, parallel)
	var wg sync.WaitGroup
	for i, dev := range devices {
		wg.Add(1)
		go func(i int, dev inventory.Device) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				finish(i, Result{Device: dev, Outcome: OutcomeCanceled, Err: ctx.Err()})
				return
			}
			defer func() { <-sem }()

			finish(i, s.pollOne(ctx, dev, task))
		}(i, dev)
	}
	wg.Wait()

	agg.Elapsed = time.Since(start)
	agg.tally()
	return agg
}

// pollOne runs the task for one device with the retry policy applied.
func (s *Scheduler) pollOne(ctx context.Context, dev inventory.Device, task Task) Result {
	log := util.WithDevice(dev.Identity())
	start := time.Now()

	var payload interface{}
	var err error
	attempts := 0
	for attempts <= s.Retries {
		attempts++

		attemptCtx := ctx
		var cancel context.CancelFunc
		if s.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		}
		payload, err = task(attemptCtx, dev)
		if cancel != nil {
			cancel()
		}

		if err == nil || !retryable(err) {
			break
		}
		if ctx.Err() != nil {
			// The run itself is canceled; the attempt's timeout error is
			// not worth retrying against a dead context.
			err = ctx.Err()
			break
		}
		if attempts <= s.Retries {
			log.Warnf("attempt %d/%d failed, retrying: %v", attempts, s.Retries+1, err)
		}
	}

	outcome := classify(err)
	if err != nil && outcome != OutcomeEmpty {
		log.Errorf("poll ended %s after %d attempt(s): %v", outcome, attempts, err)
	}
	return Result{
		Device:   dev,
		Outcome:  outcome,
		Payload:  payload,
		Err:      err,
		Attempts: attempts,
		Duration: time.Since(start),
	}
}
