/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package dispatcher drains a workqueue.Interface with a bounded number of
// concurrent callbacks.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chainguard.dev/gerritbot/workqueue"
	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"
)

// Callback processes a single key.
type Callback func(ctx context.Context, key string, opts workqueue.Options) error

var settledKeys = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gerritbot_dispatcher_settled_keys_total",
		Help: "The number of keys settled by the dispatcher, by outcome.",
	},
	[]string{"outcome"},
)

// Handle runs a single dispatch round and waits for the callbacks it
// launched.
func Handle(ctx context.Context, wq workqueue.Interface, concurrency, batchSize int, f Callback, maxRetry int) error {
	return HandleAsync(ctx, wq, concurrency, batchSize, f, maxRetry)()
}

// HandleAsync runs a single dispatch round: orphaned keys are requeued and
// up to concurrency keys, less those already in progress and at most
// batchSize when it is positive, are started. The returned function waits
// for the launched callbacks. A key failing with a retriable error is
// dead-lettered once it has been attempted maxRetry times, when maxRetry is
// positive.
func HandleAsync(ctx context.Context, wq workqueue.Interface, concurrency, batchSize int, f Callback, maxRetry int) func() error {
	log := clog.FromContext(ctx)

	wip, next, _, err := wq.Enumerate(ctx)
	if err != nil {
		return func() error { return fmt.Errorf("enumerate() = %w", err) }
	}

	// Settling must outlive a shutdown signal so keys are not stranded.
	settleCtx := context.WithoutCancel(ctx)

	active := 0
	for _, key := range wip {
		if !key.IsOrphaned() {
			active++
			continue
		}
		log.Warnf("Requeueing orphaned key %s", key.Name())
		if err := key.Requeue(settleCtx); err != nil {
			log.Errorf("Requeueing orphaned key %s: %v", key.Name(), err)
		}
	}

	open := concurrency - active
	if batchSize > 0 && open > batchSize {
		open = batchSize
	}
	if open <= 0 || len(next) == 0 {
		return func() error { return nil }
	}
	if open > len(next) {
		open = len(next)
	}

	var eg errgroup.Group
	for _, key := range next[:open] {
		eg.Go(func() error {
			owned, err := key.Start(ctx)
			if err != nil {
				// Another round claimed it first.
				log.Debugf("Starting key %s: %v", key.Name(), err)
				return nil
			}
			settle(settleCtx, owned, f, maxRetry)
			return nil
		})
	}
	return eg.Wait
}

func settle(ctx context.Context, owned workqueue.OwnedInProgressKey, f Callback, maxRetry int) {
	key := owned.Name()
	log := clog.FromContext(ctx).With("key", key, "attempt", owned.GetAttempts())

	err := f(owned.Context(), key, workqueue.Options{Priority: owned.Priority()})

	var outcome string
	var serr error
	if delay, ok := workqueue.GetRequeueDelay(err); ok {
		log.Infof("Requeueing after %v", delay)
		outcome = "delayed"
		serr = owned.RequeueWithOptions(ctx, workqueue.Options{
			Priority:  owned.Priority(),
			NotBefore: time.Now().Add(delay),
		})
	} else if details := workqueue.GetNonRetriableDetails(err); details != nil {
		log.Warnf("Dropping key after non-retriable error: %v (reason: %s)", err, details.Message)
		outcome, serr = "dropped", owned.Complete(ctx)
	} else if err != nil {
		if maxRetry > 0 && owned.GetAttempts() >= maxRetry {
			log.Errorf("Dead-lettering key after %d attempts: %v", owned.GetAttempts(), err)
			outcome, serr = "deadlettered", owned.Deadletter(ctx)
		} else {
			log.Warnf("Requeueing key after error: %v", err)
			outcome, serr = "requeued", owned.Requeue(ctx)
		}
	} else {
		outcome, serr = "completed", owned.Complete(ctx)
	}

	if serr != nil {
		log.Errorf("Settling key as %s: %v", outcome, serr)
		return
	}
	settledKeys.WithLabelValues(outcome).Inc()
}

// Run calls HandleAsync every period until ctx is cancelled, then waits for
// in-flight callbacks to settle. Rounds overlap, and each round counts the
// keys earlier rounds have started against concurrency.
func Run(ctx context.Context, wq workqueue.Interface, period time.Duration, concurrency, batchSize int, f Callback, maxRetry int) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		wait := HandleAsync(ctx, wq, concurrency, batchSize, f, maxRetry)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := wait(); err != nil {
				clog.ErrorContextf(ctx, "Dispatching: %v", err)
			}
		}()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
