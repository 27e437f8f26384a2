/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package inmem implements workqueue.Interface in process memory. Queue state
// does not survive a restart; webhooks and periodic resyncs repopulate it.
package inmem

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"chainguard.dev/gerritbot/workqueue"
)

// ErrNotOwned is returned when an in-progress key is settled after its
// ownership was lost.
var ErrNotOwned = errors.New("key is no longer owned")

// Option configures a Queue.
type Option func(*Queue)

// WithClock overrides the clock used for NotBefore and lease checks.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// WithLease makes in-progress keys orphaned once they have been running for
// longer than d. Zero disables orphaning.
func WithLease(d time.Duration) Option {
	return func(q *Queue) { q.lease = d }
}

// Queue is an in-memory, de-duplicating work queue.
type Queue struct {
	now   func() time.Time
	lease time.Duration

	mu      sync.Mutex
	seq     int64
	waiting map[string]*entry
	active  map[string]*entry
	dead    map[string]*entry
}

var _ workqueue.Interface = (*Queue)(nil)

type entry struct {
	key       string
	priority  int64
	notBefore time.Time
	seq       int64
	attempts  int

	// set while in progress
	started time.Time
	ctx     context.Context
	cancel  context.CancelFunc
	pending *workqueue.Options
	failed  time.Time
}

// New returns an empty Queue.
func New(opts ...Option) *Queue {
	q := &Queue{
		now:     time.Now,
		waiting: make(map[string]*entry),
		active:  make(map[string]*entry),
		dead:    make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Queue implements workqueue.Interface.
func (q *Queue) Queue(_ context.Context, key string, opts workqueue.Options) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if e, ok := q.active[key]; ok {
		if e.pending == nil {
			e.pending = &opts
		} else {
			merged := merge(*e.pending, opts)
			e.pending = &merged
		}
		return nil
	}
	delete(q.dead, key)
	q.enqueueLocked(key, opts, 0)
	return nil
}

func (q *Queue) enqueueLocked(key string, opts workqueue.Options, attempts int) {
	if e, ok := q.waiting[key]; ok {
		m := merge(workqueue.Options{Priority: e.priority, NotBefore: e.notBefore}, opts)
		e.priority, e.notBefore = m.Priority, m.NotBefore
		e.attempts = max(e.attempts, attempts)
		return
	}
	q.seq++
	q.waiting[key] = &entry{
		key:       key,
		priority:  opts.Priority,
		notBefore: opts.NotBefore,
		seq:       q.seq,
		attempts:  attempts,
	}
}

// merge keeps the higher priority and the earlier start time.
func merge(a, b workqueue.Options) workqueue.Options {
	out := workqueue.Options{Priority: max(a.Priority, b.Priority), NotBefore: a.NotBefore}
	if b.NotBefore.Before(out.NotBefore) {
		out.NotBefore = b.NotBefore
	}
	return out
}

// Enumerate implements workqueue.Interface. Queued keys are ordered by
// priority and then by the order they were first queued; keys whose
// NotBefore is in the future are omitted.
func (q *Queue) Enumerate(context.Context) ([]workqueue.ObservedInProgressKey, []workqueue.QueuedKey, []workqueue.DeadLetteredKey, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()

	wip := make([]workqueue.ObservedInProgressKey, 0, len(q.active))
	for _, e := range q.active {
		wip = append(wip, &observedKey{q: q, e: e, orphaned: q.lease > 0 && now.Sub(e.started) > q.lease})
	}
	slices.SortFunc(wip, func(a, b workqueue.ObservedInProgressKey) int { return cmp.Compare(a.Name(), b.Name()) })

	ready := make([]*entry, 0, len(q.waiting))
	for _, e := range q.waiting {
		if !e.notBefore.After(now) {
			ready = append(ready, e)
		}
	}
	slices.SortFunc(ready, func(a, b *entry) int {
		if c := cmp.Compare(b.priority, a.priority); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	next := make([]workqueue.QueuedKey, 0, len(ready))
	for _, e := range ready {
		next = append(next, &queuedKey{q: q, e: e})
	}

	dead := make([]workqueue.DeadLetteredKey, 0, len(q.dead))
	for _, e := range q.dead {
		dead = append(dead, &deadKey{e: *e})
	}
	slices.SortFunc(dead, func(a, b workqueue.DeadLetteredKey) int { return cmp.Compare(a.Name(), b.Name()) })

	return wip, next, dead, nil
}

// Len returns the number of keys waiting, including those not yet due.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

type queuedKey struct {
	q *Queue
	e *entry
}

func (k *queuedKey) Name() string    { return k.e.key }
func (k *queuedKey) Priority() int64 { return k.e.priority }

func (k *queuedKey) Start(ctx context.Context) (workqueue.OwnedInProgressKey, error) {
	q := k.q
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.waiting[k.e.key] != k.e {
		return nil, fmt.Errorf("key %q is no longer queued", k.e.key)
	}
	delete(q.waiting, k.e.key)

	e := k.e
	e.attempts++
	e.started = q.now()
	e.ctx, e.cancel = context.WithCancel(ctx)
	q.active[e.key] = e
	return &ownedKey{q: q, e: e}, nil
}

type observedKey struct {
	q        *Queue
	e        *entry
	orphaned bool
}

func (k *observedKey) Name() string     { return k.e.key }
func (k *observedKey) Priority() int64  { return k.e.priority }
func (k *observedKey) IsOrphaned() bool { return k.orphaned }

func (k *observedKey) Requeue(context.Context) error {
	return k.q.release(k.e, func(q *Queue, e *entry) {
		q.requeueLocked(e, workqueue.Options{Priority: e.priority}, e.attempts)
	})
}

type ownedKey struct {
	q *Queue
	e *entry
}

var _ workqueue.OwnedInProgressKey = (*ownedKey)(nil)

func (k *ownedKey) Name() string             { return k.e.key }
func (k *ownedKey) Priority() int64          { return k.e.priority }
func (k *ownedKey) Context() context.Context { return k.e.ctx }
func (k *ownedKey) GetAttempts() int         { return k.e.attempts }

func (k *ownedKey) Complete(context.Context) error {
	return k.q.release(k.e, func(q *Queue, e *entry) {
		if e.pending != nil {
			q.enqueueLocked(e.key, *e.pending, 0)
		}
	})
}

func (k *ownedKey) Requeue(context.Context) error {
	return k.q.release(k.e, func(q *Queue, e *entry) {
		q.requeueLocked(e, workqueue.Options{Priority: e.priority}, e.attempts)
	})
}

func (k *ownedKey) RequeueWithOptions(_ context.Context, opts workqueue.Options) error {
	return k.q.release(k.e, func(q *Queue, e *entry) {
		attempts := e.attempts
		if !opts.NotBefore.IsZero() {
			attempts--
		}
		q.requeueLocked(e, opts, attempts)
	})
}

func (k *ownedKey) Deadletter(context.Context) error {
	return k.q.release(k.e, func(q *Queue, e *entry) {
		if e.pending != nil {
			// A fresh request supersedes the failure.
			q.enqueueLocked(e.key, *e.pending, 0)
			return
		}
		e.failed = q.now()
		q.dead[e.key] = e
	})
}

// requeueLocked returns an in-progress entry to the queue with the given
// attempt count, folding in any request that arrived while it ran.
func (q *Queue) requeueLocked(e *entry, opts workqueue.Options, attempts int) {
	if e.pending != nil {
		opts = merge(opts, *e.pending)
	}
	q.enqueueLocked(e.key, opts, attempts)
}

// release removes e from the in-progress set and applies then.
func (q *Queue) release(e *entry, then func(*Queue, *entry)) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.active[e.key] != e {
		return fmt.Errorf("%s: %w", e.key, ErrNotOwned)
	}
	delete(q.active, e.key)
	e.cancel()
	then(q, e)
	return nil
}

type deadKey struct {
	e entry
}

func (k *deadKey) Name() string          { return k.e.key }
func (k *deadKey) Priority() int64       { return k.e.priority }
func (k *deadKey) FailedTime() time.Time { return k.e.failed }
func (k *deadKey) GetAttempts() int      { return k.e.attempts }
