/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package workqueue

import (
	"context"
	"time"
)

// Options control how a key is queued.
type Options struct {
	// Priority orders queued keys, higher first.
	Priority int64
	// NotBefore delays processing of the key until the given time.
	NotBefore time.Time
}

// Interface is the work queue consumed by the dispatcher.
type Interface interface {
	// Queue adds key to the queue, merging with any waiting entry.
	Queue(ctx context.Context, key string, opts Options) error

	// Enumerate returns the keys in progress, the keys ready to be started in
	// the order they should be started, and the dead-lettered keys.
	Enumerate(ctx context.Context) ([]ObservedInProgressKey, []QueuedKey, []DeadLetteredKey, error)
}

// Key is the common view of a key in any state.
type Key interface {
	Name() string
	Priority() int64
}

// QueuedKey is a key waiting to be processed.
type QueuedKey interface {
	Key

	// Start claims the key for processing.
	Start(ctx context.Context) (OwnedInProgressKey, error)
}

// ObservedInProgressKey is a key being processed, possibly by a worker that
// has gone away.
type ObservedInProgressKey interface {
	Key

	// IsOrphaned reports whether the worker owning the key stopped
	// heartbeating.
	IsOrphaned() bool

	// Requeue returns the key to the queue.
	Requeue(ctx context.Context) error
}

// OwnedInProgressKey is a key claimed by this process.
type OwnedInProgressKey interface {
	Key

	// Context is cancelled if ownership of the key is lost.
	Context() context.Context

	// GetAttempts returns the number of times the key has been started,
	// including the current attempt.
	GetAttempts() int

	Complete(ctx context.Context) error
	// Requeue returns the key to the queue after a failed attempt.
	Requeue(ctx context.Context) error
	// RequeueWithOptions returns the key to the queue. When opts.NotBefore
	// is set the current attempt is given back, so deferred work does not
	// use up retries.
	RequeueWithOptions(ctx context.Context, opts Options) error
	Deadletter(ctx context.Context) error
}

// DeadLetteredKey is a key that exhausted its retries.
type DeadLetteredKey interface {
	Key

	FailedTime() time.Time
	GetAttempts() int
}
