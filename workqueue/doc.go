/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package workqueue defines the keyed work queue abstraction drained by the
// dispatcher, and the error values reconcilers use to tell the dispatcher how
// a failed key should be handled.
//
// A key is queued at most once at a time. Queueing a key that is already
// waiting merges the two requests, keeping the higher priority and the
// earlier NotBefore. Queueing a key that is in progress queues it again
// behind the running attempt.
package workqueue
