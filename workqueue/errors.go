/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package workqueue

import (
	"errors"
	"fmt"
	"time"
)

// NonRetriableDetails describes why a key should not be retried.
type NonRetriableDetails struct {
	Message string
}

type nonRetriableError struct {
	err     error
	details NonRetriableDetails
}

func (e *nonRetriableError) Error() string {
	return fmt.Sprintf("non-retriable: %v (%s)", e.err, e.details.Message)
}

func (e *nonRetriableError) Unwrap() error { return e.err }

// NonRetriableError marks err as permanent. The dispatcher completes keys that
// fail with such an error instead of requeueing them. It returns nil when err
// is nil.
func NonRetriableError(err error, reason string) error {
	if err == nil {
		return nil
	}
	return &nonRetriableError{err: err, details: NonRetriableDetails{Message: reason}}
}

// GetNonRetriableDetails returns the details attached by NonRetriableError, or
// nil if err is retriable.
func GetNonRetriableDetails(err error) *NonRetriableDetails {
	var nre *nonRetriableError
	if errors.As(err, &nre) {
		return &nre.details
	}
	return nil
}

type requeueError struct {
	delay time.Duration
}

func (e *requeueError) Error() string {
	return fmt.Sprintf("requeue after %v", e.delay)
}

// RequeueAfter asks the dispatcher to process the key again after delay. It
// is not a failure: the attempt that returned it does not count towards the
// retry limit.
func RequeueAfter(delay time.Duration) error {
	return &requeueError{delay: delay}
}

// GetRequeueDelay returns the delay requested with RequeueAfter.
func GetRequeueDelay(err error) (time.Duration, bool) {
	var re *requeueError
	if errors.As(err, &re) {
		return re.delay, true
	}
	return 0, false
}
