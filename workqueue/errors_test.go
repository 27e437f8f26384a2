/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package workqueue

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestNonRetriableError(t *testing.T) {
	if err := NonRetriableError(nil, "ignored"); err != nil {
		t.Errorf("NonRetriableError(nil) = %v, want nil", err)
	}

	cause := errors.New("unknown project")
	err := fmt.Errorf("reconciling: %w", NonRetriableError(cause, "not mapped"))

	details := GetNonRetriableDetails(err)
	if details == nil {
		t.Fatal("GetNonRetriableDetails() = nil")
	}
	if details.Message != "not mapped" {
		t.Errorf("Message = %q, want %q", details.Message, "not mapped")
	}
	if !errors.Is(err, cause) {
		t.Error("non-retriable error does not unwrap to its cause")
	}

	if GetNonRetriableDetails(cause) != nil {
		t.Error("plain error reported as non-retriable")
	}
	if GetNonRetriableDetails(nil) != nil {
		t.Error("nil reported as non-retriable")
	}
}

func TestRequeueAfter(t *testing.T) {
	delay, ok := GetRequeueDelay(fmt.Errorf("wrapped: %w", RequeueAfter(time.Minute)))
	if !ok || delay != time.Minute {
		t.Errorf("GetRequeueDelay() = %v, %v, want 1m, true", delay, ok)
	}
	if _, ok := GetRequeueDelay(errors.New("boom")); ok {
		t.Error("plain error reported a requeue delay")
	}
}
