/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package prreconciler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeyLockSerializesSameKey(t *testing.T) {
	locks := newKeyLock()

	var (
		active, peak atomic.Int32
		wg           sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("acme/widget#42")
			defer unlock()

			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
		}()
	}
	wg.Wait()

	if got := peak.Load(); got != 1 {
		t.Errorf("peak concurrency = %d, want 1", got)
	}
	if n := locks.len(); n != 0 {
		t.Errorf("expected lock entries to be released, %d remain", n)
	}
}

func TestKeyLockIndependentKeys(t *testing.T) {
	locks := newKeyLock()

	unlockA := locks.Lock("acme/widget#1")
	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("acme/widget#2")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("lock on a different key blocked")
	}
	unlockA()
}
