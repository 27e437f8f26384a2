/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package prreconciler

import (
	"time"

	"chainguard.dev/gerritbot/reconcilers/gerritreconciler/changeset"
)

// DefaultTimeout is how long a pull request may stay blocked on commit count
// or CLA before it is closed.
const DefaultTimeout = 7 * 24 * time.Hour

// Option configures the Reconciler.
type Option func(*Reconciler)

// WithBotLogin sets the GitHub login the bot posts as. Only its comments are
// trusted when decoding status.
func WithBotLogin(login string) Option {
	return func(r *Reconciler) {
		r.botLogin = login
	}
}

// WithCLAGroup sets the Gerrit group whose members have signed the CLA.
func WithCLAGroup(groupID string) Option {
	return func(r *Reconciler) {
		r.claGroup = groupID
	}
}

// WithReviewURL sets the web URL of the review host, used in change links.
func WithReviewURL(url string) Option {
	return func(r *Reconciler) {
		r.reviewURL = url
	}
}

// WithRemote sets the SSH endpoint changes are pushed to.
func WithRemote(remote changeset.RemoteConfig) Option {
	return func(r *Reconciler) {
		r.remote = remote
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		r.timeout = d
	}
}

// WithClock overrides the wall clock used to age pull requests.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}
