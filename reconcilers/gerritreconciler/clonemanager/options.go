/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package clonemanager

import (
	"github.com/go-git/go-git/v5/plumbing/transport"
	"golang.org/x/oauth2"
)

// Option configures a Manager.
type Option func(*Manager)

// WithTokenSource authenticates clones over HTTPS with GitHub access tokens.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(m *Manager) {
		m.tokenSource = ts
	}
}

// WithPushAuth sets the credentials used when pushing, typically from SSHAuth.
func WithPushAuth(auth transport.AuthMethod) Option {
	return func(m *Manager) {
		m.pushAuth = auth
	}
}

// WithCommitter records amended commits with the given committer instead of
// the original one.
func WithCommitter(name, email string) Option {
	return func(m *Manager) {
		m.committer = &committer{name: name, email: email}
	}
}

// WithHookRunner replaces the function used to execute the commit-msg hook.
func WithHookRunner(run HookRunner) Option {
	return func(m *Manager) {
		m.runHook = run
	}
}
