/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package testing provides in-memory fakes of the hosts the gerrit reconciler
// talks to.
package testing

import (
	"context"
	"fmt"
	"sync"

	"chainguard.dev/gerritbot/reconcilers/gerritreconciler"
)

// CodeHost is an in-memory gerritreconciler.CodeHost. Comments created through
// it are attributed to BotLogin.
type CodeHost struct {
	BotLogin string

	mu       sync.Mutex
	prs      map[gerritreconciler.Identity]*gerritreconciler.PullRequest
	commits  map[gerritreconciler.Identity][]gerritreconciler.Commit
	comments map[gerritreconciler.Identity][]gerritreconciler.Comment
	posted   map[gerritreconciler.Identity][]string
	closed   map[gerritreconciler.Identity]bool

	// CommitsErr, when set, is returned from Commits.
	CommitsErr error
}

var _ gerritreconciler.CodeHost = (*CodeHost)(nil)

// NewCodeHost returns an empty CodeHost.
func NewCodeHost(botLogin string) *CodeHost {
	return &CodeHost{
		BotLogin: botLogin,
		prs:      make(map[gerritreconciler.Identity]*gerritreconciler.PullRequest),
		commits:  make(map[gerritreconciler.Identity][]gerritreconciler.Commit),
		comments: make(map[gerritreconciler.Identity][]gerritreconciler.Comment),
		posted:   make(map[gerritreconciler.Identity][]string),
		closed:   make(map[gerritreconciler.Identity]bool),
	}
}

// AddPullRequest registers a pull request and its commits. The commit count of
// pr is derived from commits.
func (h *CodeHost) AddPullRequest(pr gerritreconciler.PullRequest, commits ...gerritreconciler.Commit) {
	h.mu.Lock()
	defer h.mu.Unlock()
	pr.Commits = len(commits)
	h.prs[pr.Identity] = &pr
	h.commits[pr.Identity] = commits
}

// AddComment appends a pre-existing comment to a pull request.
func (h *CodeHost) AddComment(id gerritreconciler.Identity, c gerritreconciler.Comment) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.comments[id] = append(h.comments[id], c)
}

// Posted returns the bodies of the comments created on id through
// CreateComment. Comments seeded with AddComment are not included.
func (h *CodeHost) Posted(id gerritreconciler.Identity) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.posted[id]...)
}

// Closed reports whether ClosePullRequest was called for id.
func (h *CodeHost) Closed(id gerritreconciler.Identity) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed[id]
}

func (h *CodeHost) PullRequest(_ context.Context, id gerritreconciler.Identity) (*gerritreconciler.PullRequest, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	pr, ok := h.prs[id]
	if !ok {
		return nil, fmt.Errorf("pull request %s: %w", id, gerritreconciler.ErrNotFound)
	}
	cp := *pr
	return &cp, nil
}

func (h *CodeHost) Commits(_ context.Context, id gerritreconciler.Identity) ([]gerritreconciler.Commit, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.CommitsErr != nil {
		return nil, h.CommitsErr
	}
	if _, ok := h.prs[id]; !ok {
		return nil, fmt.Errorf("pull request %s: %w", id, gerritreconciler.ErrNotFound)
	}
	return append([]gerritreconciler.Commit(nil), h.commits[id]...), nil
}

func (h *CodeHost) Comments(_ context.Context, id gerritreconciler.Identity) ([]gerritreconciler.Comment, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]gerritreconciler.Comment(nil), h.comments[id]...), nil
}

func (h *CodeHost) CreateComment(_ context.Context, id gerritreconciler.Identity, body string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.comments[id] = append(h.comments[id], gerritreconciler.Comment{
		Author: h.BotLogin,
		Body:   body,
	})
	h.posted[id] = append(h.posted[id], body)
	return nil
}

func (h *CodeHost) ClosePullRequest(_ context.Context, id gerritreconciler.Identity) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if pr, ok := h.prs[id]; ok {
		pr.State = "closed"
	}
	h.closed[id] = true
	return nil
}
