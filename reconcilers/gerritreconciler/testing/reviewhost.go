/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package testing

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"chainguard.dev/gerritbot/reconcilers/gerritreconciler"
)

// Review is a message posted through ReviewHost.PostReview.
type Review struct {
	ChangeID   string
	RevisionID string
	Message    string
}

// ReviewHost is an in-memory gerritreconciler.ReviewHost.
type ReviewHost struct {
	// Hook is returned from CommitMsgHook.
	Hook []byte

	mu        sync.Mutex
	accounts  map[string][]gerritreconciler.Group
	groupErrs map[string]error
	changes   []*gerritreconciler.Change
	queries   map[string][]string
	failing   map[string]error
	reviews   []Review
}

var _ gerritreconciler.ReviewHost = (*ReviewHost)(nil)

// NewReviewHost returns an empty ReviewHost.
func NewReviewHost() *ReviewHost {
	return &ReviewHost{
		Hook:      []byte("#!/bin/sh\n"),
		accounts:  make(map[string][]gerritreconciler.Group),
		groupErrs: make(map[string]error),
		queries:   make(map[string][]string),
		failing:   make(map[string]error),
	}
}

// AddAccount registers an account with the given group ids.
func (h *ReviewHost) AddAccount(email string, groupIDs ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	groups := make([]gerritreconciler.Group, 0, len(groupIDs))
	for _, id := range groupIDs {
		groups = append(groups, gerritreconciler.Group{ID: id, Name: id})
	}
	h.accounts[email] = groups
}

// FailAccount makes AccountGroups fail for email.
func (h *ReviewHost) FailAccount(email string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.groupErrs[email] = err
}

// AddChange registers a change. Changes are looked up by full key, bare
// Change-Id or number.
func (h *ReviewHost) AddChange(c gerritreconciler.Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.ID == "" && c.Project != "" && c.ChangeID != "" {
		branch := c.Branch
		if branch == "" {
			branch = gerritreconciler.TargetBranch
		}
		c.ID = gerritreconciler.ChangeKey(c.Project, branch, c.ChangeID)
	}
	if c.Status == "" {
		c.Status = gerritreconciler.ChangeStatusNew
	}
	h.changes = append(h.changes, &c)
}

// SetQuery registers the change keys returned for query.
func (h *ReviewHost) SetQuery(query string, keys ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queries[query] = keys
}

// FailChange makes detail lookups of the given change key fail.
func (h *ReviewHost) FailChange(key string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failing[key] = err
}

// SetRevision updates the current revision of a change.
func (h *ReviewHost) SetRevision(key, revision string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c := h.find(key); c != nil {
		c.CurrentRevision = revision
	}
}

// Reviews returns every review message posted so far.
func (h *ReviewHost) Reviews() []Review {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Review(nil), h.reviews...)
}

func (h *ReviewHost) find(key string) *gerritreconciler.Change {
	for _, c := range h.changes {
		if c.ID == key || c.ChangeID == key || fmt.Sprint(c.Number) == key {
			return c
		}
	}
	return nil
}

func (h *ReviewHost) lookup(key string) (*gerritreconciler.Change, error) {
	if err, ok := h.failing[key]; ok {
		return nil, err
	}
	c := h.find(key)
	if c == nil {
		return nil, fmt.Errorf("change %s: %w", key, gerritreconciler.ErrNotFound)
	}
	return c, nil
}

func (h *ReviewHost) AccountGroups(_ context.Context, account string) ([]gerritreconciler.Group, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err, ok := h.groupErrs[account]; ok {
		return nil, err
	}
	groups, ok := h.accounts[account]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", account, gerritreconciler.ErrNotFound)
	}
	return groups, nil
}

// QueryChanges returns the changes registered with SetQuery, or failing that
// every change whose correlation messages mention the query terms.
func (h *ReviewHost) QueryChanges(_ context.Context, query string) ([]gerritreconciler.Change, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []gerritreconciler.Change
	if keys, ok := h.queries[query]; ok {
		for _, k := range keys {
			if c := h.find(k); c != nil {
				out = append(out, summary(c))
			}
		}
		return out, nil
	}

	project, terms, _ := strings.Cut(strings.TrimPrefix(query, "project:"), " ")
	for _, c := range h.changes {
		if c.Project != project {
			continue
		}
		for _, m := range c.Messages {
			if strings.Contains(m.Message, terms) {
				out = append(out, summary(c))
				break
			}
		}
	}
	return out, nil
}

// summary strips the fields Gerrit omits from query results.
func summary(c *gerritreconciler.Change) gerritreconciler.Change {
	cp := *c
	cp.Messages = nil
	cp.CurrentRevision = ""
	return cp
}

// Exists reports whether a change with the given key was added.
func (h *ReviewHost) Exists(changeID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.find(changeID) != nil
}

func (h *ReviewHost) ChangeDetail(_ context.Context, changeID string) (*gerritreconciler.Change, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, err := h.lookup(changeID)
	if err != nil {
		return nil, err
	}
	cp := *c
	cp.Messages = append([]gerritreconciler.ChangeMessage(nil), c.Messages...)
	return &cp, nil
}

func (h *ReviewHost) CurrentRevision(_ context.Context, changeID string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, err := h.lookup(changeID)
	if err != nil {
		return "", err
	}
	return c.CurrentRevision, nil
}

// PostReview records the review and appends it to the change's messages.
func (h *ReviewHost) PostReview(_ context.Context, changeID, revisionID, message string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, err := h.lookup(changeID)
	if err != nil {
		return err
	}
	c.Messages = append(c.Messages, gerritreconciler.ChangeMessage{Author: "gerritbot", Message: message})
	h.reviews = append(h.reviews, Review{ChangeID: changeID, RevisionID: revisionID, Message: message})
	return nil
}

func (h *ReviewHost) CommitMsgHook(context.Context) ([]byte, error) {
	return h.Hook, nil
}
