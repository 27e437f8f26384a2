/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package cla determines the contributor license agreement state of every
// commit author on a pull request.
package cla

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chainguard.dev/gerritbot/reconcilers/gerritreconciler"
	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"
)

// Status is the CLA state of a single author.
type Status string

const (
	StatusUnknown       Status = "unknown"
	StatusNotRegistered Status = "not_registered"
	StatusRegistered    Status = "registered"
	StatusSigned        Status = "signed"
)

// Author is a distinct commit author of a pull request.
type Author struct {
	Name  string
	Email string
	// Commits holds the SHAs attributed to this author, in pull request order.
	Commits []string
	Status  Status
}

// Aggregator resolves CLA state via Gerrit group membership.
type Aggregator struct {
	code    gerritreconciler.CodeHost
	review  gerritreconciler.ReviewHost
	groupID string
}

// New returns an Aggregator that treats membership in groupID as a signed CLA.
func New(code gerritreconciler.CodeHost, review gerritreconciler.ReviewHost, groupID string) *Aggregator {
	return &Aggregator{
		code:    code,
		review:  review,
		groupID: groupID,
	}
}

// Authors returns the distinct authors of the pull request in first-seen
// order, each with its resolved CLA status. Group lookups run concurrently
// and the first lookup failure fails the whole aggregation.
func (a *Aggregator) Authors(ctx context.Context, id gerritreconciler.Identity) ([]Author, error) {
	commits, err := a.code.Commits(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing commits: %w", err)
	}

	authors := Group(commits)
	if len(authors) == 0 {
		return nil, gerritreconciler.ErrNoAuthorsFound
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for i := range authors {
		eg.Go(func() error {
			status, err := a.lookup(egCtx, authors[i].Email)
			if err != nil {
				return fmt.Errorf("checking cla for %s: %w", authors[i].Email, err)
			}
			authors[i].Status = status
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return authors, nil
}

func (a *Aggregator) lookup(ctx context.Context, email string) (Status, error) {
	groups, err := a.review.AccountGroups(ctx, email)
	if errors.Is(err, gerritreconciler.ErrNotFound) {
		clog.FromContext(ctx).With("email", email).Debug("No Gerrit account for author")
		return StatusNotRegistered, nil
	} else if err != nil {
		return StatusUnknown, err
	}
	for _, g := range groups {
		if g.ID == a.groupID {
			return StatusSigned, nil
		}
	}
	return StatusRegistered, nil
}

// Group collapses commits into authors keyed by email, preserving the order
// in which each author first appears and the order of their commits.
func Group(commits []gerritreconciler.Commit) []Author {
	var authors []Author
	index := make(map[string]int, len(commits))
	for _, c := range commits {
		i, ok := index[c.AuthorEmail]
		if !ok {
			i = len(authors)
			index[c.AuthorEmail] = i
			authors = append(authors, Author{
				Name:   c.AuthorName,
				Email:  c.AuthorEmail,
				Status: StatusUnknown,
			})
		}
		authors[i].Commits = append(authors[i].Commits, c.SHA)
	}
	return authors
}

// Summary renders the per-author report sent in reply to a chat verify request.
func Summary(id gerritreconciler.Identity, authors []Author) string {
	var b strings.Builder
	fmt.Fprintf(&b, "For PR # %d on %s/%s\n", id.Number, id.Owner, id.Repo)
	for _, a := range authors {
		fmt.Fprintf(&b, "   %s (%d commits): %s\n", a.Name, len(a.Commits), describe(a.Status))
	}
	return b.String()
}

func describe(s Status) string {
	switch s {
	case StatusNotRegistered:
		return "Not Registered"
	case StatusRegistered:
		return "Not Signed CLA"
	case StatusSigned:
		return "CLA Signed - Woo!"
	default:
		return "Unknown"
	}
}
