/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package correlator maps a pull request to the Gerrit change previously
// generated from it.
package correlator

import (
	"context"
	"fmt"

	"chainguard.dev/gerritbot/reconcilers/gerritreconciler"
	"chainguard.dev/gerritbot/reconcilers/gerritreconciler/statustag"
	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"
)

// Correlator finds changes through their correlation messages.
type Correlator struct {
	review gerritreconciler.ReviewHost
}

// New returns a Correlator querying review.
func New(review gerritreconciler.ReviewHost) *Correlator {
	return &Correlator{review: review}
}

// Query returns the Gerrit search used to find candidate changes for id.
func Query(project string, id gerritreconciler.Identity) string {
	return "project:" + project + " " + id.Path()
}

// Find returns the Change-Id of the single open change correlated with id, or
// "" when no change has been generated for it yet.
//
// Gerrit's full text search is only used to narrow candidates: a candidate
// counts only when its latest correlation message names exactly id. It fails
// with ErrAllChangesClosed when every match was abandoned and with
// ErrTooManyChanges when more than one match is still open.
func (c *Correlator) Find(ctx context.Context, id gerritreconciler.Identity, project string) (string, error) {
	log := clog.FromContext(ctx).With("pr", id.String(), "project", project)

	candidates, err := c.review.QueryChanges(ctx, Query(project, id))
	if err != nil {
		return "", fmt.Errorf("%w: %w", gerritreconciler.ErrChangeQueryFailed, err)
	}
	if len(candidates) == 0 {
		return "", nil
	}

	details := make([]*gerritreconciler.Change, len(candidates))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, cand := range candidates {
		eg.Go(func() error {
			detail, err := c.review.ChangeDetail(egCtx, cand.Key())
			if err != nil {
				return fmt.Errorf("%w: %s: %w", gerritreconciler.ErrChangeQueryFailed, cand.Key(), err)
			}
			details[i] = detail
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return "", err
	}

	var found, open []*gerritreconciler.Change
	for _, d := range details {
		linked, ok := statustag.FindCorrelation(d.Messages)
		if !ok || linked != id {
			continue
		}
		found = append(found, d)
		if !d.Abandoned() {
			open = append(open, d)
		}
	}

	log.Infof("Correlated %d of %d candidate changes (%d open)", len(found), len(candidates), len(open))
	switch {
	case len(found) == 0:
		return "", nil
	case len(open) == 0:
		return "", gerritreconciler.ErrAllChangesClosed
	case len(open) > 1:
		return "", fmt.Errorf("%w: %d open changes", gerritreconciler.ErrTooManyChanges, len(open))
	default:
		return open[0].ChangeID, nil
	}
}
