/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package prreconciler

import (
	"time"

	"chainguard.dev/gerritbot/reconcilers/gerritreconciler/changeset"
	"chainguard.dev/gerritbot/reconcilers/gerritreconciler/cla"
	"chainguard.dev/gerritbot/reconcilers/gerritreconciler/statustag"
)

// decide returns the status a pull request is held at and true, or false when
// it may proceed to Gerrit. The CLA check runs after the commit count check
// and wins when both fail. A held pull request older than timeout times out.
func decide(authors []cla.Author, created, now time.Time, timeout time.Duration) (statustag.Status, bool) {
	if len(authors) == 0 {
		return statustag.TooManyCommits, true
	}

	status, held := statustag.New, false
	if len(authors) != 1 || len(authors[0].Commits) != 1 {
		status, held = statustag.TooManyCommits, true
	}
	if authors[0].Status != cla.StatusSigned {
		status, held = statustag.NoCLA, true
	}
	if held && now.Sub(created) >= timeout {
		status = statustag.Timeout
	}
	return status, held
}

// outcomeStatus maps a build outcome to the status to announce. An unchanged
// change is still announced as pushed until a created or pushed status has
// been posted.
func outcomeStatus(outcome changeset.Outcome, old statustag.Status) statustag.Status {
	switch outcome {
	case changeset.OutcomeNew:
		return statustag.GerritCreated
	case changeset.OutcomeNoChanges:
		if old >= statustag.GerritCreated {
			return statustag.NoChanges
		}
	}
	return statustag.GerritPushed
}

// shouldAnnounce reports whether moving from old to next warrants a comment.
// expected is false for transitions the lifecycle does not allow.
func shouldAnnounce(old, next statustag.Status) (post, expected bool) {
	switch {
	case next == statustag.NoChanges:
		return false, true
	case next == statustag.GerritCreated, next == statustag.GerritPushed:
		return true, true
	case old == next:
		return false, true
	}

	switch next {
	case statustag.TooManyCommits, statustag.NoCLA, statustag.GerritClosed, statustag.Timeout:
		if old < next {
			return true, true
		}
	}
	return false, false
}
