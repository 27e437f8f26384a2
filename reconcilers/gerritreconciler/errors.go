/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package gerritreconciler

import "errors"

var (
	// ErrUnknownProject is returned when a repository has no Gerrit project mapping.
	ErrUnknownProject = errors.New("unknown project")
	// ErrNoAuthorsFound is returned when a pull request has no commits.
	ErrNoAuthorsFound = errors.New("no authors found")
	// ErrAllChangesClosed is returned when every change correlated with a pull
	// request has been abandoned.
	ErrAllChangesClosed = errors.New("all changes closed")
	// ErrTooManyChanges is returned when more than one open change is correlated
	// with a pull request.
	ErrTooManyChanges = errors.New("too many changes")
	// ErrChangeQueryFailed is returned when a candidate change could not be loaded.
	ErrChangeQueryFailed = errors.New("could not load pr search changesets")
	// ErrTooManyCommitsOnPR is returned when a pull request with more than one
	// commit reaches the changeset builder.
	ErrTooManyCommitsOnPR = errors.New("pull requests must have 1 commit to be processed")
	// ErrChangeIDGenerationFailed is returned when the amended commit carries no
	// Change-Id trailer.
	ErrChangeIDGenerationFailed = errors.New("failed to generate a changeid")
	// ErrNotFound is returned by host implementations for missing resources.
	ErrNotFound = errors.New("not found")
)
