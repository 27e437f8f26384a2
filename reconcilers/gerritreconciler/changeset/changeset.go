/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package changeset materializes a pull request as a Gerrit change.
//
// A build clones the pull request head, amends its single commit so that it
// carries a Change-Id (reusing the id of a previously generated change when
// one is known), pushes it for review and links the change back to the pull
// request with a correlation message.
package changeset

import (
	"context"
	"fmt"
	"strings"

	"chainguard.dev/gerritbot/reconcilers/gerritreconciler"
	"chainguard.dev/gerritbot/reconcilers/gerritreconciler/statustag"
	"github.com/chainguard-dev/clog"
)

// Outcome classifies the effect of a build on the review host.
type Outcome string

const (
	OutcomeNew       Outcome = "new"
	OutcomeUpdated   Outcome = "updated"
	OutcomeNoChanges Outcome = "no_changes"
)

// Result describes the change a build produced.
type Result struct {
	Outcome  Outcome
	ChangeID string
	// Number is the Gerrit change number, used to link to the change.
	Number int
	// Revision is the current revision of the change after the push.
	Revision string
}

// RemoteConfig locates the review host's SSH endpoint.
type RemoteConfig struct {
	// Name is the git remote name, "gerrit" when empty.
	Name string
	User string
	Host string
	Port int
}

func (r RemoteConfig) remoteName() string {
	if r.Name == "" {
		return "gerrit"
	}
	return r.Name
}

// URL returns the push URL of project.
func (r RemoteConfig) URL(project string) string {
	return fmt.Sprintf("ssh://%s@%s:%d/%s", r.User, r.Host, r.Port, project)
}

// Builder produces changes from single-commit pull requests.
type Builder struct {
	code   gerritreconciler.CodeHost
	review gerritreconciler.ReviewHost
	vcs    gerritreconciler.VCS
	remote RemoteConfig
}

// New returns a Builder.
func New(code gerritreconciler.CodeHost, review gerritreconciler.ReviewHost, vcs gerritreconciler.VCS, remote RemoteConfig) *Builder {
	return &Builder{
		code:   code,
		review: review,
		vcs:    vcs,
		remote: remote,
	}
}

// Build pushes the pull request id to project for review. priorChangeID is the
// Change-Id of the change previously generated for the pull request, or "".
//
// Push failures are logged and otherwise ignored: Gerrit rejects pushes of an
// unchanged revision, and the outcome is derived from the change's revision
// afterwards.
func (b *Builder) Build(ctx context.Context, id gerritreconciler.Identity, project, priorChangeID string) (*Result, error) {
	log := clog.FromContext(ctx).With("pr", id.String(), "project", project)

	pr, err := b.code.PullRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting pull request: %w", err)
	}
	if pr.Commits != 1 {
		return nil, fmt.Errorf("%w: found %d", gerritreconciler.ErrTooManyCommitsOnPR, pr.Commits)
	}

	ws, err := b.vcs.Clone(ctx, project, pr.HeadCloneURL, pr.HeadRef)
	if err != nil {
		return nil, fmt.Errorf("cloning %s: %w", pr.HeadCloneURL, err)
	}
	closed := false
	cleanup := func() {
		if closed {
			return
		}
		closed = true
		if err := ws.Close(ctx); err != nil {
			log.Warnf("Failed to clean up scratch clone: %v", err)
		}
	}
	defer cleanup()

	if err := ws.AddRemote(ctx, b.remote.remoteName(), b.remote.URL(project)); err != nil {
		return nil, err
	}
	hook, err := b.review.CommitMsgHook(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching commit-msg hook: %w", err)
	}
	if err := ws.InstallCommitHook(ctx, hook); err != nil {
		return nil, err
	}

	head, err := ws.HeadCommit(ctx)
	if err != nil {
		return nil, err
	}
	if err := ws.Amend(ctx, withChangeID(head.Message, priorChangeID)); err != nil {
		return nil, err
	}

	head, err = ws.HeadCommit(ctx)
	if err != nil {
		return nil, err
	}
	changeID := statustag.ExtractChangeID(head.Message)
	if changeID == "" {
		return nil, gerritreconciler.ErrChangeIDGenerationFailed
	}
	if priorChangeID != "" && changeID != priorChangeID {
		log.Warnf("Commit carries Change-Id %s, expected %s", changeID, priorChangeID)
	}
	key := gerritreconciler.ChangeKey(project, gerritreconciler.TargetBranch, changeID)
	log = log.With("change", key)

	var before string
	if priorChangeID != "" {
		if before, err = b.review.CurrentRevision(ctx, key); err != nil {
			return nil, fmt.Errorf("getting revision before push: %w", err)
		}
	}

	refspec := "refs/heads/" + pr.HeadRef + ":refs/for/" + gerritreconciler.TargetBranch
	if err := ws.Push(ctx, b.remote.remoteName(), refspec); err != nil {
		log.Infof("Push of %s was rejected: %v", head.SHA, err)
	}
	cleanup()

	change, err := b.tag(ctx, id, key)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ChangeID: changeID,
		Number:   change.Number,
		Revision: change.CurrentRevision,
	}
	switch {
	case priorChangeID == "":
		res.Outcome = OutcomeNew
	case before == res.Revision:
		res.Outcome = OutcomeNoChanges
	default:
		res.Outcome = OutcomeUpdated
	}
	log.Infof("Built change %d: %s", res.Number, res.Outcome)
	return res, nil
}

// tag links the change to the pull request unless its latest correlation
// message already does, and returns the change with its current revision.
func (b *Builder) tag(ctx context.Context, id gerritreconciler.Identity, key string) (*gerritreconciler.Change, error) {
	change, err := b.review.ChangeDetail(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("getting change detail: %w", err)
	}
	revision, err := b.review.CurrentRevision(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("getting revision after push: %w", err)
	}
	change.CurrentRevision = revision

	if linked, ok := statustag.FindCorrelation(change.Messages); ok && linked == id {
		return change, nil
	}
	if err := b.review.PostReview(ctx, key, revision, statustag.CorrelationMessage(id)); err != nil {
		return nil, fmt.Errorf("tagging change: %w", err)
	}
	return change, nil
}

// withChangeID appends a Change-Id trailer for changeID unless that is
// already the message's Change-Id.
func withChangeID(message, changeID string) string {
	if changeID == "" || statustag.ExtractChangeID(message) == changeID {
		return message
	}
	return strings.TrimRight(message, "\n") + "\n\nChange-Id: " + changeID + "\n"
}
