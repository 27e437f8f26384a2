/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package gerritreconciler

import (
	"context"
	"time"
)

// PullRequest is the subset of GitHub pull request metadata the reconciler reads.
type PullRequest struct {
	Identity

	Title     string
	State     string
	CreatedAt time.Time
	// Commits is the commit count reported by GitHub for the pull request.
	Commits int

	HeadRef      string
	HeadSHA      string
	HeadCloneURL string
}

// Commit is a single commit of a pull request.
type Commit struct {
	SHA         string
	AuthorName  string
	AuthorEmail string
}

// Comment is an issue comment on a pull request.
type Comment struct {
	Author    string
	Body      string
	CreatedAt time.Time
}

// CodeHost is the GitHub capability consumed by the reconciler.
type CodeHost interface {
	PullRequest(ctx context.Context, id Identity) (*PullRequest, error)
	// Commits returns the pull request commits in the order GitHub reports them.
	Commits(ctx context.Context, id Identity) ([]Commit, error)
	// Comments returns every issue comment on the pull request, oldest first.
	Comments(ctx context.Context, id Identity) ([]Comment, error)
	CreateComment(ctx context.Context, id Identity, body string) error
	ClosePullRequest(ctx context.Context, id Identity) error
}

// Change status values reported by Gerrit.
const (
	ChangeStatusNew       = "NEW"
	ChangeStatusMerged    = "MERGED"
	ChangeStatusAbandoned = "ABANDONED"
)

// TargetBranch is the branch every generated change is pushed for review against.
const TargetBranch = "master"

// Group is a Gerrit group membership.
type Group struct {
	ID   string
	Name string
}

// ChangeMessage is a single message in a change's history.
type ChangeMessage struct {
	Author  string
	Message string
}

// Change is the subset of Gerrit change metadata the reconciler reads.
type Change struct {
	// ID is the fully qualified change key, project~branch~Change-Id.
	ID string
	// ChangeID is the bare Change-Id hash.
	ChangeID string
	Project  string
	Branch   string
	Number   int
	Status   string

	// CurrentRevision is only populated when explicitly requested.
	CurrentRevision string
	// Messages is only populated by ChangeDetail.
	Messages []ChangeMessage
}

// Key returns the most specific identifier available for the change.
func (c Change) Key() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Project != "" && c.Branch != "" && c.ChangeID != "":
		return ChangeKey(c.Project, c.Branch, c.ChangeID)
	default:
		return c.ChangeID
	}
}

// Abandoned reports whether the change was abandoned.
func (c Change) Abandoned() bool {
	return c.Status == ChangeStatusAbandoned
}

// ChangeKey builds the fully qualified change key project~branch~changeID.
func ChangeKey(project, branch, changeID string) string {
	return project + "~" + branch + "~" + changeID
}

// ReviewHost is the Gerrit capability consumed by the reconciler.
type ReviewHost interface {
	// AccountGroups returns the groups of the account identified by email.
	// It returns an error wrapping ErrNotFound when no such account exists.
	AccountGroups(ctx context.Context, account string) ([]Group, error)
	QueryChanges(ctx context.Context, query string) ([]Change, error)
	// ChangeDetail returns the change including its message history.
	ChangeDetail(ctx context.Context, changeID string) (*Change, error)
	CurrentRevision(ctx context.Context, changeID string) (string, error)
	PostReview(ctx context.Context, changeID, revisionID, message string) error
	// CommitMsgHook returns the commit-msg hook script that adds Change-Id trailers.
	CommitMsgHook(ctx context.Context) ([]byte, error)
}

// HeadCommit describes the commit checked out in a Workspace.
type HeadCommit struct {
	SHA     string
	Message string
}

// VCS leases scratch clones of pull request head repositories.
type VCS interface {
	// Clone checks out ref of the repository at url into a fresh scratch
	// directory whose name starts with name.
	Clone(ctx context.Context, name, url, ref string) (Workspace, error)
}

// Workspace is a single scratch clone. Close must be called once the
// workspace is no longer needed.
type Workspace interface {
	AddRemote(ctx context.Context, name, url string) error
	InstallCommitHook(ctx context.Context, script []byte) error
	HeadCommit(ctx context.Context) (*HeadCommit, error)
	// Amend rewrites the message of the head commit, running the installed
	// commit-msg hook first. The tree is left untouched.
	Amend(ctx context.Context, message string) error
	Push(ctx context.Context, remote, refspec string) error
	Close(ctx context.Context) error
}
