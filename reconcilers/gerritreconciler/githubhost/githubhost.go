/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package githubhost implements gerritreconciler.CodeHost over the GitHub
// REST API.
package githubhost

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"chainguard.dev/gerritbot/reconcilers/gerritreconciler"
	"chainguard.dev/gerritbot/retry"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
	"golang.org/x/oauth2"
)

const perPage = 100

// Host is a gerritreconciler.CodeHost backed by go-github.
type Host struct {
	client *github.Client
	retry  retry.Config
}

var _ gerritreconciler.CodeHost = (*Host)(nil)

// Option configures a Host.
type Option func(*Host) error

// WithBaseURL points the client at a GitHub Enterprise or test server.
func WithBaseURL(base string) Option {
	return func(h *Host) error {
		u, err := url.Parse(base)
		if err != nil {
			return fmt.Errorf("parsing base url: %w", err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		h.client.BaseURL = u
		return nil
	}
}

// WithRetry replaces the retry policy for reads.
func WithRetry(cfg retry.Config) Option {
	return func(h *Host) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		h.retry = cfg
		return nil
	}
}

// New returns a Host authenticating with ts. A nil ts makes anonymous
// requests.
func New(ctx context.Context, ts oauth2.TokenSource, opts ...Option) (*Host, error) {
	var hc *http.Client
	if ts != nil {
		hc = oauth2.NewClient(ctx, ts)
	}
	h := &Host{client: github.NewClient(hc), retry: retry.Default()}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// PullRequest fetches the pull request named by id. A missing pull request yields an
// error wrapping gerritreconciler.ErrNotFound.
func (h *Host) PullRequest(ctx context.Context, id gerritreconciler.Identity) (*gerritreconciler.PullRequest, error) {
	pr, err := retry.Do(ctx, h.retry, "get pull request", transient, func() (*github.PullRequest, error) {
		pr, _, err := h.client.PullRequests.Get(ctx, id.Owner, id.Repo, id.Number)
		return pr, err
	})
	if err != nil {
		return nil, fmt.Errorf("getting pull request %s: %w", id, classify(err))
	}
	head := pr.GetHead()
	return &gerritreconciler.PullRequest{
		Identity:     id,
		Title:        pr.GetTitle(),
		State:        pr.GetState(),
		CreatedAt:    pr.GetCreatedAt().Time,
		Commits:      pr.GetCommits(),
		HeadRef:      head.GetRef(),
		HeadSHA:      head.GetSHA(),
		HeadCloneURL: head.GetRepo().GetCloneURL(),
	}, nil
}

// Commits lists every commit of the pull request, oldest first.
func (h *Host) Commits(ctx context.Context, id gerritreconciler.Identity) ([]gerritreconciler.Commit, error) {
	var out []gerritreconciler.Commit
	opts := &github.ListOptions{PerPage: perPage}
	for {
		var resp *github.Response
		commits, err := retry.Do(ctx, h.retry, "list commits", transient, func() (c []*github.RepositoryCommit, err error) {
			c, resp, err = h.client.PullRequests.ListCommits(ctx, id.Owner, id.Repo, id.Number, opts)
			return c, err
		})
		if err != nil {
			return nil, fmt.Errorf("listing commits of %s: %w", id, classify(err))
		}
		for _, c := range commits {
			author := c.GetCommit().GetAuthor()
			out = append(out, gerritreconciler.Commit{
				SHA:         c.GetSHA(),
				AuthorName:  author.GetName(),
				AuthorEmail: author.GetEmail(),
			})
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

// Comments lists the issue comments of the pull request in creation order.
func (h *Host) Comments(ctx context.Context, id gerritreconciler.Identity) ([]gerritreconciler.Comment, error) {
	var out []gerritreconciler.Comment
	opts := &github.IssueListCommentsOptions{
		Sort:        github.Ptr("created"),
		Direction:   github.Ptr("asc"),
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	for {
		var resp *github.Response
		comments, err := retry.Do(ctx, h.retry, "list comments", transient, func() (c []*github.IssueComment, err error) {
			c, resp, err = h.client.Issues.ListComments(ctx, id.Owner, id.Repo, id.Number, opts)
			return c, err
		})
		if err != nil {
			return nil, fmt.Errorf("listing comments of %s: %w", id, classify(err))
		}
		for _, c := range comments {
			out = append(out, gerritreconciler.Comment{
				Author:    c.GetUser().GetLogin(),
				Body:      c.GetBody(),
				CreatedAt: c.GetCreatedAt().Time,
			})
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

// CreateComment posts body as a new comment on the pull request.
func (h *Host) CreateComment(ctx context.Context, id gerritreconciler.Identity, body string) error {
	clog.FromContext(ctx).Debugf("Commenting on %s", id)
	if _, _, err := h.client.Issues.CreateComment(ctx, id.Owner, id.Repo, id.Number, &github.IssueComment{
		Body: github.Ptr(body),
	}); err != nil {
		return fmt.Errorf("commenting on %s: %w", id, classify(err))
	}
	return nil
}

// ClosePullRequest closes the pull request without merging it.
func (h *Host) ClosePullRequest(ctx context.Context, id gerritreconciler.Identity) error {
	if _, _, err := h.client.PullRequests.Edit(ctx, id.Owner, id.Repo, id.Number, &github.PullRequest{
		State: github.Ptr("closed"),
	}); err != nil {
		return fmt.Errorf("closing %s: %w", id, classify(err))
	}
	return nil
}

// classify maps a 404 onto gerritreconciler.ErrNotFound, keeping the
// original error in the chain.
func classify(err error) error {
	var gerr *github.ErrorResponse
	if errors.As(err, &gerr) && gerr.Response != nil && gerr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", gerritreconciler.ErrNotFound, err)
	}
	return err
}

// transient reports whether a failed read is worth retrying. Writes are
// never retried so that a comment is not posted twice.
func transient(err error) bool {
	var rle *github.RateLimitError
	var arle *github.AbuseRateLimitError
	if errors.As(err, &rle) || errors.As(err, &arle) {
		return true
	}
	var gerr *github.ErrorResponse
	return errors.As(err, &gerr) && gerr.Response != nil && gerr.Response.StatusCode >= http.StatusInternalServerError
}
