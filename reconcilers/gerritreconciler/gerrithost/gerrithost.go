/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package gerrithost implements gerritreconciler.ReviewHost over the Gerrit
// REST API.
package gerrithost

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"chainguard.dev/gerritbot/reconcilers/gerritreconciler"
	"chainguard.dev/gerritbot/retry"
	"github.com/andygrunwald/go-gerrit"
	"github.com/chainguard-dev/clog"
)

// queryLimit bounds a correlation query; a pull request rarely maps to more
// than a couple of changes.
const queryLimit = 25

// Host is a gerritreconciler.ReviewHost backed by go-gerrit.
type Host struct {
	endpoint string
	http     *http.Client
	client   *gerrit.Client
	retry    retry.Config
}

var _ gerritreconciler.ReviewHost = (*Host)(nil)

// Option configures a Host.
type Option func(*Host)

// WithBasicAuth authenticates requests with a Gerrit HTTP password.
func WithBasicAuth(username, password string) Option {
	return func(h *Host) {
		h.client.Authentication.SetBasicAuth(username, password)
	}
}

// WithRetry replaces the retry policy for reads.
func WithRetry(cfg retry.Config) Option {
	return func(h *Host) {
		h.retry = cfg
	}
}

// New returns a Host for the Gerrit instance at endpoint. A nil httpClient
// uses http.DefaultClient.
func New(ctx context.Context, endpoint string, httpClient *http.Client, opts ...Option) (*Host, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	client, err := gerrit.NewClient(ctx, endpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("creating gerrit client: %w", err)
	}
	h := &Host{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		http:     httpClient,
		client:   client,
		retry:    retry.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// AccountGroups lists the groups account belongs to.
func (h *Host) AccountGroups(ctx context.Context, account string) ([]gerritreconciler.Group, error) {
	groups, err := read(ctx, h, "list groups", func() (*[]gerrit.GroupInfo, *gerrit.Response, error) {
		return h.client.Accounts.ListGroups(ctx, url.PathEscape(account))
	})
	if err != nil {
		return nil, fmt.Errorf("listing groups of %s: %w", account, err)
	}
	if groups == nil {
		return nil, nil
	}
	out := make([]gerritreconciler.Group, 0, len(*groups))
	for _, g := range *groups {
		out = append(out, gerritreconciler.Group{ID: g.ID, Name: g.Name})
	}
	return out, nil
}

// QueryChanges runs a change search, returning at most queryLimit results.
func (h *Host) QueryChanges(ctx context.Context, query string) ([]gerritreconciler.Change, error) {
	clog.FromContext(ctx).Debugf("Querying changes: %s", query)
	opts := &gerrit.QueryChangeOptions{}
	opts.Query = []string{query}
	opts.Limit = queryLimit

	changes, err := read(ctx, h, "query changes", func() (*[]gerrit.ChangeInfo, *gerrit.Response, error) {
		return h.client.Changes.QueryChanges(ctx, opts)
	})
	if err != nil {
		return nil, fmt.Errorf("querying %q: %w", query, err)
	}
	if changes == nil {
		return nil, nil
	}
	out := make([]gerritreconciler.Change, 0, len(*changes))
	for _, c := range *changes {
		out = append(out, convert(c))
	}
	return out, nil
}

// ChangeDetail returns the change with its review messages.
func (h *Host) ChangeDetail(ctx context.Context, changeID string) (*gerritreconciler.Change, error) {
	c, err := read(ctx, h, "get change detail", func() (*gerrit.ChangeInfo, *gerrit.Response, error) {
		return h.client.Changes.GetChangeDetail(ctx, url.PathEscape(changeID), nil)
	})
	if err != nil {
		return nil, fmt.Errorf("getting change detail %s: %w", changeID, err)
	}
	out := convert(*c)
	return &out, nil
}

// CurrentRevision returns the commit SHA of the change's latest patch set.
func (h *Host) CurrentRevision(ctx context.Context, changeID string) (string, error) {
	c, err := read(ctx, h, "get current revision", func() (*gerrit.ChangeInfo, *gerrit.Response, error) {
		return h.client.Changes.GetChange(ctx, url.PathEscape(changeID), &gerrit.ChangeOptions{
			AdditionalFields: []string{"CURRENT_REVISION"},
		})
	})
	if err != nil {
		return "", fmt.Errorf("getting current revision of %s: %w", changeID, err)
	}
	return c.CurrentRevision, nil
}

// PostReview posts message as a review on revisionID of the change.
func (h *Host) PostReview(ctx context.Context, changeID, revisionID, message string) error {
	if _, resp, err := h.client.Changes.SetReview(ctx, url.PathEscape(changeID), revisionID, &gerrit.ReviewInput{
		Message: message,
	}); err != nil {
		return fmt.Errorf("reviewing %s: %w", changeID, classify(resp, err))
	}
	return nil
}

// CommitMsgHook downloads the commit-msg hook Gerrit serves to clients. The
// hook is a plain file outside the JSON API, so it is fetched directly.
func (h *Host) CommitMsgHook(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint+"/tools/hooks/commit-msg", nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching commit-msg hook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching commit-msg hook: unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func convert(c gerrit.ChangeInfo) gerritreconciler.Change {
	out := gerritreconciler.Change{
		ID:              c.ID,
		ChangeID:        c.ChangeID,
		Project:         c.Project,
		Branch:          c.Branch,
		Number:          c.Number,
		Status:          c.Status,
		CurrentRevision: c.CurrentRevision,
	}
	for _, m := range c.Messages {
		out.Messages = append(out.Messages, gerritreconciler.ChangeMessage{
			Author:  m.Author.Username,
			Message: m.Message,
		})
	}
	return out
}

// read calls fn under the retry policy, retrying 5xx responses.
func read[T any](ctx context.Context, h *Host, op string, fn func() (T, *gerrit.Response, error)) (T, error) {
	var resp *gerrit.Response
	serverError := func(error) bool {
		return resp != nil && resp.Response != nil && resp.StatusCode >= http.StatusInternalServerError
	}
	v, err := retry.Do(ctx, h.retry, op, serverError, func() (v T, err error) {
		v, resp, err = fn()
		return v, err
	})
	if err != nil {
		return v, classify(resp, err)
	}
	return v, nil
}

// classify maps a 404 onto gerritreconciler.ErrNotFound.
func classify(resp *gerrit.Response, err error) error {
	if resp != nil && resp.Response != nil && resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", gerritreconciler.ErrNotFound, err)
	}
	return err
}
