/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package webhook turns GitHub webhook deliveries into work queue keys.
package webhook

import (
	"context"
	"io"
	"net/http"
	"strings"

	"chainguard.dev/gerritbot/reconcilers/gerritreconciler"
	"chainguard.dev/gerritbot/workqueue"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
)

// maxPayload bounds the size of a webhook body.
const maxPayload = 25 << 20

// Handler enqueues the pull request named by each delivery.
type Handler struct {
	queue  workqueue.Interface
	ignore map[string]bool
}

// Option configures a Handler.
type Option func(*Handler)

// WithIgnoredSenders drops deliveries triggered by the given logins,
// typically the bot itself.
func WithIgnoredSenders(logins ...string) Option {
	return func(h *Handler) {
		for _, l := range logins {
			h.ignore[strings.ToLower(l)] = true
		}
	}
}

// New returns a Handler that queues keys onto q.
func New(q workqueue.Interface, opts ...Option) *Handler {
	h := &Handler{queue: q, ignore: make(map[string]bool)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP implements http.Handler. Deliveries that do not concern a pull
// request are acknowledged and dropped.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventType := github.WebHookType(r)
	log := clog.FromContext(ctx).With("event", eventType, "delivery", github.DeliveryID(r))

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayload))
	if err != nil {
		log.Warnf("Reading payload: %v", err)
		http.Error(w, "reading payload", http.StatusBadRequest)
		return
	}

	event, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		// Unknown event types are not an error for the sender.
		log.Debugf("Ignoring delivery: %v", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	id, sender, ok := Identify(event)
	if !ok {
		log.Debug("Delivery does not concern a pull request")
		w.WriteHeader(http.StatusOK)
		return
	}
	if h.ignore[strings.ToLower(sender)] {
		log.Debugf("Ignoring delivery sent by %s", sender)
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.enqueue(ctx, id); err != nil {
		log.Errorf("Queueing %s: %v", id, err)
		http.Error(w, "queueing pull request", http.StatusInternalServerError)
		return
	}
	log.Infof("Queued %s", id)
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) enqueue(ctx context.Context, id gerritreconciler.Identity) error {
	return h.queue.Queue(ctx, id.String(), workqueue.Options{})
}

// Identify returns the pull request a webhook event concerns and the login
// that triggered it.
func Identify(event any) (gerritreconciler.Identity, string, bool) {
	var (
		repo   *github.Repository
		number int
		sender string
	)
	switch e := event.(type) {
	case *github.IssueCommentEvent:
		if !e.GetIssue().IsPullRequest() {
			return gerritreconciler.Identity{}, "", false
		}
		repo, number, sender = e.GetRepo(), e.GetIssue().GetNumber(), e.GetSender().GetLogin()
	case *github.IssuesEvent:
		if !e.GetIssue().IsPullRequest() {
			return gerritreconciler.Identity{}, "", false
		}
		repo, number, sender = e.GetRepo(), e.GetIssue().GetNumber(), e.GetSender().GetLogin()
	case *github.PullRequestEvent:
		switch e.GetAction() {
		case "opened", "reopened", "synchronize", "edited":
		default:
			return gerritreconciler.Identity{}, "", false
		}
		repo, number, sender = e.GetRepo(), e.GetPullRequest().GetNumber(), e.GetSender().GetLogin()
	default:
		return gerritreconciler.Identity{}, "", false
	}

	id := gerritreconciler.Identity{Owner: repo.GetOwner().GetLogin(), Repo: repo.GetName(), Number: number}
	if err := id.Validate(); err != nil {
		return gerritreconciler.Identity{}, "", false
	}
	return id, sender, true
}
