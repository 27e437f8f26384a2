/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package prreconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chainguard.dev/gerritbot/reconcilers/gerritreconciler"
	"chainguard.dev/gerritbot/reconcilers/gerritreconciler/changeset"
	"chainguard.dev/gerritbot/reconcilers/gerritreconciler/cla"
	"chainguard.dev/gerritbot/reconcilers/gerritreconciler/correlator"
	"chainguard.dev/gerritbot/reconcilers/gerritreconciler/statustag"
	"chainguard.dev/gerritbot/workqueue"
	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel/attribute"
)

// Reconciler reconciles pull requests against Gerrit.
type Reconciler struct {
	projects *gerritreconciler.ProjectMapping
	code     gerritreconciler.CodeHost
	review   gerritreconciler.ReviewHost
	vcs      gerritreconciler.VCS

	botLogin  string
	claGroup  string
	reviewURL string
	remote    changeset.RemoteConfig
	timeout   time.Duration
	now       func() time.Time

	codec      *statustag.Codec
	authors    *cla.Aggregator
	correlator *correlator.Correlator
	builder    *changeset.Builder
	locks      *keyLock
}

// New constructs a Reconciler. WithBotLogin, WithCLAGroup and WithReviewURL
// are required.
func New(projects *gerritreconciler.ProjectMapping, code gerritreconciler.CodeHost, review gerritreconciler.ReviewHost, vcs gerritreconciler.VCS, opts ...Option) (*Reconciler, error) {
	r := &Reconciler{
		projects: projects,
		code:     code,
		review:   review,
		vcs:      vcs,
		timeout:  DefaultTimeout,
		now:      time.Now,
		locks:    newKeyLock(),
	}
	for _, opt := range opts {
		opt(r)
	}

	switch {
	case projects == nil:
		return nil, errors.New("project mapping cannot be nil")
	case code == nil || review == nil || vcs == nil:
		return nil, errors.New("code host, review host and vcs are required")
	case r.botLogin == "":
		return nil, errors.New("bot login cannot be empty")
	case r.claGroup == "":
		return nil, errors.New("cla group cannot be empty")
	case r.reviewURL == "":
		return nil, errors.New("review url cannot be empty")
	case r.timeout <= 0:
		return nil, fmt.Errorf("invalid timeout %v", r.timeout)
	}

	r.codec = statustag.NewCodec(r.botLogin)
	r.authors = cla.New(code, review, r.claGroup)
	r.correlator = correlator.New(review)
	r.builder = changeset.New(code, review, vcs, r.remote)
	return r, nil
}

// Reconcile parses a queue key and looks at the pull request it names.
// Failures that retrying cannot fix are marked non-retriable. A pull request
// held for commits or CLA is requeued for when it would time out.
func (r *Reconciler) Reconcile(ctx context.Context, key string) error {
	id, err := gerritreconciler.ParseKey(key)
	if err != nil {
		return workqueue.NonRetriableError(err, "invalid pull request key")
	}

	status, recheck, err := r.lookAt(ctx, id)
	switch {
	case errors.Is(err, gerritreconciler.ErrUnknownProject):
		return workqueue.NonRetriableError(err, "repository is not mapped to a gerrit project")
	case errors.Is(err, gerritreconciler.ErrTooManyChanges):
		return workqueue.NonRetriableError(err, "ambiguous gerrit changes need manual cleanup")
	case err != nil:
		return err
	}
	clog.InfoContextf(ctx, "Reconciled %s: %s", id, status)

	if !recheck.IsZero() {
		delay := recheck.Sub(r.now())
		clog.InfoContextf(ctx, "Checking %s again in %v", id, delay)
		return workqueue.RequeueAfter(delay)
	}
	return nil
}

// Verify returns the CLA status of every author of the pull request.
func (r *Reconciler) Verify(ctx context.Context, id gerritreconciler.Identity) ([]cla.Author, error) {
	ctx, span := startSpan(ctx, "gerritbot.verify", attribute.String("pr", id.String()))
	authors, err := r.authors.Authors(ctx, id)
	endSpan(span, err)
	return authors, err
}

// LookAt reconciles a single pull request and returns the status it announced,
// or NoChanges when no comment was posted. Calls for the same pull request are
// serialized. Once started, a call is not interrupted by cancellation of ctx:
// a change pushed without its correlation tag would be duplicated later.
func (r *Reconciler) LookAt(ctx context.Context, id gerritreconciler.Identity) (statustag.Status, error) {
	status, _, err := r.lookAt(ctx, id)
	return status, err
}

// lookAt implements LookAt. recheck is set while the pull request is held
// short of the timeout, to the time the hold turns into a timeout.
func (r *Reconciler) lookAt(ctx context.Context, id gerritreconciler.Identity) (status statustag.Status, recheck time.Time, err error) {
	ctx = context.WithoutCancel(ctx)
	unlock := r.locks.Lock(id.String())
	defer unlock()

	ctx, span := startSpan(ctx, "gerritbot.lookat", attribute.String("pr", id.String()))
	defer func() {
		if err != nil {
			failureCounter.WithLabelValues(failureReason(err)).Inc()
		} else {
			lookAtCounter.WithLabelValues(status.Token()).Inc()
			span.SetAttributes(attribute.String("status", status.Token()))
		}
		endSpan(span, err)
	}()

	project, err := r.projects.Project(id)
	if err != nil {
		return statustag.NoChanges, time.Time{}, err
	}
	log := clog.FromContext(ctx).With("pr", id.String(), "project", project)
	ctx = clog.WithLogger(ctx, log)

	pr, err := r.code.PullRequest(ctx, id)
	if err != nil {
		return statustag.NoChanges, time.Time{}, fmt.Errorf("getting pull request: %w", err)
	}
	comments, err := r.code.Comments(ctx, id)
	if err != nil {
		return statustag.NoChanges, time.Time{}, fmt.Errorf("listing comments: %w", err)
	}
	old := r.codec.Decode(comments).Status
	log.Infof("Last announced status: %s", old)

	authors, err := traced(ctx, "gerritbot.cla", func(ctx context.Context) ([]cla.Author, error) {
		return r.authors.Authors(ctx, id)
	})
	if err != nil {
		return statustag.NoChanges, time.Time{}, err
	}

	data := messageData{
		PR:           id,
		FirstMessage: old == statustag.New,
		ReviewURL:    r.reviewURL,
	}

	if held, ok := decide(authors, pr.CreatedAt, r.now(), r.timeout); ok {
		log.Infof("Holding pull request at %s", held)
		if held != statustag.Timeout {
			recheck = pr.CreatedAt.Add(r.timeout)
		}
		status, err = r.settle(ctx, id, old, held, data, held == statustag.Timeout)
		if err != nil {
			return status, time.Time{}, err
		}
		return status, recheck, nil
	}

	prior, err := traced(ctx, "gerritbot.correlate", func(ctx context.Context) (string, error) {
		return r.correlator.Find(ctx, id, project)
	})
	if errors.Is(err, gerritreconciler.ErrAllChangesClosed) {
		status, err = r.settle(ctx, id, old, statustag.GerritClosed, data, true)
		return status, time.Time{}, err
	} else if err != nil {
		return statustag.NoChanges, time.Time{}, fmt.Errorf("correlating changes: %w", err)
	}

	res, err := traced(ctx, "gerritbot.build", func(ctx context.Context) (*changeset.Result, error) {
		return r.builder.Build(ctx, id, project, prior)
	})
	if errors.Is(err, gerritreconciler.ErrAllChangesClosed) {
		status, err = r.settle(ctx, id, old, statustag.GerritClosed, data, true)
		return status, time.Time{}, err
	} else if err != nil {
		return statustag.NoChanges, time.Time{}, fmt.Errorf("building changeset: %w", err)
	}

	data.ChangeURL = statustag.ChangeURL(r.reviewURL, res.Number)
	data.CommitSHA = authors[0].Commits[0]
	status, err = r.settle(ctx, id, old, outcomeStatus(res.Outcome, old), data, false)
	return status, time.Time{}, err
}

// settle applies the tagging rule for old -> next and closes the pull request
// when asked to, whether or not a comment was posted.
func (r *Reconciler) settle(ctx context.Context, id gerritreconciler.Identity, old, next statustag.Status, data messageData, closePR bool) (statustag.Status, error) {
	log := clog.FromContext(ctx)

	announced := statustag.NoChanges
	switch post, expected := shouldAnnounce(old, next); {
	case post:
		body, err := render(next, data)
		if err != nil {
			return statustag.NoChanges, err
		}
		log.Infof("Announcing %s (was %s)", next, old)
		if err := r.code.CreateComment(ctx, id, body); err != nil {
			return statustag.NoChanges, fmt.Errorf("posting comment: %w", err)
		}
		announced = next
	case !expected:
		log.Warnf("Unexpected pull request status change %s -> %s", old, next)
	}

	if closePR {
		log.Info("Closing pull request")
		if err := r.code.ClosePullRequest(ctx, id); err != nil {
			return statustag.NoChanges, fmt.Errorf("closing pull request: %w", err)
		}
	}
	return announced, nil
}

// traced runs f inside a child span.
func traced[T any](ctx context.Context, name string, f func(context.Context) (T, error)) (T, error) {
	ctx, span := startSpan(ctx, name)
	v, err := f(ctx)
	endSpan(span, err)
	return v, err
}
