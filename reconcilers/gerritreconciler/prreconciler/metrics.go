/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package prreconciler

import (
	"context"
	"errors"

	"chainguard.dev/gerritbot/reconcilers/gerritreconciler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

var (
	lookAtCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gerritbot_lookats_total",
			Help: "Total number of pull request reconciliations by announced status",
		},
		[]string{"status"},
	)

	failureCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gerritbot_lookat_failures_total",
			Help: "Total number of failed pull request reconciliations",
		},
		[]string{"reason"},
	)
)

var failureReasons = []struct {
	err    error
	reason string
}{
	{gerritreconciler.ErrUnknownProject, "unknown_project"},
	{gerritreconciler.ErrNoAuthorsFound, "no_authors"},
	{gerritreconciler.ErrTooManyChanges, "too_many_changes"},
	{gerritreconciler.ErrChangeQueryFailed, "change_query_failed"},
	{gerritreconciler.ErrTooManyCommitsOnPR, "too_many_commits_on_pr"},
	{gerritreconciler.ErrChangeIDGenerationFailed, "change_id_generation_failed"},
}

func failureReason(err error) string {
	for _, fr := range failureReasons {
		if errors.Is(err, fr.err) {
			return fr.reason
		}
	}
	return "other"
}

func tracer() oteltrace.Tracer {
	return otel.Tracer("chainguard.dev/gerritbot/reconcilers/gerritreconciler/prreconciler",
		oteltrace.WithInstrumentationVersion("1.0.0"))
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	return tracer().Start(ctx, name, oteltrace.WithAttributes(attrs...))
}

func endSpan(span oteltrace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
