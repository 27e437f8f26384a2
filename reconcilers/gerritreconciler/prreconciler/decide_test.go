/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package prreconciler

import (
	"testing"
	"time"

	"chainguard.dev/gerritbot/reconcilers/gerritreconciler/changeset"
	"chainguard.dev/gerritbot/reconcilers/gerritreconciler/cla"
	"chainguard.dev/gerritbot/reconcilers/gerritreconciler/statustag"
)

var allStatuses = []statustag.Status{
	statustag.New,
	statustag.TooManyCommits,
	statustag.NoCLA,
	statustag.GerritCreated,
	statustag.GerritPushed,
	statustag.GerritClosed,
	statustag.Timeout,
	statustag.NoChanges,
}

func author(email string, status cla.Status, commits ...string) cla.Author {
	return cla.Author{Name: email, Email: email, Commits: commits, Status: status}
}

func TestDecide(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		name     string
		authors  []cla.Author
		age      time.Duration
		want     statustag.Status
		wantHeld bool
	}{{
		name:    "single signed commit proceeds",
		authors: []cla.Author{author("a@x.com", cla.StatusSigned, "c1")},
		age:     time.Hour,
	}, {
		name:    "single signed commit never times out",
		authors: []cla.Author{author("a@x.com", cla.StatusSigned, "c1")},
		age:     30 * day,
	}, {
		name:     "three commits by one signed author",
		authors:  []cla.Author{author("a@x.com", cla.StatusSigned, "c1", "c2", "c3")},
		age:      time.Hour,
		want:     statustag.TooManyCommits,
		wantHeld: true,
	}, {
		name: "two signed authors",
		authors: []cla.Author{
			author("a@x.com", cla.StatusSigned, "c1"),
			author("b@x.com", cla.StatusSigned, "c2"),
		},
		age:      time.Hour,
		want:     statustag.TooManyCommits,
		wantHeld: true,
	}, {
		name:     "registered but unsigned",
		authors:  []cla.Author{author("a@x.com", cla.StatusRegistered, "c1")},
		age:      time.Hour,
		want:     statustag.NoCLA,
		wantHeld: true,
	}, {
		name:     "not registered",
		authors:  []cla.Author{author("a@x.com", cla.StatusNotRegistered, "c1")},
		age:      6 * day,
		want:     statustag.NoCLA,
		wantHeld: true,
	}, {
		name:     "missing cla wins over commit count",
		authors:  []cla.Author{author("a@x.com", cla.StatusRegistered, "c1", "c2", "c3")},
		age:      time.Hour,
		want:     statustag.NoCLA,
		wantHeld: true,
	}, {
		name:     "unsigned for eight days times out",
		authors:  []cla.Author{author("a@x.com", cla.StatusNotRegistered, "c1")},
		age:      8 * day,
		want:     statustag.Timeout,
		wantHeld: true,
	}, {
		name:     "too many commits for exactly seven days times out",
		authors:  []cla.Author{author("a@x.com", cla.StatusSigned, "c1", "c2")},
		age:      7 * day,
		want:     statustag.Timeout,
		wantHeld: true,
	}, {
		name:     "no authors",
		want:     statustag.TooManyCommits,
		wantHeld: true,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, held := decide(tt.authors, now.Add(-tt.age), now, DefaultTimeout)
			if held != tt.wantHeld {
				t.Fatalf("decide() held = %v, want %v", held, tt.wantHeld)
			}
			if held && got != tt.want {
				t.Errorf("decide() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecideSingleSignedAuthorNeverBlocked(t *testing.T) {
	now := time.Now()
	authors := []cla.Author{author("a@x.com", cla.StatusSigned, "c1")}
	for _, age := range []time.Duration{0, time.Minute, DefaultTimeout, 10 * DefaultTimeout} {
		if got, held := decide(authors, now.Add(-age), now, DefaultTimeout); held {
			t.Errorf("decide(age=%v) = %v, want proceed", age, got)
		}
	}
}

func TestOutcomeStatus(t *testing.T) {
	tests := []struct {
		outcome changeset.Outcome
		old     statustag.Status
		want    statustag.Status
	}{
		{changeset.OutcomeNew, statustag.New, statustag.GerritCreated},
		{changeset.OutcomeNew, statustag.GerritPushed, statustag.GerritCreated},
		{changeset.OutcomeUpdated, statustag.GerritCreated, statustag.GerritPushed},
		{changeset.OutcomeUpdated, statustag.NoCLA, statustag.GerritPushed},
		{changeset.OutcomeNoChanges, statustag.New, statustag.GerritPushed},
		{changeset.OutcomeNoChanges, statustag.NoCLA, statustag.GerritPushed},
		{changeset.OutcomeNoChanges, statustag.GerritCreated, statustag.NoChanges},
		{changeset.OutcomeNoChanges, statustag.GerritPushed, statustag.NoChanges},
	}
	for _, tt := range tests {
		if got := outcomeStatus(tt.outcome, tt.old); got != tt.want {
			t.Errorf("outcomeStatus(%s, %v) = %v, want %v", tt.outcome, tt.old, got, tt.want)
		}
	}
}

func TestShouldAnnounce(t *testing.T) {
	tests := []struct {
		name         string
		old, next    statustag.Status
		wantPost     bool
		wantExpected bool
	}{
		{"no changes", statustag.GerritPushed, statustag.NoChanges, false, true},
		{"created from new", statustag.New, statustag.GerritCreated, true, true},
		{"pushed again", statustag.GerritPushed, statustag.GerritPushed, true, true},
		{"created after closed", statustag.GerritClosed, statustag.GerritCreated, true, true},
		{"repeat too many commits", statustag.TooManyCommits, statustag.TooManyCommits, false, true},
		{"too many commits from new", statustag.New, statustag.TooManyCommits, true, true},
		{"no cla after too many commits", statustag.TooManyCommits, statustag.NoCLA, true, true},
		{"closed after pushed", statustag.GerritPushed, statustag.GerritClosed, true, true},
		{"timeout after no cla", statustag.NoCLA, statustag.Timeout, true, true},
		{"no cla after closed", statustag.GerritClosed, statustag.NoCLA, false, false},
		{"too many commits after pushed", statustag.GerritPushed, statustag.TooManyCommits, false, false},
		{"new is never announced", statustag.NoCLA, statustag.New, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post, expected := shouldAnnounce(tt.old, tt.next)
			if post != tt.wantPost || expected != tt.wantExpected {
				t.Errorf("shouldAnnounce(%v, %v) = (%v, %v), want (%v, %v)",
					tt.old, tt.next, post, expected, tt.wantPost, tt.wantExpected)
			}
		})
	}
}

func TestShouldAnnounceMonotonic(t *testing.T) {
	blocking := []statustag.Status{statustag.TooManyCommits, statustag.NoCLA, statustag.GerritClosed, statustag.Timeout}
	// Created and pushed carry a fresh change link and are always posted.
	candidates := append([]statustag.Status{statustag.New}, blocking...)
	for _, old := range blocking {
		for _, next := range candidates {
			if next > old {
				continue
			}
			if post, _ := shouldAnnounce(old, next); post {
				t.Errorf("shouldAnnounce(%v, %v) posted a regression", old, next)
			}
		}
	}
	for _, old := range allStatuses {
		if post, _ := shouldAnnounce(old, statustag.NoChanges); post {
			t.Errorf("shouldAnnounce(%v, NoChanges) posted", old)
		}
	}
}
