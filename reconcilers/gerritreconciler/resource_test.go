/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package gerritreconciler

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		want    Identity
		wantErr bool
	}{{
		name: "queue key",
		key:  "acme/widget#42",
		want: Identity{Owner: "acme", Repo: "widget", Number: 42},
	}, {
		name: "https url",
		key:  "https://github.com/acme/widget/pull/42",
		want: Identity{Owner: "acme", Repo: "widget", Number: 42},
	}, {
		name: "url without scheme and with trailing path",
		key:  "github.com/acme/widget/pull/7/files",
		want: Identity{Owner: "acme", Repo: "widget", Number: 7},
	}, {
		name: "surrounding whitespace",
		key:  "  acme/widget#1\n",
		want: Identity{Owner: "acme", Repo: "widget", Number: 1},
	}, {
		name:    "issue url",
		key:     "https://github.com/acme/widget/issues/42",
		wantErr: true,
	}, {
		name:    "zero number",
		key:     "acme/widget#0",
		wantErr: true,
	}, {
		name:    "garbage",
		key:     "not a key",
		wantErr: true,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseKey(%q) mismatch (-want +got):\n%s", tt.key, diff)
			}
		})
	}
}

func TestIdentityFormatting(t *testing.T) {
	id := Identity{Owner: "acme", Repo: "widget", Number: 42}

	if got, want := id.String(), "acme/widget#42"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := id.Path(), "github.com/acme/widget/pull/42"; got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
	if got, want := id.URL(), "https://github.com/acme/widget/pull/42"; got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}

	roundTrip, err := ParseKey(id.String())
	if err != nil {
		t.Fatalf("ParseKey: %v", err)
	}
	if roundTrip != id {
		t.Errorf("round trip = %v, want %v", roundTrip, id)
	}
}

func TestChangeKey(t *testing.T) {
	tests := []struct {
		change Change
		want   string
	}{
		{Change{ID: "proj~master~Iabc", ChangeID: "Iabc"}, "proj~master~Iabc"},
		{Change{Project: "proj", Branch: "master", ChangeID: "Iabc"}, "proj~master~Iabc"},
		{Change{ChangeID: "Iabc"}, "Iabc"},
	}
	for _, tt := range tests {
		if got := tt.change.Key(); got != tt.want {
			t.Errorf("%+v.Key() = %q, want %q", tt.change, got, tt.want)
		}
	}
}
