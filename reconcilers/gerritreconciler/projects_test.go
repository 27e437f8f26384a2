/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package gerritreconciler

import (
	"errors"
	"strings"
	"testing"
)

func TestLoadProjectMapping(t *testing.T) {
	m, err := LoadProjectMapping(strings.NewReader(`
projects:
  libcouchbase: couchbase/libcouchbase
  couchnode: couchbase/couchnode
`))
	if err != nil {
		t.Fatalf("LoadProjectMapping: %v", err)
	}

	if got := m.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}

	project, ok := m.Lookup("couchbase", "couchnode")
	if !ok || project != "couchnode" {
		t.Errorf("Lookup() = %q, %v, want couchnode, true", project, ok)
	}

	if _, err := m.Project(Identity{Owner: "couchbase", Repo: "missing", Number: 1}); !errors.Is(err, ErrUnknownProject) {
		t.Errorf("Project() error = %v, want ErrUnknownProject", err)
	}
}

func TestLoadProjectMappingEmpty(t *testing.T) {
	m, err := LoadProjectMapping(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadProjectMapping: %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
}

func TestNewProjectMappingRejectsBadRepo(t *testing.T) {
	for _, repo := range []string{"", "noslash", "/repo", "owner/", "a/b/c"} {
		if _, err := NewProjectMapping(map[string]string{"p": repo}); err == nil {
			t.Errorf("NewProjectMapping(%q) succeeded, want error", repo)
		}
	}
}

func TestNewProjectMappingDuplicateRepo(t *testing.T) {
	m, err := NewProjectMapping(map[string]string{
		"zeta":  "acme/widget",
		"alpha": "acme/widget",
	})
	if err != nil {
		t.Fatalf("NewProjectMapping: %v", err)
	}
	if project, _ := m.Lookup("acme", "widget"); project != "alpha" {
		t.Errorf("Lookup() = %q, want alpha", project)
	}
}
