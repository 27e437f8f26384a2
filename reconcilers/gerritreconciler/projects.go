/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package gerritreconciler

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectMapping maps GitHub repositories to Gerrit project names.
type ProjectMapping struct {
	byRepo map[string]string
}

type projectsFile struct {
	// Projects maps a Gerrit project name to its GitHub owner/repo.
	Projects map[string]string `yaml:"projects"`
}

// NewProjectMapping builds a mapping from Gerrit project name to owner/repo.
// When two projects claim the same repository the lexically smallest project wins.
func NewProjectMapping(projects map[string]string) (*ProjectMapping, error) {
	m := &ProjectMapping{byRepo: make(map[string]string, len(projects))}
	for _, project := range slices.Sorted(maps.Keys(projects)) {
		repo := strings.TrimSpace(projects[project])
		owner, name, ok := strings.Cut(repo, "/")
		if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
			return nil, fmt.Errorf("project %q: invalid repository %q, want owner/repo", project, repo)
		}
		if _, dup := m.byRepo[repo]; dup {
			continue
		}
		m.byRepo[repo] = project
	}
	return m, nil
}

// LoadProjectMapping reads a YAML document of the form
//
//	projects:
//	  libcouchbase: couchbase/libcouchbase
func LoadProjectMapping(r io.Reader) (*ProjectMapping, error) {
	var f projectsFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding projects: %w", err)
	}
	return NewProjectMapping(f.Projects)
}

// Lookup returns the Gerrit project for owner/repo.
func (m *ProjectMapping) Lookup(owner, repo string) (string, bool) {
	if m == nil {
		return "", false
	}
	project, ok := m.byRepo[owner+"/"+repo]
	return project, ok
}

// Project resolves the Gerrit project for a pull request, failing with
// ErrUnknownProject when the repository is not mapped.
func (m *ProjectMapping) Project(id Identity) (string, error) {
	project, ok := m.Lookup(id.Owner, id.Repo)
	if !ok {
		return "", fmt.Errorf("failed to identify project for %s/%s: %w", id.Owner, id.Repo, ErrUnknownProject)
	}
	return project, nil
}

// Len returns the number of mapped repositories.
func (m *ProjectMapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.byRepo)
}
