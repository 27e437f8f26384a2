/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package gerritreconciler

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Identity names a single pull request.
type Identity struct {
	Owner  string
	Repo   string
	Number int
}

// prURLPattern matches github.com/<owner>/<repo>/pull/<number> anywhere in a
// string, with or without a scheme.
var prURLPattern = regexp.MustCompile(`github\.com/([^/\s]+)/([^/\s]+)/pull/([0-9]+)`)

// keyPattern matches the queue key form owner/repo#number.
var keyPattern = regexp.MustCompile(`^([^/\s#]+)/([^/\s#]+)#([0-9]+)$`)

// String returns the queue key for the pull request, e.g. acme/widget#42.
func (id Identity) String() string {
	return fmt.Sprintf("%s/%s#%d", id.Owner, id.Repo, id.Number)
}

// Path returns github.com/<owner>/<repo>/pull/<number>, the form used when
// searching Gerrit for changes that mention the pull request.
func (id Identity) Path() string {
	return fmt.Sprintf("github.com/%s/%s/pull/%d", id.Owner, id.Repo, id.Number)
}

// URL returns the HTML URL of the pull request.
func (id Identity) URL() string {
	return "https://" + id.Path()
}

// Validate reports whether every field of the identity is populated.
func (id Identity) Validate() error {
	switch {
	case id.Owner == "":
		return errors.New("owner cannot be empty")
	case id.Repo == "":
		return errors.New("repo cannot be empty")
	case id.Number <= 0:
		return fmt.Errorf("invalid pull request number %d", id.Number)
	}
	return nil
}

// ParseKey parses either a queue key (owner/repo#number) or a pull request URL.
func ParseKey(key string) (Identity, error) {
	key = strings.TrimSpace(key)
	if m := keyPattern.FindStringSubmatch(key); m != nil {
		return newIdentity(m[1], m[2], m[3])
	}
	if id, ok := FindURL(key); ok {
		return id, nil
	}
	return Identity{}, fmt.Errorf("unrecognized pull request key %q", key)
}

// FindURL returns the first pull request URL embedded in s.
func FindURL(s string) (Identity, bool) {
	m := prURLPattern.FindStringSubmatch(s)
	if m == nil {
		return Identity{}, false
	}
	id, err := newIdentity(m[1], m[2], m[3])
	if err != nil {
		return Identity{}, false
	}
	return id, true
}

func newIdentity(owner, repo, number string) (Identity, error) {
	n, err := strconv.Atoi(number)
	if err != nil {
		return Identity{}, fmt.Errorf("parsing pull request number %q: %w", number, err)
	}
	id := Identity{Owner: owner, Repo: repo, Number: n}
	if err := id.Validate(); err != nil {
		return Identity{}, err
	}
	return id, nil
}
