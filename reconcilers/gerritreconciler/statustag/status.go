/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package statustag

// Status is the bot's ordered view of a pull request's review progress.
type Status int

const (
	New            Status = 0
	TooManyCommits Status = 1
	NoCLA          Status = 2
	GerritCreated  Status = 3
	GerritPushed   Status = 4
	GerritClosed   Status = 5
	Timeout        Status = 6

	// NoChanges sits outside the ordering: nothing visible changed and no
	// comment is posted for it.
	NoChanges Status = 100
)

const resetToken = "reset"

var tokens = map[Status]string{
	New:            "new",
	TooManyCommits: "too_many_commits",
	NoCLA:          "no_cla",
	GerritCreated:  "created",
	GerritPushed:   "pushed",
	GerritClosed:   "closed",
	Timeout:        "timeout",
	NoChanges:      "no_changes",
}

var statuses = func() map[string]Status {
	m := make(map[string]Status, len(tokens))
	for s, tok := range tokens {
		m[tok] = s
	}
	return m
}()

// Token returns the tag token for s, or "unknown".
func (s Status) Token() string {
	if tok, ok := tokens[s]; ok {
		return tok
	}
	return "unknown"
}

func (s Status) String() string {
	return s.Token()
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	_, ok := tokens[s]
	return ok
}

// ParseToken maps a tag token back to its Status.
func ParseToken(token string) (Status, bool) {
	s, ok := statuses[token]
	return s, ok
}
