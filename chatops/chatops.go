/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package chatops answers chat requests to verify the CLA status of a pull
// request or to look at it immediately.
//
// Messages are scanned for commands of the form
//
//	verify https://github.com/<owner>/<repo>/pull/<n>
//	lookat https://github.com/<owner>/<repo>/pull/<n>
//
// and every command found is answered in order.
package chatops

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"chainguard.dev/gerritbot/reconcilers/gerritreconciler"
	"chainguard.dev/gerritbot/reconcilers/gerritreconciler/cla"
	"chainguard.dev/gerritbot/reconcilers/gerritreconciler/statustag"
	"github.com/chainguard-dev/clog"
)

// Verb is a chat command.
type Verb string

const (
	Verify Verb = "verify"
	LookAt Verb = "lookat"
)

// Command is a parsed chat command.
type Command struct {
	Verb Verb
	PR   gerritreconciler.Identity
}

var commandPattern = regexp.MustCompile(`\b(verify|lookat)\s+(\S*github\.com/\S+)`)

// Parse returns the commands in message in the order they appear. Commands
// whose argument is not a pull request URL are ignored.
func Parse(message string) []Command {
	var out []Command
	for _, m := range commandPattern.FindAllStringSubmatch(message, -1) {
		id, ok := gerritreconciler.FindURL(m[2])
		if !ok {
			continue
		}
		out = append(out, Command{Verb: Verb(m[1]), PR: id})
	}
	return out
}

// Reconciler is the subset of the pull request reconciler chat commands use.
type Reconciler interface {
	Verify(ctx context.Context, id gerritreconciler.Identity) ([]cla.Author, error)
	LookAt(ctx context.Context, id gerritreconciler.Identity) (statustag.Status, error)
}

// Responder runs chat commands against a Reconciler.
type Responder struct {
	rec Reconciler
}

// NewResponder returns a Responder backed by rec.
func NewResponder(rec Reconciler) *Responder {
	return &Responder{rec: rec}
}

// Respond runs every command in message and returns the replies, one per
// command. Failures are reported without detail.
func (r *Responder) Respond(ctx context.Context, message string) []string {
	cmds := Parse(message)
	replies := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		replies = append(replies, r.run(ctx, cmd))
	}
	return replies
}

func (r *Responder) run(ctx context.Context, cmd Command) string {
	log := clog.FromContext(ctx).With("command", string(cmd.Verb), "pr", cmd.PR.String())

	switch cmd.Verb {
	case Verify:
		authors, err := r.rec.Verify(ctx, cmd.PR)
		if err != nil {
			log.Warnf("Verify failed: %v", err)
			return "Failed to verify... Something is wrong :("
		}
		return strings.TrimSuffix(cla.Summary(cmd.PR, authors), "\n")

	case LookAt:
		status, err := r.rec.LookAt(ctx, cmd.PR)
		if err != nil {
			log.Warnf("LookAt failed: %v", err)
			return "Failed to lookat... Something is wrong :("
		}
		return fmt.Sprintf("For PR # %d on %s/%s\n  result was: %s", cmd.PR.Number, cmd.PR.Owner, cmd.PR.Repo, status.Token())
	}
	return ""
}
