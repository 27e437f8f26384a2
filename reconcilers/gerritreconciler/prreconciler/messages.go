/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package prreconciler

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"chainguard.dev/gerritbot/reconcilers/gerritreconciler"
	"chainguard.dev/gerritbot/reconcilers/gerritreconciler/statustag"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

var templateNames = map[statustag.Status]string{
	statustag.TooManyCommits: "too_many_commits.tmpl",
	statustag.NoCLA:          "no_cla.tmpl",
	statustag.GerritCreated:  "change_created.tmpl",
	statustag.GerritPushed:   "change_pushed.tmpl",
	statustag.GerritClosed:   "change_closed.tmpl",
	statustag.Timeout:        "timeout.tmpl",
}

// messageData is the input of every comment template.
type messageData struct {
	PR gerritreconciler.Identity
	// FirstMessage is set when the bot has not announced anything yet.
	FirstMessage bool
	ReviewURL    string
	ChangeURL    string
	CommitSHA    string
}

// render returns the tagged comment announcing status.
func render(status statustag.Status, data messageData) (string, error) {
	name, ok := templateNames[status]
	if !ok {
		return "", fmt.Errorf("no message for status %s", status)
	}
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return statustag.Annotate(strings.TrimRight(b.String(), "\n"), status), nil
}
