/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package statustag

import (
	"fmt"
	"regexp"
	"strings"

	"chainguard.dev/gerritbot/reconcilers/gerritreconciler"
)

// Tag marks every message written by the bot.
const Tag = "::SDKBOT/PR"

var (
	tokenPattern    = regexp.MustCompile(`^[a-zA-Z0-9_\-]*`)
	changeIDPattern = regexp.MustCompile(`Change-Id: ([a-zA-Z0-9]*)`)
)

// Encode returns the lifecycle tag line for s.
func Encode(s Status) string {
	return Tag + ":" + s.Token()
}

// Annotate appends the lifecycle tag for s to a message body.
func Annotate(body string, s Status) string {
	return body + "\n" + Encode(s)
}

// Observed is the state decoded from a pull request's comment history.
type Observed struct {
	// Status is the most recently announced status, New when none was found.
	Status Status
	// Found reports whether any bot comment carried a tag.
	Found bool
}

// Codec decodes the tags posted by a specific bot account.
type Codec struct {
	botLogin string
}

// NewCodec returns a Codec that only trusts comments written by botLogin.
func NewCodec(botLogin string) *Codec {
	return &Codec{botLogin: botLogin}
}

// Decode scans comments oldest first and returns the state recorded by the
// last tagged bot comment. A "reset" token forces the status back to New; an
// unrecognized token leaves the previously decoded status in place.
func (c *Codec) Decode(comments []gerritreconciler.Comment) Observed {
	var obs Observed
	for _, comment := range comments {
		if !strings.EqualFold(comment.Author, c.botLogin) {
			continue
		}
		body := comment.Body
		if !strings.Contains(body, Tag) {
			continue
		}
		obs.Found = true

		idx := strings.Index(body, Tag+":")
		if idx == -1 {
			continue
		}
		token := tokenPattern.FindString(body[idx+len(Tag)+1:])
		if s, ok := ParseToken(token); ok {
			obs.Status = s
		}
		if token == resetToken {
			obs.Status = New
		}
	}
	return obs
}

// ChangeURL returns the web URL of a change on the review host.
func ChangeURL(reviewURL string, number int) string {
	return fmt.Sprintf("%s/#/c/%d", strings.TrimSuffix(reviewURL, "/"), number)
}

// ExtractChangeID returns the Change-Id from the last Change-Id trailer of a
// commit message, or "" when there is none.
func ExtractChangeID(message string) string {
	all := changeIDPattern.FindAllStringSubmatch(message, -1)
	for i := len(all) - 1; i >= 0; i-- {
		if all[i][1] != "" {
			return all[i][1]
		}
	}
	return ""
}

// CorrelationMessage returns the Gerrit review message linking a change to
// the pull request it was generated from.
func CorrelationMessage(id gerritreconciler.Identity) string {
	return "Change-Set generated from " + id.URL() + ".\n" + Tag
}

// ParseCorrelation extracts the pull request named by a single correlation
// message.
func ParseCorrelation(message string) (gerritreconciler.Identity, bool) {
	if !strings.Contains(message, Tag) {
		return gerritreconciler.Identity{}, false
	}
	return gerritreconciler.FindURL(message)
}

// FindCorrelation returns the pull request named by the most recent
// correlation message in a change's history.
func FindCorrelation(messages []gerritreconciler.ChangeMessage) (gerritreconciler.Identity, bool) {
	var (
		found gerritreconciler.Identity
		ok    bool
	)
	for _, msg := range messages {
		if id, match := ParseCorrelation(msg.Message); match {
			found, ok = id, true
		}
	}
	return found, ok
}
