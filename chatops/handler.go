/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package chatops

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/chainguard-dev/clog"
)

// reply is a slash-command style response.
type reply struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text"`
}

// Handler serves chat commands posted as a form with a "text" field. When
// token is set, requests must carry the same value in the "token" field.
func Handler(r *Responder, token string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()

		if err := req.ParseForm(); err != nil {
			http.Error(w, "malformed request", http.StatusBadRequest)
			return
		}
		if token != "" && subtle.ConstantTimeCompare([]byte(req.PostFormValue("token")), []byte(token)) != 1 {
			clog.WarnContextf(ctx, "Rejecting chat request with a bad token")
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		replies := r.Respond(ctx, req.PostFormValue("text"))
		if len(replies) == 0 {
			replies = []string{"Usage: verify <pull request URL> | lookat <pull request URL>"}
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(reply{
			ResponseType: "in_channel",
			Text:         strings.Join(replies, "\n"),
		}); err != nil {
			clog.ErrorContextf(ctx, "Writing chat reply: %v", err)
		}
	}
}
