/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRouter(t *testing.T) {
	named := func(name string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("X-Handler", name)
		})
	}
	r := newRouter(named("hook"), named("chat"))

	tests := []struct {
		method      string
		path        string
		wantStatus  int
		wantHandler string
	}{
		{http.MethodPost, "/handle", http.StatusOK, "hook"},
		{http.MethodPost, "/chat", http.StatusOK, "chat"},
		{http.MethodGet, "/healthz", http.StatusOK, ""},
		{http.MethodGet, "/handle", http.StatusMethodNotAllowed, ""},
		{http.MethodPost, "/nope", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("X-Handler"); got != tt.wantHandler {
				t.Errorf("handler = %q, want %q", got, tt.wantHandler)
			}
		})
	}
}
