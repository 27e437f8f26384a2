/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package prreconciler drives a GitHub pull request through its review
// lifecycle:
//
//	new -> too_many_commits | no_cla -> created/pushed -> closed | timeout
//
// The Reconciler keeps no state of its own. Each LookAt re-derives the last
// announced status from the bot's own GitHub comments, checks the commit and
// CLA requirements, builds or updates the Gerrit change when they are met, and
// posts a comment only when the externally visible status moves forward.
//
// Usage:
//
//	r, err := prreconciler.New(projects, code, review, vcs,
//		prreconciler.WithBotLogin("sdk-bot"),
//		prreconciler.WithCLAGroup(groupID),
//		prreconciler.WithReviewURL("https://review.example.org"),
//		prreconciler.WithRemote(changeset.RemoteConfig{User: "sdk-bot", Host: "review.example.org", Port: 29418}),
//	)
//	if err != nil {
//		return err
//	}
//	status, err := r.LookAt(ctx, id)
package prreconciler
