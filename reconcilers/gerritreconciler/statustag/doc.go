/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package statustag encodes and decodes the machine readable tags the bot
// appends to the messages it posts.
//
// Two kinds of tag exist. Lifecycle tags of the form "::SDKBOT/PR:<token>"
// close every GitHub comment the bot writes, recording the Status that comment
// announced. Correlation tags are Gerrit review messages that carry both the
// bare "::SDKBOT/PR" marker and the URL of the pull request a change was
// generated from.
//
// Comment streams are append-only history, so decoding always lets the most
// recent matching message win.
package statustag
