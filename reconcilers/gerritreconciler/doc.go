/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package gerritreconciler holds the shared model for reconciling GitHub pull
// requests into Gerrit changes.
//
// The reconciler keeps no database of its own. Everything it knows about a
// pull request is re-derived on every pass from two append-only streams: the
// GitHub issue comments and the Gerrit change messages that the bot itself
// wrote. The subpackages build on the types defined here:
//
//   - statustag encodes and decodes the lifecycle tags embedded in those streams.
//   - cla determines the CLA state of every commit author of a pull request.
//   - correlator maps a pull request to the single live Gerrit change created for it.
//   - changeset clones, amends and pushes a pull request to Gerrit.
//   - prreconciler ties the above together into the LookAt state machine.
//
// The CodeHost and ReviewHost interfaces describe the only capabilities the
// core needs from GitHub and Gerrit; githubhost and gerrithost implement them.
package gerritreconciler
