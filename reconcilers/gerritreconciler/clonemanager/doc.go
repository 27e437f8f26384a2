/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package clonemanager provides scratch git clones for building Gerrit
// changesets out of pull requests. A Manager owns a scratch root directory and
// hands out Lease handles that:
//   - Hydrate a pull request's head branch into an isolated working tree.
//   - Install the review host's commit-msg hook and run it when amending.
//   - Push the amended head to a named remote, treating an up-to-date remote
//     as success.
//
// Every lease lives in its own randomly suffixed directory under the scratch
// root and is removed on Close. The scratch root is wiped when the Manager is
// created so leases abandoned by a previous process do not accumulate.
package clonemanager
