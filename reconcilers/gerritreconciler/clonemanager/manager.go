/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package clonemanager

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"chainguard.dev/gerritbot/reconcilers/gerritreconciler"
	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"golang.org/x/crypto/ssh"
	"golang.org/x/oauth2"
)

// Manager leases scratch clones under a single root directory.
type Manager struct {
	root string

	tokenSource oauth2.TokenSource
	pushAuth    transport.AuthMethod
	committer   *committer
	runHook     HookRunner
}

type committer struct {
	name  string
	email string
}

var _ gerritreconciler.VCS = (*Manager)(nil)

// New constructs a Manager rooted at root. Any existing content of root is
// removed.
func New(ctx context.Context, root string, opts ...Option) (*Manager, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("scratch root cannot be empty")
	}

	m := &Manager{
		root:    root,
		runHook: shellHook,
	}
	for _, opt := range opts {
		opt(m)
	}

	clog.FromContext(ctx).Infof("Resetting scratch root %s", root)
	if err := os.RemoveAll(root); err != nil {
		return nil, fmt.Errorf("removing scratch root: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating scratch root: %w", err)
	}
	return m, nil
}

// Clone checks out the branch ref of url into a new lease directory.
func (m *Manager) Clone(ctx context.Context, name, url, ref string) (gerritreconciler.Workspace, error) {
	lease, err := m.Lease(ctx, name, url, ref)
	if err != nil {
		return nil, err
	}
	return lease, nil
}

// Lease is the concrete form of Clone.
func (m *Manager) Lease(ctx context.Context, name, url, ref string) (*Lease, error) {
	switch {
	case url == "":
		return nil, errors.New("clone url cannot be empty")
	case ref == "":
		return nil, errors.New("ref cannot be empty")
	}

	dir, err := m.scratchDir(name)
	if err != nil {
		return nil, err
	}

	auth, err := m.authForClone()
	if err != nil {
		return nil, fmt.Errorf("getting token: %w", err)
	}

	clog.FromContext(ctx).Infof("Cloning %s@%s into %s", url, ref, dir)
	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           url,
		ReferenceName: plumbing.NewBranchReferenceName(ref),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("cloning repository: %w", err)
	}

	return &Lease{
		manager: m,
		path:    dir,
		repo:    repo,
	}, nil
}

// scratchDir returns a not yet existing path <root>/<name>_<8 hex chars>.
func (m *Manager) scratchDir(name string) (string, error) {
	name = strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(name)
	if name == "" {
		name = "clone"
	}

	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("generating scratch suffix: %w", err)
	}
	return filepath.Join(m.root, name+"_"+hex.EncodeToString(suffix)), nil
}

func (m *Manager) authForClone() (transport.AuthMethod, error) {
	if m.tokenSource == nil {
		return nil, nil
	}

	token, err := m.tokenSource.Token()
	if err != nil {
		return nil, err
	}

	return &githttp.BasicAuth{
		Username: "unused-when-using-access-tokens",
		Password: token.AccessToken,
	}, nil
}

// SSHAuth loads the private key at keyPath for pushing as user. Host keys are
// verified against knownHosts when set and accepted blindly otherwise.
func SSHAuth(user, keyPath, knownHosts string) (transport.AuthMethod, error) {
	auth, err := gitssh.NewPublicKeysFromFile(user, keyPath, "")
	if err != nil {
		return nil, fmt.Errorf("loading ssh key %s: %w", keyPath, err)
	}

	if knownHosts == "" {
		auth.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec
		return auth, nil
	}

	cb, err := gitssh.NewKnownHostsCallback(knownHosts)
	if err != nil {
		return nil, fmt.Errorf("loading known hosts %s: %w", knownHosts, err)
	}
	auth.HostKeyCallback = cb
	return auth, nil
}
