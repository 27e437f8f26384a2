/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package clonemanager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"chainguard.dev/gerritbot/reconcilers/gerritreconciler"
	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// HookRunner executes a commit-msg hook against the message file at msgFile,
// from within the working tree dir.
type HookRunner func(ctx context.Context, dir, hook, msgFile string) error

func shellHook(ctx context.Context, dir, hook, msgFile string) error {
	cmd := exec.CommandContext(ctx, "sh", hook, msgFile)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("running %s: %w: %s", filepath.Base(hook), err, out)
	}
	return nil
}

// Lease is a scratch clone owned by a single changeset build.
type Lease struct {
	manager *Manager
	path    string
	repo    *git.Repository
}

var _ gerritreconciler.Workspace = (*Lease)(nil)

// WorkingTree returns the absolute path to the lease's working directory.
func (l *Lease) WorkingTree() string {
	return l.path
}

// Repo returns the underlying git repository for this lease.
func (l *Lease) Repo() *git.Repository {
	return l.repo
}

// AddRemote registers an additional remote.
func (l *Lease) AddRemote(_ context.Context, name, url string) error {
	if _, err := l.repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: name,
		URLs: []string{url},
	}); err != nil {
		return fmt.Errorf("adding remote %s: %w", name, err)
	}
	return nil
}

func (l *Lease) hookPath() string {
	return filepath.Join(l.path, ".git", "hooks", "commit-msg")
}

// InstallCommitHook writes script as the executable commit-msg hook.
func (l *Lease) InstallCommitHook(_ context.Context, script []byte) error {
	hook := l.hookPath()
	if err := os.MkdirAll(filepath.Dir(hook), 0o755); err != nil {
		return fmt.Errorf("creating hooks dir: %w", err)
	}
	if err := os.WriteFile(hook, script, 0o755); err != nil { //nolint:gosec
		return fmt.Errorf("writing commit-msg hook: %w", err)
	}
	return nil
}

func (l *Lease) headCommit() (*object.Commit, error) {
	head, err := l.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}
	commit, err := l.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("getting commit object: %w", err)
	}
	return commit, nil
}

// HeadCommit returns the commit currently checked out.
func (l *Lease) HeadCommit(context.Context) (*gerritreconciler.HeadCommit, error) {
	commit, err := l.headCommit()
	if err != nil {
		return nil, err
	}
	return &gerritreconciler.HeadCommit{
		SHA:     commit.Hash.String(),
		Message: commit.Message,
	}, nil
}

// Amend replaces the head commit's message. When a commit-msg hook is
// installed it is run over message first, as git commit --amend would.
func (l *Lease) Amend(ctx context.Context, message string) error {
	msg, err := l.applyHook(ctx, message)
	if err != nil {
		return err
	}

	head, err := l.headCommit()
	if err != nil {
		return err
	}

	worktree, err := l.repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}

	sig := head.Committer
	sig.When = time.Now()
	if c := l.manager.committer; c != nil {
		sig.Name, sig.Email = c.name, c.email
	}

	hash, err := worktree.Commit(msg, &git.CommitOptions{
		Amend:             true,
		AllowEmptyCommits: true,
		Author:            &head.Author,
		Committer:         &sig,
	})
	if err != nil {
		return fmt.Errorf("amending commit: %w", err)
	}
	clog.FromContext(ctx).Debugf("Amended %s as %s", head.Hash, hash)
	return nil
}

func (l *Lease) applyHook(ctx context.Context, message string) (string, error) {
	hook := l.hookPath()
	if _, err := os.Stat(hook); errors.Is(err, os.ErrNotExist) {
		return message, nil
	} else if err != nil {
		return "", fmt.Errorf("checking commit-msg hook: %w", err)
	}

	msgFile := filepath.Join(l.path, ".git", "COMMIT_EDITMSG")
	if err := os.WriteFile(msgFile, []byte(message), 0o644); err != nil { //nolint:gosec
		return "", fmt.Errorf("writing commit message: %w", err)
	}
	if err := l.manager.runHook(ctx, l.path, hook, msgFile); err != nil {
		return "", err
	}
	out, err := os.ReadFile(msgFile)
	if err != nil {
		return "", fmt.Errorf("reading commit message: %w", err)
	}
	return string(out), nil
}

// Push pushes refspec to remote. A remote that is already up to date is not
// an error.
func (l *Lease) Push(ctx context.Context, remote, refspec string) error {
	log := clog.FromContext(ctx)
	log.Infof("Pushing %s to %s", refspec, remote)

	if err := l.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(refspec)},
		Auth:       l.manager.pushAuth,
	}); err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			log.Infof("Remote %s already up to date", remote)
			return nil
		}
		return fmt.Errorf("pushing %s: %w", refspec, err)
	}
	return nil
}

// Close removes the lease's scratch directory.
func (l *Lease) Close(ctx context.Context) error {
	if l.path == "" {
		return nil
	}
	clog.FromContext(ctx).Debugf("Removing scratch clone %s", l.path)
	if err := os.RemoveAll(l.path); err != nil {
		return fmt.Errorf("removing %s: %w", l.path, err)
	}
	l.path = ""
	l.repo = nil
	return nil
}
