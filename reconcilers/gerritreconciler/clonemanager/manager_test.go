/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package clonemanager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const testChangeID = "I0123456789abcdef0123456789abcdef01234567"

// fakeHook appends a fixed Change-Id trailer unless one is present, mimicking
// Gerrit's commit-msg hook without shelling out.
func fakeHook(_ context.Context, _, _, msgFile string) error {
	b, err := os.ReadFile(msgFile)
	if err != nil {
		return err
	}
	msg := string(b)
	if !strings.Contains(msg, "Change-Id:") {
		msg = strings.TrimRight(msg, "\n") + "\n\nChange-Id: " + testChangeID + "\n"
	}
	return os.WriteFile(msgFile, []byte(msg), 0o644)
}

func TestNewResetsScratchRoot(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "repos")

	stale := filepath.Join(root, "widget_deadbeef")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	if _, err := New(ctx, root); err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := os.Stat(stale); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected stale lease removed, got err=%v", err)
	}
	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		t.Fatalf("expected scratch root to exist, got err=%v", err)
	}

	if _, err := New(ctx, "  "); err == nil {
		t.Fatal("New with empty root: expected error")
	}
}

func TestLeaseLifecycle(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	mgr, err := New(ctx, root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	repoDir, headHash := initTestRepo(t)

	lease, err := mgr.Lease(ctx, "sdk/core", repoDir, "master")
	if err != nil {
		t.Fatalf("Lease: %v", err)
	}

	dir := lease.WorkingTree()
	if got := filepath.Dir(dir); got != root {
		t.Errorf("lease parent = %s, want %s", got, root)
	}
	if base := filepath.Base(dir); !strings.HasPrefix(base, "sdk_core_") || len(base) != len("sdk_core_")+8 {
		t.Errorf("unexpected lease dir name %q", base)
	}

	head, err := lease.HeadCommit(ctx)
	if err != nil {
		t.Fatalf("HeadCommit: %v", err)
	}
	if head.SHA != headHash {
		t.Errorf("SHA mismatch, got %s want %s", head.SHA, headHash)
	}
	if head.Message != "initial\n" {
		t.Errorf("Message = %q", head.Message)
	}

	other, err := mgr.Lease(ctx, "sdk/core", repoDir, "master")
	if err != nil {
		t.Fatalf("second Lease: %v", err)
	}
	if other.WorkingTree() == dir {
		t.Error("expected distinct scratch directories per lease")
	}

	for _, l := range []*Lease{lease, other} {
		path := l.WorkingTree()
		if err := l.Close(ctx); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected %s removed, got err=%v", path, err)
		}
	}
}

func TestLeaseMissingRef(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	mgr, err := New(ctx, root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	repoDir, _ := initTestRepo(t)
	if _, err := mgr.Clone(ctx, "widget", repoDir, "no-such-branch"); err == nil {
		t.Fatal("Clone: expected error for missing ref")
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected failed clone to be cleaned up, found %d entries", len(entries))
	}
}

func TestAmend(t *testing.T) {
	tests := []struct {
		name        string
		installHook bool
		message     string
		want        string
	}{{
		name:        "hook adds change id",
		installHook: true,
		message:     "Fix widget\n",
		want:        "Fix widget\n\nChange-Id: " + testChangeID + "\n",
	}, {
		name:        "hook keeps existing change id",
		installHook: true,
		message:     "Fix widget\n\nChange-Id: Iabc\n",
		want:        "Fix widget\n\nChange-Id: Iabc\n",
	}, {
		name:    "no hook installed",
		message: "Fix widget\n",
		want:    "Fix widget\n",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()

			mgr, err := New(ctx, t.TempDir(), WithHookRunner(fakeHook), WithCommitter("gerritbot", "bot@example.com"))
			if err != nil {
				t.Fatalf("New: %v", err)
			}

			repoDir, headHash := initTestRepo(t)
			lease, err := mgr.Lease(ctx, "widget", repoDir, "master")
			if err != nil {
				t.Fatalf("Lease: %v", err)
			}
			t.Cleanup(func() { _ = lease.Close(ctx) })

			if tt.installHook {
				if err := lease.InstallCommitHook(ctx, []byte("#!/bin/sh\n")); err != nil {
					t.Fatalf("InstallCommitHook: %v", err)
				}
			}

			if err := lease.Amend(ctx, tt.message); err != nil {
				t.Fatalf("Amend: %v", err)
			}

			head, err := lease.HeadCommit(ctx)
			if err != nil {
				t.Fatalf("HeadCommit: %v", err)
			}
			if head.Message != tt.want {
				t.Errorf("Message = %q, want %q", head.Message, tt.want)
			}
			if head.SHA == headHash {
				t.Error("expected amend to produce a new commit")
			}

			amended, err := lease.Repo().CommitObject(plumbing.NewHash(head.SHA))
			if err != nil {
				t.Fatalf("CommitObject: %v", err)
			}
			original, err := lease.Repo().CommitObject(plumbing.NewHash(headHash))
			if err != nil {
				t.Fatalf("CommitObject original: %v", err)
			}
			if amended.TreeHash != original.TreeHash {
				t.Error("amend changed the tree")
			}
			if amended.NumParents() != original.NumParents() {
				t.Errorf("amend changed parents: %d vs %d", amended.NumParents(), original.NumParents())
			}
			if amended.Author.Email != "test@example.com" {
				t.Errorf("author = %s, want original author preserved", amended.Author.Email)
			}
			if amended.Committer.Email != "bot@example.com" {
				t.Errorf("committer = %s, want bot@example.com", amended.Committer.Email)
			}
		})
	}
}

func TestAmendRunsShellHook(t *testing.T) {
	ctx := context.Background()

	mgr, err := New(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	repoDir, _ := initTestRepo(t)
	lease, err := mgr.Lease(ctx, "widget", repoDir, "master")
	if err != nil {
		t.Fatalf("Lease: %v", err)
	}
	t.Cleanup(func() { _ = lease.Close(ctx) })

	hook := "#!/bin/sh\nprintf '\\nChange-Id: Ifeedface\\n' >> \"$1\"\n"
	if err := lease.InstallCommitHook(ctx, []byte(hook)); err != nil {
		t.Fatalf("InstallCommitHook: %v", err)
	}

	fi, err := os.Stat(filepath.Join(lease.WorkingTree(), ".git", "hooks", "commit-msg"))
	if err != nil {
		t.Fatalf("Stat hook: %v", err)
	}
	if fi.Mode().Perm()&0o100 == 0 {
		t.Errorf("hook is not executable: %v", fi.Mode())
	}

	if err := lease.Amend(ctx, "Fix widget\n"); err != nil {
		t.Fatalf("Amend: %v", err)
	}

	head, err := lease.HeadCommit(ctx)
	if err != nil {
		t.Fatalf("HeadCommit: %v", err)
	}
	if !strings.Contains(head.Message, "Change-Id: Ifeedface") {
		t.Errorf("hook output missing from message %q", head.Message)
	}
}

func TestAmendHookFailure(t *testing.T) {
	ctx := context.Background()

	failing := func(context.Context, string, string, string) error {
		return errors.New("hook exploded")
	}
	mgr, err := New(ctx, t.TempDir(), WithHookRunner(failing))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	repoDir, headHash := initTestRepo(t)
	lease, err := mgr.Lease(ctx, "widget", repoDir, "master")
	if err != nil {
		t.Fatalf("Lease: %v", err)
	}
	t.Cleanup(func() { _ = lease.Close(ctx) })

	if err := lease.InstallCommitHook(ctx, []byte("#!/bin/sh\n")); err != nil {
		t.Fatalf("InstallCommitHook: %v", err)
	}
	if err := lease.Amend(ctx, "Fix widget\n"); err == nil {
		t.Fatal("Amend: expected hook failure")
	}

	head, err := lease.HeadCommit(ctx)
	if err != nil {
		t.Fatalf("HeadCommit: %v", err)
	}
	if head.SHA != headHash {
		t.Error("failed amend must not move HEAD")
	}
}

func TestPush(t *testing.T) {
	ctx := context.Background()

	mgr, err := New(ctx, t.TempDir(), WithHookRunner(fakeHook))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	repoDir, _ := initTestRepo(t)
	review := t.TempDir()
	reviewRepo, err := git.PlainInit(review, true)
	if err != nil {
		t.Fatalf("PlainInit review: %v", err)
	}

	lease, err := mgr.Lease(ctx, "widget", repoDir, "master")
	if err != nil {
		t.Fatalf("Lease: %v", err)
	}
	t.Cleanup(func() { _ = lease.Close(ctx) })

	if err := lease.AddRemote(ctx, "gerrit", review); err != nil {
		t.Fatalf("AddRemote: %v", err)
	}
	if err := lease.AddRemote(ctx, "gerrit", review); err == nil {
		t.Error("AddRemote: expected duplicate remote to fail")
	}

	if err := lease.InstallCommitHook(ctx, []byte("#!/bin/sh\n")); err != nil {
		t.Fatalf("InstallCommitHook: %v", err)
	}
	if err := lease.Amend(ctx, "Fix widget\n"); err != nil {
		t.Fatalf("Amend: %v", err)
	}
	head, err := lease.HeadCommit(ctx)
	if err != nil {
		t.Fatalf("HeadCommit: %v", err)
	}

	const refspec = "refs/heads/master:refs/for/master"
	if err := lease.Push(ctx, "gerrit", refspec); err != nil {
		t.Fatalf("Push: %v", err)
	}

	ref, err := reviewRepo.Reference(plumbing.ReferenceName("refs/for/master"), true)
	if err != nil {
		t.Fatalf("Reference lookup: %v", err)
	}
	if got := ref.Hash().String(); got != head.SHA {
		t.Errorf("pushed %s, want %s", got, head.SHA)
	}

	// Pushing the same revision again is a no-op.
	if err := lease.Push(ctx, "gerrit", refspec); err != nil {
		t.Fatalf("second Push: %v", err)
	}

	if err := lease.Push(ctx, "missing", refspec); err == nil {
		t.Error("Push to unknown remote: expected error")
	}
}

func TestSSHAuthMissingKey(t *testing.T) {
	if _, err := SSHAuth("bot", filepath.Join(t.TempDir(), "id_ed25519"), ""); err == nil {
		t.Fatal("SSHAuth: expected error for missing key")
	}
}

func initTestRepo(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "widget.go"), []byte("package widget\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := wt.Add("widget.go"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	hash, err := wt.Commit("initial\n", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("master"))); err != nil {
		t.Fatalf("SetReference: %v", err)
	}

	return dir, hash.String()
}
