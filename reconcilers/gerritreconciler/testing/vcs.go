/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package testing

import (
	"context"
	"crypto/sha1" //nolint:gosec
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"chainguard.dev/gerritbot/reconcilers/gerritreconciler"
)

// PushFunc observes a push made through a Workspace.
type PushFunc func(ctx context.Context, remote, refspec string, head gerritreconciler.HeadCommit) error

// VCS is an in-memory gerritreconciler.VCS.
type VCS struct {
	// GeneratedChangeID is added by the fake commit-msg hook to messages
	// without a Change-Id. When empty the hook adds nothing.
	GeneratedChangeID string
	// OnPush, when set, is called for every push and its error returned.
	OnPush PushFunc
	// CloneErr, when set, is returned from Clone.
	CloneErr error
	// CloseErr, when set, is returned from every Workspace.Close after the
	// workspace is marked closed.
	CloseErr error

	mu         sync.Mutex
	heads      map[string]gerritreconciler.HeadCommit
	workspaces []*Workspace
}

var _ gerritreconciler.VCS = (*VCS)(nil)

// NewVCS returns a VCS whose hook generates changeID.
func NewVCS(changeID string) *VCS {
	return &VCS{
		GeneratedChangeID: changeID,
		heads:             make(map[string]gerritreconciler.HeadCommit),
	}
}

// SetHead registers the commit checked out when cloning ref of url.
func (v *VCS) SetHead(url, ref string, head gerritreconciler.HeadCommit) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.heads[url+"@"+ref] = head
}

// Workspaces returns every workspace handed out so far.
func (v *VCS) Workspaces() []*Workspace {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]*Workspace(nil), v.workspaces...)
}

func (v *VCS) Clone(_ context.Context, name, url, ref string) (gerritreconciler.Workspace, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.CloneErr != nil {
		return nil, v.CloneErr
	}
	head, ok := v.heads[url+"@"+ref]
	if !ok {
		return nil, fmt.Errorf("clone %s@%s: %w", url, ref, gerritreconciler.ErrNotFound)
	}
	ws := &Workspace{
		vcs:     v,
		Name:    name,
		URL:     url,
		Ref:     ref,
		Remotes: make(map[string]string),
		head:    head,
	}
	v.workspaces = append(v.workspaces, ws)
	return ws, nil
}

// Workspace is a fake scratch clone recording every operation.
type Workspace struct {
	vcs *VCS

	Name string
	URL  string
	Ref  string

	mu            sync.Mutex
	head          gerritreconciler.HeadCommit
	Remotes       map[string]string
	HookInstalled bool
	Amends        []string
	Pushes        []string
	Closed        bool
}

var _ gerritreconciler.Workspace = (*Workspace)(nil)

func (w *Workspace) AddRemote(_ context.Context, name, url string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.Remotes[name]; ok {
		return fmt.Errorf("remote %s already exists", name)
	}
	w.Remotes[name] = url
	return nil
}

func (w *Workspace) InstallCommitHook(_ context.Context, script []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.HookInstalled = len(script) > 0
	return nil
}

func (w *Workspace) HeadCommit(context.Context) (*gerritreconciler.HeadCommit, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	head := w.head
	return &head, nil
}

func (w *Workspace) Amend(_ context.Context, message string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Amends = append(w.Amends, message)
	if w.HookInstalled && w.vcs.GeneratedChangeID != "" && !strings.Contains(message, "Change-Id:") {
		message = strings.TrimRight(message, "\n") + "\n\nChange-Id: " + w.vcs.GeneratedChangeID + "\n"
	}
	sum := sha1.Sum([]byte(w.head.SHA + message)) //nolint:gosec
	w.head = gerritreconciler.HeadCommit{
		SHA:     hex.EncodeToString(sum[:]),
		Message: message,
	}
	return nil
}

func (w *Workspace) Push(ctx context.Context, remote, refspec string) error {
	w.mu.Lock()
	w.Pushes = append(w.Pushes, remote+" "+refspec)
	head := w.head
	w.mu.Unlock()

	if w.vcs.OnPush != nil {
		return w.vcs.OnPush(ctx, remote, refspec, head)
	}
	return nil
}

func (w *Workspace) Close(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Closed = true
	return w.vcs.CloseErr
}
