/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main runs gerritbot: it receives GitHub webhooks and chat commands,
// and reconciles the pull requests they name into Gerrit changes.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chainguard.dev/gerritbot/chatops"
	"chainguard.dev/gerritbot/reconcilers/gerritreconciler"
	"chainguard.dev/gerritbot/reconcilers/gerritreconciler/changeset"
	"chainguard.dev/gerritbot/reconcilers/gerritreconciler/clonemanager"
	"chainguard.dev/gerritbot/reconcilers/gerritreconciler/gerrithost"
	"chainguard.dev/gerritbot/reconcilers/gerritreconciler/githubhost"
	"chainguard.dev/gerritbot/reconcilers/gerritreconciler/prreconciler"
	"chainguard.dev/gerritbot/webhook"
	"chainguard.dev/gerritbot/workqueue"
	"chainguard.dev/gerritbot/workqueue/dispatcher"
	"chainguard.dev/gerritbot/workqueue/inmem"
	"github.com/chainguard-dev/clog"
	_ "github.com/chainguard-dev/clog/gcp/init"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sethvargo/go-envconfig"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

type config struct {
	Port        int `env:"PORT,default=8080"`
	MetricsPort int `env:"METRICS_PORT,default=2112"`

	GitHubToken   string `env:"GITHUB_TOKEN,required"`
	GitHubBaseURL string `env:"GITHUB_BASE_URL"`
	BotLogin      string `env:"BOT_LOGIN,required"`

	GerritURL      string `env:"GERRIT_URL,required"`
	GerritUser     string `env:"GERRIT_USER,required"`
	GerritPassword string `env:"GERRIT_PASSWORD"`
	GerritSSHHost  string `env:"GERRIT_SSH_HOST,required"`
	GerritSSHPort  int    `env:"GERRIT_SSH_PORT,default=29418"`
	SSHKeyPath     string `env:"SSH_KEY_PATH,required"`
	KnownHosts     string `env:"SSH_KNOWN_HOSTS"`
	CLAGroup       string `env:"CLA_GROUP,required"`

	CommitterName  string `env:"COMMITTER_NAME"`
	CommitterEmail string `env:"COMMITTER_EMAIL"`

	ProjectsFile string        `env:"PROJECTS_FILE,default=projects.yaml"`
	ScratchRoot  string        `env:"SCRATCH_ROOT,default=repos"`
	Timeout      time.Duration `env:"PR_TIMEOUT,default=168h"`

	Concurrency  int           `env:"QUEUE_CONCURRENCY,default=4"`
	MaxRetry     int           `env:"QUEUE_MAX_RETRY,default=5"`
	PollInterval time.Duration `env:"QUEUE_POLL_INTERVAL,default=1s"`
	Lease        time.Duration `env:"QUEUE_LEASE,default=30m"`

	ChatToken string `env:"CHAT_TOKEN"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		clog.FatalContextf(ctx, "processing config: %v", err)
	}

	rec, err := newReconciler(ctx, cfg)
	if err != nil {
		clog.FatalContextf(ctx, "creating reconciler: %v", err)
	}

	queue := inmem.New(inmem.WithLease(cfg.Lease))
	router := newRouter(
		webhook.New(queue, webhook.WithIgnoredSenders(cfg.BotLogin)),
		chatops.Handler(chatops.NewResponder(rec), cfg.ChatToken),
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return serve(ctx, fmt.Sprintf(":%d", cfg.Port), router)
	})
	eg.Go(func() error {
		return serve(ctx, fmt.Sprintf(":%d", cfg.MetricsPort), promhttp.Handler())
	})
	eg.Go(func() error {
		err := dispatcher.Run(ctx, queue, cfg.PollInterval, cfg.Concurrency, 0,
			func(ctx context.Context, key string, _ workqueue.Options) error {
				return rec.Reconcile(ctx, key)
			}, cfg.MaxRetry)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	clog.InfoContextf(ctx, "Starting gerritbot on port %d", cfg.Port)
	if err := eg.Wait(); err != nil {
		clog.FatalContextf(ctx, "gerritbot failed: %v", err)
	}
}

func newReconciler(ctx context.Context, cfg config) (*prreconciler.Reconciler, error) {
	f, err := os.Open(cfg.ProjectsFile)
	if err != nil {
		return nil, fmt.Errorf("opening projects file: %w", err)
	}
	defer f.Close()
	projects, err := gerritreconciler.LoadProjectMapping(f)
	if err != nil {
		return nil, fmt.Errorf("loading projects: %w", err)
	}
	clog.InfoContextf(ctx, "Loaded %d project mappings", projects.Len())

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHubToken})

	var ghOpts []githubhost.Option
	if cfg.GitHubBaseURL != "" {
		ghOpts = append(ghOpts, githubhost.WithBaseURL(cfg.GitHubBaseURL))
	}
	code, err := githubhost.New(ctx, ts, ghOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating github host: %w", err)
	}

	var gerritOpts []gerrithost.Option
	if cfg.GerritPassword != "" {
		gerritOpts = append(gerritOpts, gerrithost.WithBasicAuth(cfg.GerritUser, cfg.GerritPassword))
	}
	review, err := gerrithost.New(ctx, cfg.GerritURL, nil, gerritOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating gerrit host: %w", err)
	}

	pushAuth, err := clonemanager.SSHAuth(cfg.GerritUser, cfg.SSHKeyPath, cfg.KnownHosts)
	if err != nil {
		return nil, fmt.Errorf("loading ssh key: %w", err)
	}
	cmOpts := []clonemanager.Option{
		clonemanager.WithTokenSource(ts),
		clonemanager.WithPushAuth(pushAuth),
	}
	if cfg.CommitterName != "" && cfg.CommitterEmail != "" {
		cmOpts = append(cmOpts, clonemanager.WithCommitter(cfg.CommitterName, cfg.CommitterEmail))
	}
	vcs, err := clonemanager.New(ctx, cfg.ScratchRoot, cmOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating clone manager: %w", err)
	}

	return prreconciler.New(projects, code, review, vcs,
		prreconciler.WithBotLogin(cfg.BotLogin),
		prreconciler.WithCLAGroup(cfg.CLAGroup),
		prreconciler.WithReviewURL(cfg.GerritURL),
		prreconciler.WithTimeout(cfg.Timeout),
		prreconciler.WithRemote(changeset.RemoteConfig{
			User: cfg.GerritUser,
			Host: cfg.GerritSSHHost,
			Port: cfg.GerritSSHPort,
		}),
	)
}

// serve runs an HTTP server on addr until ctx is cancelled.
func serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			clog.WarnContextf(ctx, "Shutting down %s: %v", addr, err)
		}
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving %s: %w", addr, err)
	}
	return nil
}
