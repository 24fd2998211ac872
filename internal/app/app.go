// Package app wires configuration, the rule-set repository, tracing and the
// highlighting service together.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/zjrosen/gensynth/internal/config"
	"github.com/zjrosen/gensynth/internal/log"
	"github.com/zjrosen/gensynth/internal/paths"
	"github.com/zjrosen/gensynth/internal/pubsub"
	"github.com/zjrosen/gensynth/internal/repository"
	"github.com/zjrosen/gensynth/internal/tracing"
	"github.com/zjrosen/gensynth/internal/watcher"
)

// App owns the long-lived components of one gensynth process.
type App struct {
	cfg     config.Config
	repo    *repository.Repository
	tracing *tracing.Provider
	service *Service

	// Languages directory watcher (pubsub-based)
	watchCtx    context.Context
	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

// Option configures an App.
type Option func(*options)

type options struct {
	repoOpts []repository.Option
	out      io.Writer
	watch    *watcher.Config
}

// WithRepositoryOptions appends options after the ones derived from config.
func WithRepositoryOptions(opts ...repository.Option) Option {
	return func(o *options) { o.repoOpts = append(o.repoOpts, opts...) }
}

// WithWriter sets where ANSI output goes.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithWatchConfig overrides the watcher settings used for watch_languages.
func WithWatchConfig(cfg watcher.Config) Option {
	return func(o *options) { o.watch = &cfg }
}

// New validates cfg and builds the application. Close releases it.
func New(cfg config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg.LanguagesDir = paths.Expand(cfg.LanguagesDir)
	repoOpts := []repository.Option{repository.WithCacheTTL(cfg.Cache.TTL)}
	if cfg.LanguagesDir != "" {
		repoOpts = append(repoOpts, repository.WithUserDir(cfg.LanguagesDir))
	}
	repo, err := repository.New(append(repoOpts, o.repoOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("loading languages: %w", err)
	}

	tc := cfg.Tracing
	tc.FilePath = paths.Expand(tc.FilePath)
	if tc.Enabled && tc.Exporter == "file" && tc.FilePath == "" {
		tc.FilePath = config.DefaultTracesFilePath()
	}
	provider, err := tracing.NewProvider(tracing.Config{
		Enabled:      tc.Enabled,
		Exporter:     tc.Exporter,
		FilePath:     tc.FilePath,
		OTLPEndpoint: tc.OTLPEndpoint,
		SampleRate:   tc.SampleRate,
		ServiceName:  tracing.DefaultServiceName,
	})
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	svcOpts := []ServiceOption{WithTracer(provider.Tracer())}
	if o.out != nil {
		svcOpts = append(svcOpts, WithOutput(o.out))
	}
	a := &App{
		cfg:     cfg,
		repo:    repo,
		tracing: provider,
		service: NewService(repo, cfg, svcOpts...),
	}

	if cfg.WatchLanguages {
		wc := watcher.DefaultConfig(cfg.LanguagesDir)
		if o.watch != nil {
			wc = *o.watch
		}
		a.startWatching(wc)
	}
	return a, nil
}

// startWatching follows the languages directory. Watch failures are logged;
// the app works without live reload.
func (a *App) startWatching(wc watcher.Config) {
	a.watchCtx, a.watchCancel = context.WithCancel(context.Background())
	events := a.repo.Subscribe(a.watchCtx,
		pubsub.RuleSetChangedEvent, pubsub.RuleSetRemovedEvent, pubsub.RuleSetsReloadedEvent)
	if err := a.repo.Watch(a.watchCtx, wc); err != nil {
		if !errors.Is(err, repository.ErrNoUserDir) {
			log.ErrorErr(log.CatWatcher, "watching languages failed", err, "dir", a.repo.UserDir())
		}
		a.watchCancel()
		a.watchCtx, a.watchCancel = nil, nil
		return
	}

	a.watchDone = make(chan struct{})
	go func() {
		defer close(a.watchDone)
		for ev := range events {
			switch ev.Type {
			case pubsub.RuleSetChangedEvent:
				log.Info(log.CatRepo, "language reloaded", "id", ev.Payload)
			case pubsub.RuleSetRemovedEvent:
				log.Info(log.CatRepo, "language removed", "id", ev.Payload)
			case pubsub.RuleSetsReloadedEvent:
				log.Info(log.CatRepo, "languages re-indexed", "count", len(a.repo.Languages()))
			}
		}
	}()
}

// Config returns the validated configuration.
func (a *App) Config() config.Config { return a.cfg }

// Service returns the highlighting service.
func (a *App) Service() *Service { return a.service }

// Repository returns the rule-set repository.
func (a *App) Repository() *repository.Repository { return a.repo }

// Watching reports whether the languages directory is being followed.
func (a *App) Watching() bool { return a.watchCancel != nil }

// Close stops watching, flushes traces and releases subscribers.
func (a *App) Close(ctx context.Context) error {
	if a.watchCancel != nil {
		a.watchCancel()
		<-a.watchDone
	}
	a.repo.Close()
	return a.tracing.Shutdown(ctx)
}
