// Command vaultd wires the vault core's collaborators and services into a
// runnable process: it loads configuration, starts the event-stream
// connection and the auto-lock sweeper, and serves until an interrupt or
// terminate signal requests a graceful shutdown.
//
// The platform-specific pieces spec.md §1 calls out of scope — real file
// pickers, OAuth2 login UI, foreign-function bridges — have no analogue
// here; vaultd is the minimal host a CLI or headless agent needs to drive
// the three cores (store, cipher/repo lifecycle, event-stream) end to end.
// A real command dispatcher (desktop/mobile/web shim) would sit in front of
// the App below and translate platform commands into calls on its services;
// that thin translation layer is exactly what spec.md §1 excludes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/koofr/vault-sub003/internal/auth"
	"github.com/koofr/vault-sub003/internal/config"
	"github.com/koofr/vault-sub003/internal/eventstream"
	"github.com/koofr/vault-sub003/internal/httpclient"
	"github.com/koofr/vault-sub003/internal/lifecycle"
	"github.com/koofr/vault-sub003/internal/logging"
	"github.com/koofr/vault-sub003/internal/notifications"
	"github.com/koofr/vault-sub003/internal/remote"
	"github.com/koofr/vault-sub003/internal/remoteadapter"
	"github.com/koofr/vault-sub003/internal/repofiles"
	"github.com/koofr/vault-sub003/internal/repos"
	"github.com/koofr/vault-sub003/internal/runtime"
	"github.com/koofr/vault-sub003/internal/securestorage"
	"github.com/koofr/vault-sub003/internal/selection"
	"github.com/koofr/vault-sub003/internal/sortorder"
	"github.com/koofr/vault-sub003/internal/spaceusage"
	"github.com/koofr/vault-sub003/internal/store"
	"github.com/koofr/vault-sub003/internal/transfers"
	"github.com/koofr/vault-sub003/internal/user"
	"github.com/koofr/vault-sub003/internal/wstransport"
)

// App holds every wired vault-core service for the lifetime of the process.
// A platform shim reaches into App's fields to dispatch commands; App itself
// never dispatches anything, matching §9's "cyclic ownership avoided by
// giving every service a shared read-only handle to the store" design note.
type App struct {
	Store *store.Store

	Repos         *repos.Service
	ConfigBackup  *repos.ConfigBackupService
	RepoFiles     *repofiles.Service
	Transfers     *transfers.Engine
	User          *user.Service
	SpaceUsage    *spaceusage.Service
	Lifecycle     *lifecycle.Service
	Selection     *selection.Service
	Sort          *sortorder.Service
	Notifications *notifications.Service
	EventStream   *eventstream.Service

	rt     runtime.Runtime
	log    *logging.Logger
	cancel context.CancelFunc
}

// NewApp constructs every collaborator and service from cfg, wiring the
// store/remote/event-stream cores described in SPEC_FULL.md §4 together.
func NewApp(cfg *config.Config, logger *logging.Logger) *App {
	rt := runtime.NewReal()
	st := store.New(nil)

	httpClient := httpclient.NewRealClient(cfg.HTTPTimeout)
	secureStorage := securestorage.NewInMemory()
	refresher := auth.NewHTTPRefresher(httpClient, rt, cfg.OAuthTokenURL, cfg.OAuthClientID, cfg.OAuthClientSecret)
	authProvider := auth.NewProvider(secureStorage, refresher, rt, "")

	remoteClient := remote.New(httpClient, authProvider, cfg.RemoteBaseURL)
	reposSvc := repos.NewService(st, rt, remoteadapter.ForRepos(remoteClient))

	return &App{
		Store:         st,
		Repos:         reposSvc,
		ConfigBackup:  repos.NewConfigBackupService(reposSvc),
		RepoFiles:     repofiles.NewService(st, remoteadapter.ForRepoFiles(remoteClient), reposSvc),
		Transfers:     transfers.NewEngine(st, rt, remoteadapter.ForTransfers(remoteClient), reposSvc, cfg.TransferConcurrency, cfg.TransferMaxAttempts),
		User:          user.NewService(st, remoteadapter.ForUser(remoteClient)),
		SpaceUsage:    spaceusage.NewService(st, remoteadapter.ForSpaceUsage(remoteClient)),
		Lifecycle:     lifecycle.NewService(st),
		Selection:     selection.NewService(st),
		Sort:          sortorder.NewService(st),
		Notifications: notifications.NewService(st),
		EventStream:   eventstream.NewService(st, rt, authProvider, wstransport.NewRealClient(), cfg.EventStreamURL),
		rt:            rt,
		log:           logger,
	}
}

// Start launches the event-stream connection and the auto-lock sweeper as
// background tasks on the injected Runtime. Call Shutdown to tear them down.
func (a *App) Start(ctx context.Context, autoLockSweepInterval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.EventStream.Start(ctx)

	a.rt.Spawn(func() {
		if err := a.Repos.RunAutoLockSweeper(ctx, autoLockSweepInterval); err != nil && ctx.Err() == nil {
			a.log.Error("auto-lock sweeper stopped", logging.Error(err))
			if _, nerr := a.Notifications.PushError(err); nerr != nil {
				a.log.Warn("failed to record auto-lock sweeper failure", logging.Error(nerr))
			}
		}
	})
}

// Shutdown locks every repo, stops the event-stream connection, cancels
// background tasks, and waits for them to drain (§4.E: "Logout MUST lock
// every repo first").
func (a *App) Shutdown() {
	if err := a.Lifecycle.SetAppVisibility(store.AppHidden); err != nil {
		a.log.Warn("failed to mark app hidden during shutdown", logging.Error(err))
	}
	if err := a.Repos.Logout(); err != nil {
		a.log.Warn("failed to lock repos during shutdown", logging.Error(err))
	}
	a.EventStream.Stop()
	if a.cancel != nil {
		a.cancel()
	}
	if waiter, ok := a.rt.(interface{ Wait() }); ok {
		waiter.Wait()
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize structured logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	app := NewApp(cfg, logger)

	subID := app.Store.Subscribe([]store.MutationEvent{store.EventRepos, store.EventEventStream}, func(event store.MutationEvent) {
		logger.Debug("state mutation observed", logging.String("event", string(event)))
	})
	defer app.Store.Unsubscribe(subID)

	app.Start(context.Background(), cfg.AutoLockSweepInterval)

	logger.Info("vaultd started",
		logging.String("remote_base_url", cfg.RemoteBaseURL),
		logging.String("eventstream_url", cfg.EventStreamURL),
		logging.Int("transfer_concurrency", cfg.TransferConcurrency),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutdown requested")
	app.Shutdown()
	logger.Info("vaultd stopped")
}
