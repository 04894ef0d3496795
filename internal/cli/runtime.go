package cli

import (
	"context"
	"fmt"
	"io"

	"fuelcoach-go/internal/apiclient"
	"fuelcoach-go/internal/config"
	"fuelcoach-go/internal/credential"
	"fuelcoach-go/internal/endpoints"
	"fuelcoach-go/internal/events"
	"fuelcoach-go/internal/logging"
	"fuelcoach-go/internal/monitoring"
	"fuelcoach-go/internal/monitoring/tracing"
	"fuelcoach-go/internal/offline"
	"fuelcoach-go/internal/session"
	"fuelcoach-go/internal/storage"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// SessionExpiredMessage is printed when the server ends the session.
const SessionExpiredMessage = "session expired, please log in again"

// Runtime is everything a command needs, wired from configuration.
type Runtime struct {
	Config   *config.Config
	Manager  *config.ConfigManager
	Hub      *events.Hub
	Backend  storage.Backend
	Store    *credential.KVStore
	Queue    *offline.Queue
	Notifier *session.Notifier
	Client   *apiclient.Client
	API      *endpoints.API

	shutdownTracing func(context.Context) error
}

// openRuntime loads configuration and builds the client stack. The session
// handler writes to errw so JSON output on stdout stays parseable.
func openRuntime(ctx context.Context, opts *RootOptions, errw io.Writer) (*Runtime, error) {
	mgr, err := config.NewConfigManager(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}
	cfg := mgr.Config()
	if opts.Debug {
		cfg.Security.Debug = true
	}
	if err := logging.Setup(cfg); err != nil {
		return nil, WrapExitError(ExitCommandError, "setup logging", err)
	}
	monitoring.SetEnabled(cfg.Telemetry.MetricsEnabled)

	rt := &Runtime{
		Config:          cfg,
		Manager:         mgr,
		shutdownTracing: func(context.Context) error { return nil },
	}
	if cfg.Telemetry.TracingEnabled {
		shutdown, err := tracing.Init(ctx, tracing.OptionsFromEnv())
		if err != nil {
			log.WithError(err).Warn("tracing init failed, continuing without export")
		}
		rt.shutdownTracing = shutdown
	}

	rt.Hub = events.NewHub()
	mgr.SetEventPublisher(rt.Hub)

	backend, err := storage.Build(ctx, cfg.Storage)
	if err != nil {
		rt.Close()
		return nil, WrapExitError(ExitCommandError, "open storage", err)
	}
	rt.Backend = backend
	rt.Store = credential.NewKVStore(backend)
	rt.Queue = offline.NewQueue(backend,
		offline.WithCapacity(cfg.Offline.Capacity),
		offline.WithReplayRate(cfg.Offline.ReplayRPS, cfg.Offline.ReplayBurst),
		offline.WithEventPublisher(rt.Hub),
	)

	rt.Notifier = session.NewNotifier()
	rt.Notifier.SetEventPublisher(rt.Hub)
	rt.Notifier.SetOnUnauthorized(func(ctx context.Context, reason session.Reason) {
		fmt.Fprintln(errw, SessionExpiredMessage)
	})

	client, err := apiclient.NewFromConfig(cfg, rt.Store,
		apiclient.WithQueue(rt.Queue),
		apiclient.WithNotifier(rt.Notifier),
		apiclient.WithEventPublisher(rt.Hub),
	)
	if err != nil {
		rt.Close()
		return nil, WrapExitError(ExitCommandError, "configure api client", err)
	}
	rt.Client = client
	rt.API = endpoints.New(client)

	log.WithFields(log.Fields{
		"base_url": client.BaseURL(),
		"storage":  backend.Name(),
	}).Debug("runtime ready")
	return rt, nil
}

// applyReload pushes hot-reloadable settings onto the live runtime.
func (rt *Runtime) applyReload(cfg *config.Config) {
	rt.Queue.SetCapacity(cfg.Offline.Capacity)
	rt.Queue.SetReplayRate(cfg.Offline.ReplayRPS, cfg.Offline.ReplayBurst)
	if err := logging.Setup(cfg); err != nil {
		log.WithError(err).Warn("failed to apply logging settings from reloaded config")
	}
	monitoring.SetEnabled(cfg.Telemetry.MetricsEnabled)
	log.WithField("capacity", cfg.Offline.Capacity).Info("configuration reloaded")
}

// Close releases storage, the config watcher and the tracer.
func (rt *Runtime) Close() {
	if rt == nil {
		return
	}
	if rt.Manager != nil {
		rt.Manager.Stop()
	}
	if rt.Backend != nil {
		if err := rt.Backend.Close(); err != nil {
			log.WithError(err).Warn("failed to close storage backend")
		}
	}
	if rt.shutdownTracing != nil {
		if err := rt.shutdownTracing(context.Background()); err != nil {
			log.WithError(err).Warn("tracer shutdown failed")
		}
	}
}

// withRuntime opens the runtime, runs fn and closes it again. Errors from fn
// are rendered through the formatter.
func withRuntime(cmd *cobra.Command, opts *RootOptions, f *OutputFormatter, fn func(ctx context.Context, rt *Runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := openRuntime(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return f.Fail(err)
	}
	defer rt.Close()
	if err := fn(ctx, rt); err != nil {
		return f.Fail(err)
	}
	return nil
}
