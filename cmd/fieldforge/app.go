package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/OCAP2/fieldforge/internal/config"
	"github.com/OCAP2/fieldforge/internal/dispatcher"
	"github.com/OCAP2/fieldforge/internal/engine"
	"github.com/OCAP2/fieldforge/internal/events"
	"github.com/OCAP2/fieldforge/internal/handlers"
	"github.com/OCAP2/fieldforge/internal/influx"
	"github.com/OCAP2/fieldforge/internal/logging"
	"github.com/OCAP2/fieldforge/internal/monitor"
	"github.com/OCAP2/fieldforge/internal/render"
	"github.com/OCAP2/fieldforge/internal/sim"
	"github.com/OCAP2/fieldforge/internal/storage"
	"github.com/OCAP2/fieldforge/internal/stream"
	"github.com/OCAP2/fieldforge/internal/worker"
	"github.com/OCAP2/fieldforge/internal/world/memory"
	"github.com/OCAP2/fieldforge/pkg/core"
	"github.com/OCAP2/fieldforge/pkg/hostbridge"
	"github.com/OCAP2/fieldforge/pkg/streaming"
)

const monitorInterval = 10 * time.Second

// fieldService is read by the log context provider; nil until newApp succeeds.
var fieldService *engine.Service

// app holds the wired services of one run.
type app struct {
	backend    storage.Backend
	world      *memory.World
	events     *events.Buffer
	publisher  *stream.Publisher
	influx     *influx.Manager
	dispatcher *dispatcher.Dispatcher
	bridge     *hostbridge.Bridge
	renderer   *render.Renderer
	admins     *handlers.AdminSet
	engine     *engine.Service
	handlers   *handlers.Service
	worker     *worker.Manager
	monitor    *monitor.Service

	workerDone chan struct{}
	closeOnce  sync.Once
}

func newApp(hostOut io.Writer) (*app, error) {
	a := &app{
		world:  memory.New(),
		events: events.NewBuffer(config.GetInt("events.bufferSize")),
	}

	if err := os.MkdirAll(DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	storageCfg := config.GetStorageConfig()
	if !filepath.IsAbs(storageCfg.Dir) {
		storageCfg.Dir = filepath.Join(DataDir, storageCfg.Dir)
	}
	backend, err := storage.NewBackend(storageCfg, ZLogger.With().Str("component", "storage").Logger())
	if err != nil {
		return nil, err
	}
	if err := backend.Init(); err != nil {
		return nil, fmt.Errorf("initializing %s storage: %w", storageCfg.Type, err)
	}
	a.backend = backend
	Logger.Info("Storage initialized", "type", storageCfg.Type, "dir", storageCfg.Dir)

	a.dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(ZLogger.With().Str("component", "dispatcher").Logger()))
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}
	a.bridge = hostbridge.New(a.dispatcher, hostOut, SlogManager.Component("hostbridge"))
	a.bridge.SetVersion(CurrentVersion)

	fx := hostbridge.Effects{Bridge: a.bridge}
	a.world.OnForce(fx.Force)
	a.renderer = render.New(config.GetRenderConfig(), fx, SlogManager.Component("render"))

	notifiers := sim.Notifiers{a.events}
	if streamCfg := config.GetStreamConfig(); streamCfg.Enabled {
		a.publisher = stream.New(stream.Config{URL: streamCfg.URL, Secret: streamCfg.Secret}, SlogManager.Component("stream"))
		host, _ := os.Hostname()
		if err := a.publisher.Connect(streaming.HelloPayload{Plugin: PluginName, Version: CurrentVersion, Server: host}); err != nil {
			Logger.Warn("Stream endpoint unavailable, will keep retrying", "url", streamCfg.URL, "error", err)
		}
		notifiers = append(notifiers, a.publisher)
	}

	fieldCfg := config.GetFieldConfig()
	var invalid []string
	a.admins, invalid = handlers.NewAdminSet(fieldCfg.Admins)
	if len(invalid) > 0 {
		Logger.Warn("Ignoring invalid admin ids", "ids", invalid)
	}

	a.engine, err = engine.New(engine.Options{
		World:        a.world,
		Renderer:     a.renderer,
		Notifier:     notifiers,
		Authorizer:   a.admins,
		Store:        backend,
		MaxPerPlayer: fieldCfg.MaxPerPlayer,
		MaxForce:     fieldCfg.MaxForce,
		Logger:       SlogManager.Component("engine"),
	})
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("creating field service: %w", err)
	}
	fieldService = a.engine

	a.handlers = handlers.NewService(handlers.Dependencies{
		Engine: a.engine,
		Events: a.events,
		Admins: a.admins,
		World:  a.world,
		Reload: a.reload,
		Logger: SlogManager.Component("handlers"),
	})
	a.handlers.Register(a.dispatcher)
	registerLifecycleHandlers(a.dispatcher, a)

	a.worker = worker.NewManager(worker.Dependencies{
		Engine: a.engine,
		Logger: SlogManager.Component("worker"),
		OnTick: a.afterTick,
	}, fieldCfg.TickInterval(), storageCfg.AutosaveInterval)

	mon := monitor.Dependencies{
		Engine:     a.engine,
		Worker:     a.worker,
		Events:     a.events,
		Logger:     SlogManager.Component("monitor"),
		StatusFile: filepath.Join(DataDir, "status.json"),
		Interval:   monitorInterval,
	}
	a.influx = influx.NewManager(config.GetInfluxConfig(), ZLogger.With().Str("component", "influx").Logger(),
		filepath.Join(DataDir, "influx_backup.lp.gz"))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	switch err := a.influx.Connect(ctx); {
	case errors.Is(err, influx.ErrDisabled):
		a.influx = nil
	case err != nil:
		Logger.Error("InfluxDB setup failed", "error", err)
		a.influx = nil
	default:
		mon.Influx = a.influx
	}
	a.monitor = monitor.NewService(mon)

	n, err := a.engine.LoadAll()
	if err != nil {
		Logger.Error("Failed to load fields", "error", err)
	} else {
		Logger.Info("Loaded fields", "count", n)
	}
	if a.publisher != nil {
		a.publisher.PublishSnapshot(a.engine.Tick(), a.engine.ListAll())
	}

	return a, nil
}

// afterTick runs on the tick goroutine after every simulation pass.
func (a *app) afterTick(stats core.TickStats) {
	a.world.Advance()
	if a.publisher != nil {
		a.publisher.PublishTick(stats)
	}
}

// reload re-reads the config file and applies limits, admins and render settings.
func (a *app) reload() error {
	if err := config.Reload(); err != nil {
		return err
	}
	fieldCfg := config.GetFieldConfig()
	a.engine.SetLimits(fieldCfg.MaxPerPlayer, fieldCfg.MaxForce)
	if invalid := a.admins.Replace(fieldCfg.Admins); len(invalid) > 0 {
		Logger.Warn("Ignoring invalid admin ids", "ids", invalid)
	}
	a.renderer.SetConfig(config.GetRenderConfig())
	Logger.Info("Configuration reloaded",
		"maxPerPlayer", fieldCfg.MaxPerPlayer, "maxForce", fieldCfg.MaxForce, "admins", len(fieldCfg.Admins))
	return nil
}

func (a *app) start(ctx context.Context) {
	a.workerDone = make(chan struct{})
	go func() {
		defer close(a.workerDone)
		a.worker.Run(ctx)
	}()

	if err := a.monitor.Start(); err != nil {
		Logger.Error("Failed to start status monitor", "error", err)
	}

	if err := a.bridge.Callback(":EXT:READY:", []string{CurrentVersion, BuildDate}); err != nil {
		Logger.Error("Failed to announce readiness", "error", err)
	}
	Logger.Info("Field service running", "tickInterval", config.GetFieldConfig().TickInterval())
}

// shutdown stops the services, saves the registry and releases resources.
// The caller must have cancelled the context passed to start.
func (a *app) shutdown() error {
	var errs []error
	a.closeOnce.Do(func() {
		a.dispatcher.Close()
		a.monitor.Stop()
		if a.workerDone != nil {
			<-a.workerDone
		}

		n, err := a.engine.SaveAll()
		if err != nil {
			errs = append(errs, fmt.Errorf("saving fields: %w", err))
		} else {
			Logger.Info("Saved fields", "count", n)
		}
		tick := a.engine.Tick()
		a.engine.Clear()

		if err := a.backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing storage: %w", err))
		}
		if a.publisher != nil {
			if err := a.publisher.Close(tick, "shutdown"); err != nil {
				Logger.Warn("Stream close failed", "error", err)
			}
		}
		if a.influx != nil {
			if err := a.influx.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing influx: %w", err))
			}
		}
		fieldService = nil
		SlogManager.WriteLog("shutdown", fmt.Sprintf("Services stopped at tick %d", tick), "INFO")
	})
	return errors.Join(errs...)
}
