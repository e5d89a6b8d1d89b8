package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/OCAP2/fieldforge/internal/config"
	"github.com/OCAP2/fieldforge/internal/logging"
	intOtel "github.com/OCAP2/fieldforge/internal/otel"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.1.0"
	BuildDate      string = "unknown"

	PluginName string = "fieldforge"
)

// file paths
var (
	// DataDir holds the config file, the field store and status output.
	DataDir string

	LogFilePath string
	LogFile     *os.File
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// ZLogger feeds the dispatcher, storage and influx layers
	ZLogger zerolog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()
)

func main() {
	args := os.Args[1:]
	mode := "serve"
	if len(args) > 0 {
		mode = strings.ToLower(args[0])
		args = args[1:]
	}

	DataDir = "."
	if len(args) > 0 {
		DataDir = args[0]
	}

	if err := setupLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "logging setup failed: %v\n", err)
		os.Exit(1)
	}
	defer shutdownLogging()

	var err error
	switch mode {
	case "serve":
		err = serve()
	case "demo":
		err = demo(os.Stdout)
	case "version":
		fmt.Println(CurrentVersion, BuildDate)
	default:
		err = fmt.Errorf("unknown mode %q (expected serve, demo or version)", mode)
	}
	if err != nil {
		Logger.Error("Exiting with error", "error", err)
		fmt.Fprintln(os.Stderr, err)
		shutdownLogging()
		os.Exit(1)
	}
}

// serve runs the plugin against the host connected to stdin and stdout.
func serve() error {
	Logger.Info("Starting up...", "version", CurrentVersion, "dataDir", DataDir)

	app, err := newApp(os.Stdout)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.start(ctx)

	go func() {
		if err := app.bridge.Serve(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
			Logger.Error("Host bridge stopped", "error", err)
		}
		Logger.Info("Host input closed")
		stop()
	}()

	<-ctx.Done()
	Logger.Info("Shutting down...")
	return app.shutdown()
}

func setupLogging() error {
	SlogManager = logging.NewSlogManager()
	// stdout belongs to the host bridge
	SlogManager.Setup(os.Stderr, "info", nil)
	Logger = SlogManager.Logger()

	if err := config.Load(DataDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "file", viper.ConfigFileUsed())
	}

	logsDir := viper.GetString("logsDir")
	if !filepath.IsAbs(logsDir) {
		logsDir = filepath.Join(DataDir, logsDir)
	}
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	LogFilePath = logging.LogFilePath(logsDir, PluginName, SessionStartTime)
	if _, err := os.Stat(LogFilePath); err == nil {
		_ = os.Rename(LogFilePath, LogFilePath+".old")
	}

	var out io.Writer = os.Stderr
	var err error
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
	} else {
		out = LogFile
	}

	level := viper.GetString("logLevel")

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    out,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		} else if otelCfg.Endpoint != "" {
			Logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
		}
	}

	var extra []slog.Handler
	if gl := config.GetGraylogConfig(); gl.Enabled {
		h, err := logging.NewGELFHandler(gl.Address, level)
		if err != nil {
			Logger.Error("Failed to set up Graylog sink", "error", err)
		} else {
			extra = append(extra, h)
		}
	}

	SlogManager.SetContextProvider(logging.TickContext(
		func() uint64 {
			if fieldService != nil {
				return fieldService.Tick()
			}
			return 0
		},
		func() int {
			if fieldService != nil {
				return fieldService.FieldCount()
			}
			return 0
		},
	))

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	SlogManager.Setup(out, level, otelLogProvider, extra...)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", LogFilePath)

	zl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		zl = zerolog.InfoLevel
	}
	ZLogger = zerolog.New(out).Level(zl).With().Timestamp().Str("plugin", PluginName).Logger()
	return nil
}

func shutdownLogging() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if SlogManager != nil {
		_ = SlogManager.Flush(ctx)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "otel shutdown: %v\n", err)
		}
		OTelProvider = nil
	}
	if LogFile != nil {
		_ = LogFile.Close()
		LogFile = nil
	}
}
