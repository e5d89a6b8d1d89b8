package main

import (
	"context"
	"time"

	"github.com/OCAP2/fieldforge/internal/dispatcher"
)

func registerLifecycleHandlers(d *dispatcher.Dispatcher, a *app) {
	d.Register(":GETDIR:DATA:", func(e dispatcher.Event) (any, error) {
		return DataDir, nil
	})

	d.Register(":GETDIR:LOG:", func(e dispatcher.Event) (any, error) {
		return LogFilePath, nil
	})

	d.Register(":COMMANDS:", func(e dispatcher.Event) (any, error) {
		return d.Commands(), nil
	})

	// Flush telemetry and in-flight log records without saving fields.
	d.Register(":FLUSH:", func(e dispatcher.Event) (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if OTelProvider != nil {
			if err := OTelProvider.Flush(ctx); err != nil {
				Logger.Warn("Failed to flush OTel data", "error", err)
				return nil, err
			}
		}
		if a.monitor != nil {
			a.monitor.Record()
		}
		return "ok", nil
	})
}
