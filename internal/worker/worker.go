package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/fieldforge/pkg/core"
)

// Engine is the part of the field service the workers drive.
type Engine interface {
	RunOneTick() core.TickStats
	SaveAll() (int, error)
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Engine Engine
	Logger *slog.Logger
	// OnTick runs after every tick on the tick goroutine.
	OnTick func(core.TickStats)
}

// Manager runs the fixed-cadence tick loop and the autosave loop.
type Manager struct {
	deps     Dependencies
	interval time.Duration
	autosave time.Duration

	lastTick atomic.Int64
	overruns atomic.Uint64
	saves    atomic.Uint64
}

// NewManager creates a new worker manager. A zero autosave interval disables autosave.
func NewManager(deps Dependencies, tickInterval, autosaveInterval time.Duration) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if tickInterval <= 0 {
		tickInterval = 50 * time.Millisecond
	}
	return &Manager{deps: deps, interval: tickInterval, autosave: autosaveInterval}
}

// Run blocks until ctx is cancelled. Ticks run on a single goroutine, so a
// slow tick delays the next one instead of overlapping it.
func (m *Manager) Run(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		m.tickLoop(ctx)
	}()

	if m.autosave > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.autosaveLoop(ctx)
		}()
	}

	wg.Wait()
}

func (m *Manager) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick()
		}
	}
}

// Tick runs one simulation pass and the OnTick hook.
func (m *Manager) Tick() core.TickStats {
	start := time.Now()
	stats := m.deps.Engine.RunOneTick()
	if m.deps.OnTick != nil {
		m.deps.OnTick(stats)
	}

	elapsed := time.Since(start)
	m.lastTick.Store(int64(elapsed))
	if elapsed > m.interval {
		n := m.overruns.Add(1)
		if n == 1 || n%100 == 0 {
			m.deps.Logger.Warn("tick exceeded interval", "tick", stats.Tick,
				"duration", elapsed, "interval", m.interval, "overruns", n)
		}
	}
	return stats
}

func (m *Manager) autosaveLoop(ctx context.Context) {
	ticker := time.NewTicker(m.autosave)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Save()
		}
	}
}

// Save writes a snapshot and logs the outcome.
func (m *Manager) Save() {
	start := time.Now()
	n, err := m.deps.Engine.SaveAll()
	if err != nil {
		m.deps.Logger.Error("autosave failed", "error", err)
		return
	}
	m.saves.Add(1)
	m.deps.Logger.Debug("autosave complete", "fields", n, "duration", time.Since(start))
}

// LastTickDuration returns the wall time of the most recent tick.
func (m *Manager) LastTickDuration() time.Duration {
	return time.Duration(m.lastTick.Load())
}

// Overruns returns how many ticks took longer than the interval.
func (m *Manager) Overruns() uint64 { return m.overruns.Load() }

// Saves returns the number of successful autosaves.
func (m *Manager) Saves() uint64 { return m.saves.Load() }
