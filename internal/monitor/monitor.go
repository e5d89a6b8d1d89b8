package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/OCAP2/fieldforge/internal/engine"
)

const measurement = "field_status"

// StatusSource supplies engine snapshots.
type StatusSource interface {
	Status() engine.Status
}

// TickTimer reports how long the last tick took.
type TickTimer interface {
	LastTickDuration() time.Duration
	Overruns() uint64
}

// PointWriter accepts metric points.
type PointWriter interface {
	WritePoint(point *influxdb2_write.Point) error
}

// EventBacklog reports pending and dropped notifications.
type EventBacklog interface {
	Len() int
	Dropped() uint64
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Engine StatusSource
	Worker TickTimer
	Influx PointWriter // optional
	Events EventBacklog // optional
	Logger *slog.Logger
	// StatusFile is rewritten with the latest report; empty disables it.
	StatusFile string
	Interval   time.Duration
}

// Report is one monitoring sample.
type Report struct {
	Time          time.Time     `json:"time"`
	Status        engine.Status `json:"status"`
	LastTickMs    float64       `json:"lastTickMs"`
	TickOverruns  uint64        `json:"tickOverruns"`
	EventsDropped uint64        `json:"eventsDropped,omitempty"`
	PendingEvents int           `json:"pendingEvents,omitempty"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = 10 * time.Second
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Sample collects the current report.
func (s *Service) Sample() Report {
	r := Report{
		Time:   time.Now(),
		Status: s.deps.Engine.Status(),
	}
	if s.deps.Worker != nil {
		r.LastTickMs = float64(s.deps.Worker.LastTickDuration().Microseconds()) / 1000
		r.TickOverruns = s.deps.Worker.Overruns()
	}
	if s.deps.Events != nil {
		r.PendingEvents = s.deps.Events.Len()
		r.EventsDropped = s.deps.Events.Dropped()
	}
	return r
}

// Point converts a report to an InfluxDB point.
func (r Report) Point() *influxdb2_write.Point {
	return influxdb2_write.NewPoint(measurement,
		nil,
		map[string]any{
			"tick":              int64(r.Status.Tick),
			"fields":            r.Status.Fields,
			"fields_active":     r.Status.Active,
			"owners":            r.Status.Owners,
			"members":           r.Status.Members,
			"entities_affected": r.Status.LastTick.EntitiesAffected,
			"fields_failed":     r.Status.LastTick.FieldsFailed,
			"last_tick_ms":      r.LastTickMs,
			"tick_overruns":     int64(r.TickOverruns),
			"events_pending":    r.PendingEvents,
			"events_dropped":    int64(r.EventsDropped),
		},
		r.Time)
}

// Record takes one sample and publishes it to every configured sink.
func (s *Service) Record() Report {
	r := s.Sample()

	s.deps.Logger.Debug("field status",
		"tick", r.Status.Tick,
		"fields", r.Status.Fields,
		"active", r.Status.Active,
		"owners", r.Status.Owners,
		"lastTickMs", r.LastTickMs,
		"affected", r.Status.LastTick.EntitiesAffected)

	if s.deps.Influx != nil {
		if err := s.deps.Influx.WritePoint(r.Point()); err != nil {
			s.deps.Logger.Error("Error writing status point", "error", err)
		}
	}

	if s.deps.StatusFile != "" {
		if err := writeStatusFile(s.deps.StatusFile, r); err != nil {
			s.deps.Logger.Error("Error writing status file", "error", err)
		}
	}
	return r
}

func writeStatusFile(path string, r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding status: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.deps.Logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Record()
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
