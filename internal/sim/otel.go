package sim

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/fieldforge/internal/sim"

type metrics struct {
	ticks    metric.Int64Counter
	skipped  metric.Int64Counter
	applied  metric.Int64Counter
	enters   metric.Int64Counter
	exits    metric.Int64Counter
	duration metric.Float64Histogram
}

// newMetrics uses the global OTel meter (no-op if not configured).
func newMetrics() (*metrics, error) {
	m := otel.Meter(instrumentationName)
	var (
		x   metrics
		err error
	)
	if x.ticks, err = m.Int64Counter("fieldforge.tick.count",
		metric.WithDescription("Simulation ticks executed")); err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}
	if x.skipped, err = m.Int64Counter("fieldforge.tick.fields_skipped",
		metric.WithDescription("Fields skipped because their region was not loaded")); err != nil {
		return nil, fmt.Errorf("creating skipped counter: %w", err)
	}
	if x.applied, err = m.Int64Counter("fieldforge.tick.forces_applied",
		metric.WithDescription("Aggregated forces handed to the host")); err != nil {
		return nil, fmt.Errorf("creating applied counter: %w", err)
	}
	if x.enters, err = m.Int64Counter("fieldforge.field.enter",
		metric.WithDescription("Entity entered a field")); err != nil {
		return nil, fmt.Errorf("creating enter counter: %w", err)
	}
	if x.exits, err = m.Int64Counter("fieldforge.field.exit",
		metric.WithDescription("Entity left a field")); err != nil {
		return nil, fmt.Errorf("creating exit counter: %w", err)
	}
	if x.duration, err = m.Float64Histogram("fieldforge.tick.duration_ms",
		metric.WithDescription("Wall time of one simulation tick"),
		metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}
	return &x, nil
}
