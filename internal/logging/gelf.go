package logging

import (
	"fmt"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGELFHandler returns a JSON slog handler that ships records to a
// Graylog input over UDP.
func NewGELFHandler(address, level string) (slog.Handler, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, fmt.Errorf("connecting to graylog at %s: %w", address, err)
	}
	w.Facility = "fieldforge"
	return slog.NewJSONHandler(w, handlerOptions(parseLevel(level))), nil
}
