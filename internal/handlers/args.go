package handlers

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/OCAP2/fieldforge/internal/util"
)

// TicksPerSecond converts second-based durations to ticks.
const TicksPerSecond = 20

var errUsage = errors.New("usage")

func usage(format string) error {
	return fmt.Errorf("%w: %s", errUsage, format)
}

// clean strips host quoting from every argument in place.
func clean(args []string) []string {
	for i, v := range args {
		args[i] = util.CleanArg(v)
	}
	return args
}

// parseRequester reads a player UUID. Empty or "none" is the system.
func parseRequester(s string) (uuid.UUID, error) {
	if s == "" || strings.EqualFold(s, "none") {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid requester %q: %w", s, err)
	}
	return id, nil
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("index must be a number: %q", s)
	}
	return i, nil
}

func parseNumber(name, s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid %s: %q", name, s)
	}
	return f, nil
}

// ParseDuration converts "<n>s" (seconds), "<n>t" (ticks) or a bare number
// of seconds into ticks.
func ParseDuration(s string) (uint64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	mult := uint64(TicksPerSecond)
	switch {
	case strings.HasSuffix(s, "t"):
		s, mult = strings.TrimSuffix(s, "t"), 1
	case strings.HasSuffix(s, "s"):
		s = strings.TrimSuffix(s, "s")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration format: %q", s)
	}
	if n > math.MaxUint64/mult {
		return 0, fmt.Errorf("duration out of range: %q", s)
	}
	return n * mult, nil
}
