// Package hostbridge connects the host process to the dispatcher over a
// line-oriented pipe. Each input line is "COMMAND|arg1|arg2..." and produces
// exactly one response line. Unsolicited messages (render effects, force
// updates) are written as callback lines.
package hostbridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/OCAP2/fieldforge/internal/dispatcher"
)

// Built-in commands answered without the dispatcher.
const (
	CmdTimestamp = ":TIMESTAMP:"
	CmdVersion   = ":VERSION:"
)

// maxLine bounds a single command line.
const maxLine = 1 << 20

// Bridge is safe for concurrent use; responses and callbacks never interleave
// within a line.
type Bridge struct {
	dispatcher *dispatcher.Dispatcher
	version    string
	log        *slog.Logger

	mu  sync.Mutex
	out *bufio.Writer
}

// New creates a bridge writing to w.
func New(d *dispatcher.Dispatcher, w io.Writer, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}
	return &Bridge{
		dispatcher: d,
		version:    "No version set",
		log:        log,
		out:        bufio.NewWriter(w),
	}
}

// SetVersion sets the value returned for :VERSION:.
func (b *Bridge) SetVersion(version string) {
	b.version = version
}

// Call handles one command line and returns the response.
func (b *Bridge) Call(line string) string {
	line = strings.TrimRight(line, "\r\n")
	parts := strings.Split(line, "|")
	command := parts[0]

	switch command {
	case CmdTimestamp:
		return formatDispatchResponse(command, getTimestamp(), nil)
	case CmdVersion:
		return formatDispatchResponse(command, b.version, nil)
	}

	if b.dispatcher == nil || !b.dispatcher.HasHandler(command) {
		return fmt.Sprintf(`["error", %s, "no handler registered"]`, quote(command))
	}

	result, err := b.dispatcher.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      parts[1:],
		Timestamp: time.Now(),
	})
	return formatDispatchResponse(command, result, err)
}

// Serve reads commands from r until EOF or ctx is cancelled.
func (b *Bridge) Serve(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	for sc.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := b.writeLine(b.Call(line)); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading commands: %w", err)
	}
	return nil
}

// Callback writes ["callback", name, data] with data encoded as JSON.
func (b *Bridge) Callback(name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding callback %s: %w", name, err)
	}
	return b.writeLine(fmt.Sprintf(`["callback", %s, %s]`, quote(name), payload))
}

func (b *Bridge) writeLine(s string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.out.WriteString(s); err != nil {
		return err
	}
	if err := b.out.WriteByte('\n'); err != nil {
		return err
	}
	return b.out.Flush()
}

// formatDispatchResponse formats the dispatcher result for the host.
// Strings are passed through unescaped; other values are JSON encoded.
func formatDispatchResponse(command string, result any, err error) string {
	if err != nil {
		return fmt.Sprintf(`["error", "%s"]`, err.Error())
	}
	if result == nil {
		return `["ok"]`
	}
	if s, ok := result.(string); ok {
		return fmt.Sprintf(`["ok", "%s"]`, s)
	}
	data, jerr := json.Marshal(result)
	if jerr != nil {
		return fmt.Sprintf(`["error", "%s: %s"]`, command, jerr.Error())
	}
	return fmt.Sprintf(`["ok", %s]`, data)
}

func quote(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

func getTimestamp() string {
	return strconv.FormatInt(time.Now().UTC().UnixNano(), 10)
}
