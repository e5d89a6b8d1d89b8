// Package stream publishes field events and tick summaries to a remote
// WebSocket endpoint.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/OCAP2/fieldforge/pkg/core"
	"github.com/OCAP2/fieldforge/pkg/streaming"
)

// Config holds the WebSocket endpoint settings.
type Config struct {
	URL    string
	Secret string
}

// Publisher is a fire-and-forget event sink. Notify and PublishTick never
// block the simulation; messages are dropped when the send queue is full.
type Publisher struct {
	conn *connection
	cfg  Config
	log  *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn: newConnection(logger),
		cfg:  cfg,
		log:  logger,
	}
}

// Connect dials the endpoint and waits for the server to ack hello.
func (p *Publisher) Connect(hello streaming.HelloPayload) error {
	data, err := marshalEnvelope(streaming.TypeHello, hello)
	if err != nil {
		return err
	}
	if err := p.conn.dial(p.cfg.URL, p.cfg.Secret); err != nil {
		return err
	}

	p.conn.mu.Lock()
	p.conn.hello = data
	p.conn.mu.Unlock()

	return p.conn.sendAndWait(data, streaming.TypeHello, ackTimeout)
}

// Close sends goodbye, waits briefly for its ack and disconnects.
func (p *Publisher) Close(tick uint64, reason string) error {
	if data, err := marshalEnvelope(streaming.TypeGoodbye, streaming.GoodbyePayload{Tick: tick, Reason: reason}); err == nil {
		if err := p.conn.sendAndWait(data, streaming.TypeGoodbye, ackTimeout); err != nil {
			p.log.Warn("goodbye not acknowledged", "error", err)
		}
	}
	return p.conn.close()
}

// Notify implements sim.Notifier.
func (p *Publisher) Notify(ev core.FieldEvent) {
	msgType := streaming.TypeFieldEnter
	if ev.Type == core.EventExit {
		msgType = streaming.TypeFieldExit
	}
	p.publish(msgType, ev)
}

// PublishTick sends a tick summary.
func (p *Publisher) PublishTick(stats core.TickStats) {
	p.publish(streaming.TypeTick, stats)
}

// PublishSnapshot sends the full field list.
func (p *Publisher) PublishSnapshot(tick uint64, fields []core.Field) {
	p.publish(streaming.TypeSnapshot, streaming.SnapshotPayload{Tick: tick, Fields: fields})
}

// Dropped returns how many messages were discarded on a full queue.
func (p *Publisher) Dropped() uint64 {
	return p.conn.droppedCount()
}

func (p *Publisher) publish(msgType string, payload any) {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		p.log.Error("stream marshal failed", "type", msgType, "error", err)
		return
	}
	p.conn.send(data)
}

func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}
