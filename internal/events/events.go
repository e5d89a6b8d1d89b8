// Package events buffers enter/exit notifications until the host drains them.
package events

import (
	"github.com/OCAP2/fieldforge/internal/queue"
	"github.com/OCAP2/fieldforge/pkg/core"
)

// DefaultBufferSize is used when the configured size is not positive.
const DefaultBufferSize = 1024

// Buffer implements sim.Notifier. When full it discards the oldest events.
type Buffer struct {
	q *queue.Queue[core.FieldEvent]
}

func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Buffer{q: queue.NewBounded[core.FieldEvent](size)}
}

func (b *Buffer) Notify(ev core.FieldEvent) {
	b.q.Push(ev)
}

// Drain removes up to max events in emission order; max <= 0 drains everything.
func (b *Buffer) Drain(max int) []core.FieldEvent {
	if max <= 0 {
		return b.q.GetAndEmpty()
	}
	return b.q.Take(max)
}

func (b *Buffer) Len() int { return b.q.Len() }

// Dropped returns how many events were discarded because nobody drained them.
func (b *Buffer) Dropped() uint64 { return b.q.Dropped() }
