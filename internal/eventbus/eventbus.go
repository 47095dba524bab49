// Package eventbus is the scaffolding the coordinator publishes
// lifecycle events to — flush and recovery progress an external
// collaborator (metrics, tracing) might subscribe to. The core engine
// never reads them back.
package eventbus

import (
	"github.com/google/uuid"
)

// Kind names an event's type.
type Kind string

const (
	PutApplied     Kind = "put_applied"
	DeleteApplied  Kind = "delete_applied"
	FlushStarted   Kind = "flush_started"
	FlushCompleted Kind = "flush_completed"
	Recovered      Kind = "recovered"
)

// Event is a single published occurrence, tagged with a correlation
// ID so a subscriber can line up FlushStarted with its FlushCompleted.
type Event struct {
	Kind          Kind
	CorrelationID string
	Key           string
	Sequence      uint64
	SSTableID     string
	Count         int
}

// Handler receives published events. It must not block or panic;
// the bus does not recover from a handler failure.
type Handler func(Event)

type subscription struct {
	kind    Kind
	handler Handler
}

// Bus is an in-process, synchronous publish/subscribe point.
// Subscribing and publishing are not safe for concurrent use from
// multiple goroutines, matching the coordinator's single-writer model.
type Bus struct {
	subs []subscription
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers h to receive every future Publish call whose
// event matches kind. The zero Kind ("") subscribes to every kind.
func (b *Bus) Subscribe(kind Kind, h Handler) {
	b.subs = append(b.subs, subscription{kind: kind, handler: h})
}

// Publish fans e out to every subscribed handler whose kind matches
// (or who subscribed to the zero Kind), in subscription order.
func (b *Bus) Publish(e Event) {
	for _, s := range b.subs {
		if s.kind == "" || s.kind == e.Kind {
			s.handler(e)
		}
	}
}

// NewCorrelationID mints a fresh correlation id for linking the start
// and completion of one logical operation (a flush).
func NewCorrelationID() string {
	return uuid.NewString()
}
