// Package memorybus diffuse les événements du run aux abonnés en mémoire
// (flux SSE de l'API de statut).
package memorybus

import (
	"sync"

	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/ports"
)

const defaultBuffer = 64

type Bus struct {
	mu     sync.Mutex
	subs   map[chan ports.Event]struct{}
	buffer int
	alive  bool
	// dropped compte les événements perdus par des abonnés trop lents.
	dropped int
}

func New() *Bus {
	return NewWithBuffer(defaultBuffer)
}

func NewWithBuffer(buffer int) *Bus {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Bus{subs: make(map[chan ports.Event]struct{}), buffer: buffer, alive: true}
}

var _ ports.EventBus = (*Bus)(nil)

// Publish ne bloque jamais: les progressions sont fréquentes et un client
// SSE lent ne doit pas freiner les téléchargements.
func (b *Bus) Publish(topic string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.alive {
		return
	}
	evt := ports.Event{Topic: topic, Payload: payload}
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.dropped++
		}
	}
}

func (b *Bus) Subscribe() (<-chan ports.Event, func()) {
	ch := make(chan ports.Event, b.buffer)
	b.mu.Lock()
	if !b.alive {
		close(ch)
		b.mu.Unlock()
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}

	return ch, cancel
}

func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Bus) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close ferme tous les abonnements; les publications suivantes sont ignorées.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.alive {
		return
	}
	b.alive = false
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
