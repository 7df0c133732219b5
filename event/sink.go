// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package event

import "sync"

// Sink receives committed events. Delivery happens inside the committing
// operation's critical section, so implementations must not block and must
// not call back into the bank or a ledger.
type Sink interface {
	Deliver(e Event)
}

// Nop discards all events.
type Nop struct{}

func (Nop) Deliver(Event) {}

// MemorySink captures events in delivery order. Useful for audit trails in
// tests and the solo-style in-process setup.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func (s *MemorySink) Deliver(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

// Events returns a copy of all captured events.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Fanout delivers each event to every attached sink, in attach order.
type Fanout []Sink

func (f Fanout) Deliver(e Event) {
	for _, s := range f {
		s.Deliver(e)
	}
}
