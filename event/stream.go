// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package event

import "sync"

// Stream fans committed events out to channel subscribers. A slow
// subscriber never blocks delivery; events beyond its buffer are dropped
// for that subscriber only.
type Stream struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewStream creates an empty stream.
func NewStream() *Stream {
	return &Stream{subs: make(map[chan Event]struct{})}
}

// Deliver implements Sink.
func (s *Stream) Deliver(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a buffered channel receiving future events. The
// returned cancel func removes the subscription and closes the channel.
func (s *Stream) Subscribe(buf int) (<-chan Event, func()) {
	ch := make(chan Event, buf)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
