// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodial/poolbank/pool"
)

func TestStream(t *testing.T) {
	s := NewStream()
	ch, cancel := s.Subscribe(4)
	defer cancel()

	wallet := pool.BytesToAddress([]byte("w"))
	s.Deliver(Deposited{Wallet: wallet, Amount: 5})

	e := <-ch
	dep, ok := e.(Deposited)
	require.True(t, ok)
	assert.Equal(t, pool.Amount(5), dep.Amount)
}

func TestStreamSlowSubscriberDropped(t *testing.T) {
	s := NewStream()
	ch, cancel := s.Subscribe(1)
	defer cancel()

	s.Deliver(ToppedUp{Amount: 1})
	s.Deliver(ToppedUp{Amount: 2}) // dropped, buffer full

	assert.Len(t, ch, 1)
	e := <-ch
	assert.Equal(t, pool.Amount(1), e.(ToppedUp).Amount)
}

func TestStreamCancel(t *testing.T) {
	s := NewStream()
	ch, cancel := s.Subscribe(1)

	cancel()
	cancel() // idempotent

	_, open := <-ch
	assert.False(t, open)

	// delivery after cancel must not panic or block
	s.Deliver(ToppedUp{Amount: 3})
}

func TestFanout(t *testing.T) {
	a, b := &MemorySink{}, &MemorySink{}
	sink := Fanout{a, b}
	sink.Deliver(ToppedUp{Amount: 9})

	require.Len(t, a.Events(), 1)
	require.Len(t, b.Events(), 1)
	assert.Equal(t, "topped_up", a.Events()[0].Name())
}
