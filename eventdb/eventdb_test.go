// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodial/poolbank/event"
	"github.com/custodial/poolbank/pool"
)

var (
	wallet1 = pool.BytesToAddress([]byte("w1"))
	wallet2 = pool.BytesToAddress([]byte("w2"))
)

func newDB(t *testing.T) *EventDB {
	t.Helper()
	db, err := NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSinkAndFilter(t *testing.T) {
	db := newDB(t)
	sink := db.Sink()

	sink.Deliver(event.ParticipantCreated{Wallet: wallet1, DisplayName: "Alice"})
	sink.Deliver(event.Deposited{Wallet: wallet1, Amount: 100})
	sink.Deliver(event.LedgerUpdated{Wallet: wallet1, Available: 40, Staked: 60})
	sink.Deliver(event.Deposited{Wallet: wallet2, Amount: 7})
	sink.Deliver(event.ToppedUp{Amount: 1000})

	all, err := db.Filter(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, all, 5)

	// sequence matches delivery order
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i].Seq, all[i-1].Seq)
	}
	assert.Equal(t, "participant_created", all[0].Kind)
	assert.Equal(t, "Alice", all[0].Name)
	require.NotNil(t, all[1].Amount)
	assert.Equal(t, pool.Amount(100), *all[1].Amount)
	require.NotNil(t, all[2].Available)
	assert.Equal(t, pool.Amount(40), *all[2].Available)
	assert.Equal(t, pool.Amount(60), *all[2].Staked)
	// top-ups carry no wallet
	assert.Nil(t, all[4].Wallet)

	byWallet, err := db.Filter(context.Background(), &Filter{Wallet: &wallet1})
	require.NoError(t, err)
	assert.Len(t, byWallet, 3)

	byKind, err := db.Filter(context.Background(), &Filter{Kind: "deposited"})
	require.NoError(t, err)
	require.Len(t, byKind, 2)
	assert.Equal(t, wallet1, *byKind[0].Wallet)
	assert.Equal(t, wallet2, *byKind[1].Wallet)

	desc, err := db.Filter(context.Background(), &Filter{Order: DESC, Limit: 2})
	require.NoError(t, err)
	require.Len(t, desc, 2)
	assert.Equal(t, "topped_up", desc[0].Kind)
	assert.Equal(t, "deposited", desc[1].Kind)
}

func TestTimeRangeFilter(t *testing.T) {
	db := newDB(t)
	sink := db.Sink()

	sink.Deliver(event.Deposited{Wallet: wallet1, Amount: 1})
	all, err := db.Filter(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, all, 1)

	mid := all[0].Time
	sink.Deliver(event.Deposited{Wallet: wallet1, Amount: 2})

	after, err := db.Filter(context.Background(), &Filter{From: &mid})
	require.NoError(t, err)
	assert.Len(t, after, 2)

	upTo, err := db.Filter(context.Background(), &Filter{To: &mid})
	require.NoError(t, err)
	assert.Len(t, upTo, 1)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	db, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, path, db.Path())

	db.Sink().Deliver(event.Withdrawn{To: wallet1, Amount: 3})
	require.NoError(t, db.Close())

	// reopen and read back
	db, err = New(path)
	require.NoError(t, err)
	defer db.Close()
	records, err := db.Filter(context.Background(), &Filter{Kind: "withdrawn"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Amount)
	assert.Equal(t, pool.Amount(3), *records[0].Amount)
}
