// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriber

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodial/poolbank/errs"
	"github.com/custodial/poolbank/event"
	"github.com/custodial/poolbank/pool"
)

var (
	bankAddr   = pool.BytesToAddress([]byte("bank"))
	walletAddr = pool.BytesToAddress([]byte("wallet"))
	otherAddr  = pool.BytesToAddress([]byte("other"))
)

// relayBank relays requests straight back into the ledger the way the real
// bank does, after recording them.
type relayBank struct {
	ledger   *Ledger
	stakes   []pool.Amount
	unstakes []pool.Amount
}

func (b *relayBank) Address() pool.Address { return bankAddr }

func (b *relayBank) RelayStake(requester, wallet pool.Address, amount pool.Amount) error {
	if requester != b.ledger.Handle() {
		return errs.New(errs.Unauthorized, "bad requester")
	}
	b.stakes = append(b.stakes, amount)
	return b.ledger.ApplyStake(bankAddr, amount)
}

func (b *relayBank) RelayUnstake(requester, wallet pool.Address, amount pool.Amount) error {
	if requester != b.ledger.Handle() {
		return errs.New(errs.Unauthorized, "bad requester")
	}
	b.unstakes = append(b.unstakes, amount)
	return b.ledger.ApplyUnstake(bankAddr, amount)
}

func newLedger(t *testing.T, sink event.Sink) (*Ledger, *relayBank) {
	t.Helper()
	b := &relayBank{}
	l := New(b, walletAddr, sink, nil)
	b.ledger = l
	return l, b
}

func TestNewLedger(t *testing.T) {
	l, _ := newLedger(t, nil)

	assert.Equal(t, walletAddr, l.Wallet())
	assert.Equal(t, pool.DeriveHandle(walletAddr), l.Handle())

	snap := l.Snapshot()
	assert.Equal(t, pool.Amount(0), snap.Available)
	assert.Equal(t, pool.Amount(0), snap.Staked)
	assert.False(t, snap.CreatedAt.IsZero())
	assert.Equal(t, snap.CreatedAt, snap.LastUpdate)
	assert.True(t, snap.DeactivatedAt.IsZero())
}

func TestApplyDeposit(t *testing.T) {
	l, _ := newLedger(t, nil)

	require.NoError(t, l.ApplyDeposit(bankAddr, 100))
	snap := l.Snapshot()
	assert.Equal(t, pool.Amount(100), snap.Available)
	assert.Equal(t, pool.Amount(100), snap.TotalDeposited)

	// only the bound bank may credit
	err := l.ApplyDeposit(otherAddr, 1)
	assert.True(t, errs.Is(err, errs.Unauthorized))

	// overflow must fail without partial mutation
	err = l.ApplyDeposit(bankAddr, math.MaxUint64)
	assert.True(t, errs.Is(err, errs.Overflow))
	assert.Equal(t, pool.Amount(100), l.Snapshot().Available)
	assert.Equal(t, pool.Amount(100), l.Snapshot().TotalDeposited)
}

func TestApplyStakeUnstake(t *testing.T) {
	l, _ := newLedger(t, nil)
	require.NoError(t, l.ApplyDeposit(bankAddr, 100))

	require.NoError(t, l.ApplyStake(bankAddr, 60))
	snap := l.Snapshot()
	assert.Equal(t, pool.Amount(40), snap.Available)
	assert.Equal(t, pool.Amount(60), snap.Staked)
	assert.Equal(t, pool.Amount(60), snap.TotalStaked)

	err := l.ApplyStake(bankAddr, 41)
	assert.True(t, errs.Is(err, errs.InsufficientBalance))

	err = l.ApplyUnstake(bankAddr, 61)
	assert.True(t, errs.Is(err, errs.InsufficientBalance))

	// round trip restores the pair, while the lifetime counter sticks
	require.NoError(t, l.ApplyUnstake(bankAddr, 60))
	snap = l.Snapshot()
	assert.Equal(t, pool.Amount(100), snap.Available)
	assert.Equal(t, pool.Amount(0), snap.Staked)
	assert.Equal(t, pool.Amount(60), snap.TotalStaked)

	assert.True(t, errs.Is(l.ApplyStake(otherAddr, 1), errs.Unauthorized))
	assert.True(t, errs.Is(l.ApplyUnstake(otherAddr, 1), errs.Unauthorized))
}

func TestStakeSumPreserved(t *testing.T) {
	l, _ := newLedger(t, nil)
	require.NoError(t, l.ApplyDeposit(bankAddr, 1000))

	steps := []struct {
		unstake bool
		amount  pool.Amount
	}{
		{false, 1},
		{false, 499},
		{true, 300},
		{false, 800},
		{true, 1000},
	}
	for _, step := range steps {
		if step.unstake {
			require.NoError(t, l.ApplyUnstake(bankAddr, step.amount))
		} else {
			require.NoError(t, l.ApplyStake(bankAddr, step.amount))
		}
		snap := l.Snapshot()
		assert.Equal(t, pool.Amount(1000), snap.Available+snap.Staked)
	}
}

func TestRequestStake(t *testing.T) {
	sink := &event.MemorySink{}
	l, b := newLedger(t, sink)
	require.NoError(t, l.ApplyDeposit(bankAddr, 100))

	// only the bound wallet may request
	err := l.RequestStake(otherAddr, 10)
	assert.True(t, errs.Is(err, errs.Unauthorized))
	assert.Empty(t, b.stakes)

	err = l.RequestStake(walletAddr, 0)
	assert.True(t, errs.Is(err, errs.InvalidArgument))

	require.NoError(t, l.RequestStake(walletAddr, 60))
	assert.Equal(t, []pool.Amount{60}, b.stakes)
	assert.Equal(t, pool.Amount(40), l.Snapshot().Available)

	require.NoError(t, l.RequestUnstake(walletAddr, 25))
	assert.Equal(t, []pool.Amount{25}, b.unstakes)
	assert.Equal(t, pool.Amount(65), l.Snapshot().Available)

	var names []string
	for _, e := range sink.Events() {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{
		"ledger_updated",
		"stake_requested", "ledger_updated",
		"unstake_requested", "ledger_updated",
	}, names)
}

func TestMarkDeactivated(t *testing.T) {
	now := time.Now()
	b := &relayBank{}
	l := New(b, walletAddr, nil, func() time.Time { return now })
	b.ledger = l

	assert.True(t, errs.Is(l.MarkDeactivated(otherAddr), errs.Unauthorized))
	require.NoError(t, l.MarkDeactivated(bankAddr))
	assert.Equal(t, now, l.Snapshot().DeactivatedAt)
}

func TestSnapshotIsCopy(t *testing.T) {
	l, _ := newLedger(t, nil)
	require.NoError(t, l.ApplyDeposit(bankAddr, 10))

	snap := l.Snapshot()
	snap.Available = 0
	assert.Equal(t, pool.Amount(10), l.Snapshot().Available)
}
