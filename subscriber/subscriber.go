// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package subscriber implements the per-participant sub-ledger. A ledger is
// the sole owner of its balance fields: the bank mutates them only through
// the ledger's Apply entry points, and the wallet reaches them only through
// the bank via the Request relays.
package subscriber

import (
	"sync"
	"time"

	"github.com/custodial/poolbank/auth"
	"github.com/custodial/poolbank/errs"
	"github.com/custodial/poolbank/event"
	"github.com/custodial/poolbank/pool"
)

// Bank is the capability a ledger holds on its allocator. The ledger never
// mutates pool-level state directly; stake and unstake requests go through
// the bank, which calls back into the ledger's Apply entry points.
type Bank interface {
	Address() pool.Address
	RelayStake(requester, wallet pool.Address, amount pool.Amount) error
	RelayUnstake(requester, wallet pool.Address, amount pool.Amount) error
}

// Snapshot is a point-in-time copy of a ledger's balance record.
type Snapshot struct {
	Wallet         pool.Address `json:"wallet"`
	Handle         pool.Address `json:"handle"`
	Available      pool.Amount  `json:"available"`
	Staked         pool.Amount  `json:"staked"`
	TotalDeposited pool.Amount  `json:"totalDeposited"`
	TotalStaked    pool.Amount  `json:"totalStaked"`
	CreatedAt      time.Time    `json:"createdAt"`
	LastUpdate     time.Time    `json:"lastUpdate"`
	// DeactivatedAt is zero until the first deactivation. Reactivation
	// deliberately leaves it set, preserving "ever deactivated" history.
	DeactivatedAt time.Time `json:"deactivatedAt,omitzero"`
}

// Ledger is a participant's balance record. It recognizes exactly one bank
// as its trusted caller and exactly one wallet as its trusted requester;
// both bindings are set at creation and immutable.
type Ledger struct {
	bank     Bank
	bankAddr pool.Address
	wallet   pool.Address
	handle   pool.Address
	sink     event.Sink
	now      func() time.Time

	mu             sync.Mutex
	available      pool.Amount
	staked         pool.Amount
	totalDeposited pool.Amount
	totalStaked    pool.Amount
	createdAt      time.Time
	lastUpdate     time.Time
	deactivatedAt  time.Time
}

// New creates a ledger bound to (bank, wallet). Only the bank package
// constructs ledgers; a ledger is not independently creatable in the
// protocol sense, since registration is what binds it to the pool.
func New(bank Bank, wallet pool.Address, sink event.Sink, now func() time.Time) *Ledger {
	if sink == nil {
		sink = event.Nop{}
	}
	if now == nil {
		now = time.Now
	}
	created := now()
	return &Ledger{
		bank:       bank,
		bankAddr:   bank.Address(),
		wallet:     wallet,
		handle:     pool.DeriveHandle(wallet),
		sink:       sink,
		now:        now,
		createdAt:  created,
		lastUpdate: created,
	}
}

// Wallet returns the bound wallet identity.
func (l *Ledger) Wallet() pool.Address {
	return l.wallet
}

// Handle returns the ledger's own principal identity, used as the
// requester identity on relayed stake/unstake calls.
func (l *Ledger) Handle() pool.Address {
	return l.handle
}

// RequestStake asks the bank to move amount from available to staked.
// Only the bound wallet may call it.
func (l *Ledger) RequestStake(caller pool.Address, amount pool.Amount) error {
	if err := auth.RequireWalletOwner(caller, l.wallet); err != nil {
		return err
	}
	if amount == 0 {
		return errs.New(errs.InvalidArgument, "stake amount must be positive")
	}
	l.sink.Deliver(event.StakeRequested{Wallet: l.wallet, Amount: amount})
	return l.bank.RelayStake(l.handle, l.wallet, amount)
}

// RequestUnstake asks the bank to move amount from staked back to
// available. Only the bound wallet may call it.
func (l *Ledger) RequestUnstake(caller pool.Address, amount pool.Amount) error {
	if err := auth.RequireWalletOwner(caller, l.wallet); err != nil {
		return err
	}
	if amount == 0 {
		return errs.New(errs.InvalidArgument, "unstake amount must be positive")
	}
	l.sink.Deliver(event.UnstakeRequested{Wallet: l.wallet, Amount: amount})
	return l.bank.RelayUnstake(l.handle, l.wallet, amount)
}

// ApplyDeposit credits available and the lifetime deposit counter.
// Bank-only.
func (l *Ledger) ApplyDeposit(caller pool.Address, amount pool.Amount) error {
	if err := auth.RequireBankCaller(caller, l.bankAddr); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	available, ok := l.available.CheckedAdd(amount)
	if !ok {
		return errs.New(errs.Overflow, "available balance overflow for %v", l.wallet)
	}
	totalDeposited, ok := l.totalDeposited.CheckedAdd(amount)
	if !ok {
		return errs.New(errs.Overflow, "lifetime deposit counter overflow for %v", l.wallet)
	}
	l.available = available
	l.totalDeposited = totalDeposited
	l.lastUpdate = l.now()
	l.sink.Deliver(event.LedgerUpdated{Wallet: l.wallet, Available: l.available, Staked: l.staked})
	return nil
}

// ApplyStake moves amount from available to staked and bumps the lifetime
// stake counter. Bank-only.
func (l *Ledger) ApplyStake(caller pool.Address, amount pool.Amount) error {
	if err := auth.RequireBankCaller(caller, l.bankAddr); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	available, ok := l.available.CheckedSub(amount)
	if !ok {
		return errs.New(errs.InsufficientBalance, "stake %v exceeds available %v", amount, l.available)
	}
	staked, ok := l.staked.CheckedAdd(amount)
	if !ok {
		return errs.New(errs.Overflow, "staked balance overflow for %v", l.wallet)
	}
	totalStaked, ok := l.totalStaked.CheckedAdd(amount)
	if !ok {
		return errs.New(errs.Overflow, "lifetime stake counter overflow for %v", l.wallet)
	}
	l.available = available
	l.staked = staked
	l.totalStaked = totalStaked
	l.lastUpdate = l.now()
	l.sink.Deliver(event.LedgerUpdated{Wallet: l.wallet, Available: l.available, Staked: l.staked})
	return nil
}

// ApplyUnstake moves amount from staked back to available. The lifetime
// stake counter is monotonic and unaffected. Bank-only.
func (l *Ledger) ApplyUnstake(caller pool.Address, amount pool.Amount) error {
	if err := auth.RequireBankCaller(caller, l.bankAddr); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	staked, ok := l.staked.CheckedSub(amount)
	if !ok {
		return errs.New(errs.InsufficientBalance, "unstake %v exceeds staked %v", amount, l.staked)
	}
	available, ok := l.available.CheckedAdd(amount)
	if !ok {
		return errs.New(errs.Overflow, "available balance overflow for %v", l.wallet)
	}
	l.staked = staked
	l.available = available
	l.lastUpdate = l.now()
	l.sink.Deliver(event.LedgerUpdated{Wallet: l.wallet, Available: l.available, Staked: l.staked})
	return nil
}

// MarkDeactivated records the deactivation timestamp. Bank-only. A later
// reactivation does not clear the timestamp.
func (l *Ledger) MarkDeactivated(caller pool.Address) error {
	if err := auth.RequireBankCaller(caller, l.bankAddr); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	at := l.now()
	l.deactivatedAt = at
	l.lastUpdate = at
	l.sink.Deliver(event.Deactivated{Wallet: l.wallet, At: at})
	return nil
}

// Snapshot returns a copy of the current balance record.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		Wallet:         l.wallet,
		Handle:         l.handle,
		Available:      l.available,
		Staked:         l.staked,
		TotalDeposited: l.totalDeposited,
		TotalStaked:    l.totalStaked,
		CreatedAt:      l.createdAt,
		LastUpdate:     l.lastUpdate,
		DeactivatedAt:  l.deactivatedAt,
	}
}
