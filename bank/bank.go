// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package bank implements the central allocator. The bank owns the
// participant registry and the pooled-fund accounting, and it is the only
// component allowed to mutate pool-level totals. The coverage invariant
// custody >= totalAllocated is asserted after every sensitive mutation; a
// violation latches a bank-wide halt because it means the bookkeeping
// itself is broken.
package bank

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/custodial/poolbank/auth"
	"github.com/custodial/poolbank/custody"
	"github.com/custodial/poolbank/errs"
	"github.com/custodial/poolbank/event"
	"github.com/custodial/poolbank/log"
	"github.com/custodial/poolbank/metrics"
	"github.com/custodial/poolbank/pool"
	"github.com/custodial/poolbank/subscriber"
)

var (
	logger = log.WithContext("pkg", "bank")

	metricOps            = metrics.LazyLoadCounterVec("bank_ops_total", []string{"op", "result"})
	metricTotalAllocated = metrics.LazyLoadGauge("bank_total_allocated")
)

// Ledger is the capability the bank holds on a registered participant
// ledger. The bank never touches a ledger's balance fields directly.
type Ledger interface {
	Wallet() pool.Address
	Handle() pool.Address
	ApplyDeposit(caller pool.Address, amount pool.Amount) error
	ApplyStake(caller pool.Address, amount pool.Amount) error
	ApplyUnstake(caller pool.Address, amount pool.Amount) error
	MarkDeactivated(caller pool.Address) error
	Snapshot() subscriber.Snapshot
}

// Options tunes optional collaborators.
type Options struct {
	// Sink receives one notification per committed state change.
	Sink event.Sink
	// Now overrides the time source, for deterministic tests.
	Now func() time.Time
}

type participant struct {
	ledger Ledger
	name   string
	active bool
}

// Bank is the singleton allocator. All state mutations are serialized
// under the bank lock; ledger locks nest inside it, never the reverse.
type Bank struct {
	addr  pool.Address
	owner pool.Address
	vault custody.Vault
	sink  event.Sink
	now   func() time.Time

	mu             sync.Mutex
	participants   map[pool.Address]*participant
	totalAllocated pool.Amount
	halted         bool
}

// New creates a bank with the given principal identity and owner, backed
// by the given vault.
func New(addr, owner pool.Address, vault custody.Vault, opts Options) *Bank {
	sink := opts.Sink
	if sink == nil {
		sink = event.Nop{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Bank{
		addr:         addr,
		owner:        owner,
		vault:        vault,
		sink:         sink,
		now:          now,
		participants: make(map[pool.Address]*participant),
	}
}

// Address returns the bank's own principal identity. Ledgers compare it
// against the caller of their bank-only entry points.
func (b *Bank) Address() pool.Address {
	return b.addr
}

// Owner returns the sole identity authorized for administrative operations.
func (b *Bank) Owner() pool.Address {
	return b.owner
}

func (b *Bank) count(op, result string) {
	metricOps().AddWithLabel(1, map[string]string{"op": op, "result": result})
}

func (b *Bank) done(op string, err error) error {
	if err != nil {
		b.count(op, "err")
		return err
	}
	b.count(op, "ok")
	return nil
}

// checkNotHalted rejects mutations after an invariant violation latched.
func (b *Bank) checkNotHalted() error {
	if b.halted {
		return errs.New(errs.InvariantViolation, "bank is halted after a coverage invariant break")
	}
	return nil
}

// halt latches the halted state. Called with the bank lock held.
func (b *Bank) halt(op string) error {
	b.halted = true
	logger.Error("coverage invariant broken, halting all mutating operations", "op", op)
	return errs.New(errs.InvariantViolation, "custody balance no longer covers allocated funds")
}

// assertCoverage verifies custody >= totalAllocated after a mutation.
// An unanswerable balance query latches the halt too: state has already
// changed and coverage can no longer be confirmed. Called with the bank
// lock held.
func (b *Bank) assertCoverage(op string) error {
	bal, err := b.vault.Balance()
	if err != nil {
		b.halted = true
		logger.Error("custody balance unavailable after mutation, halting all mutating operations", "op", op, "err", err)
		return errors.Wrap(err, "query custody balance")
	}
	if bal < b.totalAllocated {
		return b.halt(op)
	}
	return nil
}

// CreateParticipant registers wallet under the given display name and
// creates its ledger. Owner-only; a wallet registers at most once.
func (b *Bank) CreateParticipant(caller, wallet pool.Address, name string) (Ledger, error) {
	ledger, err := b.createParticipant(caller, wallet, name)
	return ledger, b.done("create_participant", err)
}

func (b *Bank) createParticipant(caller, wallet pool.Address, name string) (Ledger, error) {
	if err := auth.RequireOwner(caller, b.owner); err != nil {
		return nil, err
	}
	if wallet.IsZero() {
		return nil, errs.New(errs.InvalidArgument, "wallet must not be the null identity")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkNotHalted(); err != nil {
		return nil, err
	}
	if _, ok := b.participants[wallet]; ok {
		return nil, errs.New(errs.AlreadyExists, "wallet %v already registered", wallet)
	}

	ledger := subscriber.New(b, wallet, b.sink, b.now)
	b.participants[wallet] = &participant{
		ledger: ledger,
		name:   name,
		active: true,
	}
	logger.Info("participant created", "wallet", wallet, "name", name)
	b.sink.Deliver(event.ParticipantCreated{Wallet: wallet, Handle: ledger.Handle(), DisplayName: name})
	return ledger, nil
}

// Deactivate marks a participant inactive and stamps its ledger.
// Owner-only.
func (b *Bank) Deactivate(caller, wallet pool.Address) error {
	return b.done("deactivate", b.deactivate(caller, wallet))
}

func (b *Bank) deactivate(caller, wallet pool.Address) error {
	if err := auth.RequireOwner(caller, b.owner); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkNotHalted(); err != nil {
		return err
	}
	p, ok := b.participants[wallet]
	if !ok {
		return errs.New(errs.NotFound, "wallet %v not registered", wallet)
	}
	if !p.active {
		return errs.New(errs.AlreadyInactive, "wallet %v already inactive", wallet)
	}
	if err := p.ledger.MarkDeactivated(b.addr); err != nil {
		return err
	}
	p.active = false
	logger.Info("participant deactivated", "wallet", wallet)
	b.sink.Deliver(event.ParticipantDeactivated{Wallet: wallet})
	return nil
}

// Reactivate marks a participant active again. The ledger's deactivation
// timestamp is deliberately left in place. Owner-only.
func (b *Bank) Reactivate(caller, wallet pool.Address) error {
	return b.done("reactivate", b.reactivate(caller, wallet))
}

func (b *Bank) reactivate(caller, wallet pool.Address) error {
	if err := auth.RequireOwner(caller, b.owner); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkNotHalted(); err != nil {
		return err
	}
	p, ok := b.participants[wallet]
	if !ok {
		return errs.New(errs.NotFound, "wallet %v not registered", wallet)
	}
	if p.active {
		return errs.New(errs.AlreadyActive, "wallet %v already active", wallet)
	}
	p.active = true
	logger.Info("participant reactivated", "wallet", wallet)
	b.sink.Deliver(event.ParticipantReactivated{Wallet: wallet})
	return nil
}

// DepositFor takes custody of incoming funds and earmarks amount of them
// to wallet. Any principal may deposit; the participant must be active.
func (b *Bank) DepositFor(wallet pool.Address, amount, incoming pool.Amount) error {
	return b.done("deposit_for", b.depositFor(wallet, amount, incoming))
}

func (b *Bank) depositFor(wallet pool.Address, amount, incoming pool.Amount) error {
	if amount == 0 {
		return errs.New(errs.InvalidArgument, "deposit amount must be positive")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkNotHalted(); err != nil {
		return err
	}
	p, ok := b.participants[wallet]
	if !ok {
		return errs.New(errs.NotFound, "wallet %v not registered", wallet)
	}
	if !p.active {
		return errs.New(errs.Inactive, "wallet %v is inactive", wallet)
	}

	// validate the pool total before touching custody, so a refused
	// deposit leaves custody unchanged
	total, ok := b.totalAllocated.CheckedAdd(amount)
	if !ok {
		return errs.New(errs.Overflow, "allocated total overflow")
	}
	if err := b.vault.Credit(incoming); err != nil {
		return errors.Wrap(err, "credit custody")
	}
	b.totalAllocated = total
	if err := p.ledger.ApplyDeposit(b.addr, amount); err != nil {
		// roll the pool total back so the failed deposit leaves no trace
		if rolled, ok := b.totalAllocated.CheckedSub(amount); ok {
			b.totalAllocated = rolled
		}
		return err
	}
	if err := b.assertCoverage("deposit_for"); err != nil {
		return err
	}
	metricTotalAllocated().Set(int64(b.totalAllocated))
	b.sink.Deliver(event.Deposited{Wallet: wallet, Amount: amount})
	return nil
}

// RelayStake commits a stake request. Only the wallet's registered ledger
// handle may relay, which makes the ledger's RequestStake the sole path.
func (b *Bank) RelayStake(requester, wallet pool.Address, amount pool.Amount) error {
	return b.done("relay_stake", b.relay(requester, wallet, amount, false))
}

// RelayUnstake commits an unstake request, symmetric to RelayStake.
func (b *Bank) RelayUnstake(requester, wallet pool.Address, amount pool.Amount) error {
	return b.done("relay_unstake", b.relay(requester, wallet, amount, true))
}

func (b *Bank) relay(requester, wallet pool.Address, amount pool.Amount, unstake bool) error {
	if amount == 0 {
		return errs.New(errs.InvalidArgument, "amount must be positive")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkNotHalted(); err != nil {
		return err
	}
	p, ok := b.participants[wallet]
	if !ok {
		return errs.New(errs.NotFound, "wallet %v not registered", wallet)
	}
	if !p.active {
		return errs.New(errs.Inactive, "wallet %v is inactive", wallet)
	}
	if requester != p.ledger.Handle() {
		return errs.New(errs.Unauthorized, "requester %v is not the ledger for %v", requester, wallet)
	}

	if unstake {
		if err := p.ledger.ApplyUnstake(b.addr, amount); err != nil {
			return err
		}
		b.sink.Deliver(event.Unstaked{Wallet: wallet, Amount: amount})
	} else {
		if err := p.ledger.ApplyStake(b.addr, amount); err != nil {
			return err
		}
		b.sink.Deliver(event.Staked{Wallet: wallet, Amount: amount})
	}
	return nil
}

// TopUp records incoming custody funds without earmarking them to any
// participant. Owner-only.
func (b *Bank) TopUp(caller pool.Address, amount pool.Amount) error {
	return b.done("top_up", b.topUp(caller, amount))
}

func (b *Bank) topUp(caller pool.Address, amount pool.Amount) error {
	if err := auth.RequireOwner(caller, b.owner); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkNotHalted(); err != nil {
		return err
	}
	if err := b.vault.Credit(amount); err != nil {
		return errors.Wrap(err, "credit custody")
	}
	b.sink.Deliver(event.ToppedUp{Amount: amount})
	return nil
}

// Withdraw transfers unallocated custody funds to the given destination.
// Earmarked funds can never leave custody. Owner-only.
func (b *Bank) Withdraw(caller pool.Address, amount pool.Amount, to pool.Address) error {
	return b.done("withdraw", b.withdraw(caller, amount, to))
}

func (b *Bank) withdraw(caller pool.Address, amount pool.Amount, to pool.Address) error {
	if err := auth.RequireOwner(caller, b.owner); err != nil {
		return err
	}
	if amount == 0 {
		return errs.New(errs.InvalidArgument, "withdraw amount must be positive")
	}
	if to.IsZero() {
		return errs.New(errs.InvalidArgument, "destination must not be the null identity")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkNotHalted(); err != nil {
		return err
	}
	bal, err := b.vault.Balance()
	if err != nil {
		return errors.Wrap(err, "query custody balance")
	}
	remaining, ok := bal.CheckedSub(amount)
	if !ok || remaining < b.totalAllocated {
		// refusal, not a break: nothing was mutated, coverage still holds
		return errs.New(errs.InvariantViolation,
			"withdrawing %v would leave custody %v below allocated %v", amount, bal, b.totalAllocated)
	}
	if err := b.vault.Transfer(to, amount); err != nil {
		return errs.New(errs.TransferFailed, "transfer %v to %v: %v", amount, to, err)
	}
	logger.Info("withdrawn", "to", to, "amount", amount)
	b.sink.Deliver(event.Withdrawn{To: to, Amount: amount})
	return nil
}

// LedgerOf returns the registered ledger for wallet.
func (b *Bank) LedgerOf(wallet pool.Address) (Ledger, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.participants[wallet]
	if !ok {
		return nil, errs.New(errs.NotFound, "wallet %v not registered", wallet)
	}
	return p.ledger, nil
}

// NameOf returns the display name recorded for wallet.
func (b *Bank) NameOf(wallet pool.Address) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.participants[wallet]
	if !ok {
		return "", errs.New(errs.NotFound, "wallet %v not registered", wallet)
	}
	return p.name, nil
}

// IsActive reports whether wallet is registered and active.
func (b *Bank) IsActive(wallet pool.Address) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.participants[wallet]
	if !ok {
		return false, errs.New(errs.NotFound, "wallet %v not registered", wallet)
	}
	return p.active, nil
}

// TotalAllocated returns the pool-level earmarked total.
func (b *Bank) TotalAllocated() pool.Amount {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalAllocated
}

// Halted reports whether a coverage invariant break latched the bank.
func (b *Bank) Halted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.halted
}

// Participants lists registered wallets in stable order.
func (b *Bank) Participants() []pool.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	wallets := make([]pool.Address, 0, len(b.participants))
	for w := range b.participants {
		wallets = append(wallets, w)
	}
	sort.Slice(wallets, func(i, j int) bool {
		return string(wallets[i].Bytes()) < string(wallets[j].Bytes())
	})
	return wallets
}
