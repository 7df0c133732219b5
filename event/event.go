// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package event defines the typed notifications emitted by bank and
// subscriber state changes, plus the sink implementations consumers can
// attach. One notification is delivered per committed state change, in
// commit order per entity.
package event

import (
	"time"

	"github.com/custodial/poolbank/pool"
)

// Event is a typed notification payload.
type Event interface {
	// Name returns the stable event name used by audit stores and
	// stream consumers.
	Name() string
}

// ParticipantCreated is emitted when the owner registers a wallet.
type ParticipantCreated struct {
	Wallet      pool.Address `json:"wallet"`
	Handle      pool.Address `json:"handle"`
	DisplayName string       `json:"name"`
}

// ParticipantDeactivated is emitted when the owner deactivates a wallet.
type ParticipantDeactivated struct {
	Wallet pool.Address `json:"wallet"`
}

// ParticipantReactivated is emitted when the owner reactivates a wallet.
type ParticipantReactivated struct {
	Wallet pool.Address `json:"wallet"`
}

// Deposited is emitted when funds are earmarked to a participant.
type Deposited struct {
	Wallet pool.Address `json:"wallet"`
	Amount pool.Amount  `json:"amount"`
}

// Staked is emitted when a relayed stake commits.
type Staked struct {
	Wallet pool.Address `json:"wallet"`
	Amount pool.Amount  `json:"amount"`
}

// Unstaked is emitted when a relayed unstake commits.
type Unstaked struct {
	Wallet pool.Address `json:"wallet"`
	Amount pool.Amount  `json:"amount"`
}

// ToppedUp is emitted when the owner records incoming custody funds.
type ToppedUp struct {
	Amount pool.Amount `json:"amount"`
}

// Withdrawn is emitted when the owner withdraws unallocated custody funds.
type Withdrawn struct {
	To     pool.Address `json:"to"`
	Amount pool.Amount  `json:"amount"`
}

// StakeRequested is emitted by a ledger before relaying a stake request.
type StakeRequested struct {
	Wallet pool.Address `json:"wallet"`
	Amount pool.Amount  `json:"amount"`
}

// UnstakeRequested is emitted by a ledger before relaying an unstake request.
type UnstakeRequested struct {
	Wallet pool.Address `json:"wallet"`
	Amount pool.Amount  `json:"amount"`
}

// LedgerUpdated is emitted after any balance mutation on a ledger, carrying
// the post-mutation pair.
type LedgerUpdated struct {
	Wallet    pool.Address `json:"wallet"`
	Available pool.Amount  `json:"available"`
	Staked    pool.Amount  `json:"staked"`
}

// Deactivated is emitted by a ledger when the bank marks it deactivated.
type Deactivated struct {
	Wallet pool.Address `json:"wallet"`
	At     time.Time    `json:"at"`
}

func (ParticipantCreated) Name() string     { return "participant_created" }
func (ParticipantDeactivated) Name() string { return "participant_deactivated" }
func (ParticipantReactivated) Name() string { return "participant_reactivated" }
func (Deposited) Name() string              { return "deposited" }
func (Staked) Name() string                 { return "staked" }
func (Unstaked) Name() string               { return "unstaked" }
func (ToppedUp) Name() string               { return "topped_up" }
func (Withdrawn) Name() string              { return "withdrawn" }
func (StakeRequested) Name() string         { return "stake_requested" }
func (UnstakeRequested) Name() string       { return "unstake_requested" }
func (LedgerUpdated) Name() string          { return "ledger_updated" }
func (Deactivated) Name() string            { return "deactivated" }
