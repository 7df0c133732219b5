// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

import (
	"time"

	"github.com/custodial/poolbank/event"
	"github.com/custodial/poolbank/pool"
)

// Sink returns an event.Sink persisting every delivered event. Persistence
// is best-effort at this boundary: a failed insert is logged, never
// propagated into the committing operation.
func (db *EventDB) Sink() event.Sink {
	return &dbSink{db}
}

type dbSink struct {
	db *EventDB
}

func (s *dbSink) Deliver(e event.Event) {
	rec := toRecord(e)
	if err := s.db.insert(rec); err != nil {
		logger.Warn("failed to persist event", "kind", rec.Kind, "err", err)
	}
}

func toRecord(e event.Event) *Record {
	rec := &Record{Time: time.Now(), Kind: e.Name()}
	switch ev := e.(type) {
	case event.ParticipantCreated:
		rec.Wallet = addr(ev.Wallet)
		rec.Name = ev.DisplayName
	case event.ParticipantDeactivated:
		rec.Wallet = addr(ev.Wallet)
	case event.ParticipantReactivated:
		rec.Wallet = addr(ev.Wallet)
	case event.Deposited:
		rec.Wallet = addr(ev.Wallet)
		rec.Amount = amt(ev.Amount)
	case event.Staked:
		rec.Wallet = addr(ev.Wallet)
		rec.Amount = amt(ev.Amount)
	case event.Unstaked:
		rec.Wallet = addr(ev.Wallet)
		rec.Amount = amt(ev.Amount)
	case event.ToppedUp:
		rec.Amount = amt(ev.Amount)
	case event.Withdrawn:
		rec.Wallet = addr(ev.To)
		rec.Amount = amt(ev.Amount)
	case event.StakeRequested:
		rec.Wallet = addr(ev.Wallet)
		rec.Amount = amt(ev.Amount)
	case event.UnstakeRequested:
		rec.Wallet = addr(ev.Wallet)
		rec.Amount = amt(ev.Amount)
	case event.LedgerUpdated:
		rec.Wallet = addr(ev.Wallet)
		rec.Available = amt(ev.Available)
		rec.Staked = amt(ev.Staked)
	case event.Deactivated:
		rec.Wallet = addr(ev.Wallet)
		rec.Time = ev.At
	}
	return rec
}

func addr(a pool.Address) *pool.Address { return &a }

func amt(a pool.Amount) *pool.Amount { return &a }
