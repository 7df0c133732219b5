// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package eventdb persists committed events for audit queries. Rows are
// keyed by a monotonic sequence matching delivery order.
package eventdb

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/custodial/poolbank/log"
	"github.com/custodial/poolbank/pool"
)

var logger = log.WithContext("pkg", "eventdb")

const tableSchema = `CREATE TABLE IF NOT EXISTS event (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	ts INTEGER NOT NULL,
	kind TEXT NOT NULL,
	wallet BLOB,
	amount INTEGER,
	available INTEGER,
	staked INTEGER,
	name TEXT
);
CREATE INDEX IF NOT EXISTS event_wallet ON event(wallet);
CREATE INDEX IF NOT EXISTS event_kind ON event(kind);`

// EventDB is the sqlite-backed audit store.
type EventDB struct {
	path  string
	db    *sql.DB
	stmts *stmtCache
}

// New creates or opens an event db at the given path.
func New(path string) (eventDB *EventDB, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if eventDB == nil {
			db.Close()
		}
	}()
	// a single connection keeps :memory: stores coherent and is plenty
	// for the append-mostly audit workload
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(tableSchema); err != nil {
		return nil, err
	}
	return &EventDB{path, db, newStmtCache(db)}, nil
}

// NewMem creates an event db in ram.
func NewMem() (*EventDB, error) {
	return New(":memory:")
}

// Close closes the event db.
func (db *EventDB) Close() error {
	db.stmts.Clear()
	return db.db.Close()
}

func (db *EventDB) Path() string {
	return db.path
}

// Record is a persisted event row.
type Record struct {
	Seq       int64         `json:"seq"`
	Time      time.Time     `json:"time"`
	Kind      string        `json:"kind"`
	Wallet    *pool.Address `json:"wallet,omitempty"`
	Amount    *pool.Amount  `json:"amount,omitempty"`
	Available *pool.Amount  `json:"available,omitempty"`
	Staked    *pool.Amount  `json:"staked,omitempty"`
	Name      string        `json:"name,omitempty"`
}

// Order of filtered results.
type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

// Filter narrows an audit query. Zero fields match everything.
type Filter struct {
	Wallet *pool.Address
	Kind   string
	From   *time.Time
	To     *time.Time
	Order  Order
	Limit  int
}

// Filter returns matching records in sequence order.
func (db *EventDB) Filter(ctx context.Context, filter *Filter) ([]*Record, error) {
	stmt := "SELECT seq, ts, kind, wallet, amount, available, staked, name FROM event WHERE 1"
	var args []any
	if filter != nil {
		if filter.Wallet != nil {
			stmt += " AND wallet = ?"
			args = append(args, filter.Wallet.Bytes())
		}
		if filter.Kind != "" {
			stmt += " AND kind = ?"
			args = append(args, filter.Kind)
		}
		if filter.From != nil {
			stmt += " AND ts >= ?"
			args = append(args, filter.From.UnixNano())
		}
		if filter.To != nil {
			stmt += " AND ts <= ?"
			args = append(args, filter.To.UnixNano())
		}
		if filter.Order == DESC {
			stmt += " ORDER BY seq DESC"
		} else {
			stmt += " ORDER BY seq ASC"
		}
		if filter.Limit > 0 {
			stmt += " LIMIT ?"
			args = append(args, filter.Limit)
		}
	} else {
		stmt += " ORDER BY seq ASC"
	}

	prepared, err := db.stmts.Prepare(stmt)
	if err != nil {
		return nil, err
	}
	rows, err := prepared.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var (
			rec                       Record
			ts                        int64
			wallet                    []byte
			amount, available, staked sql.NullInt64
			name                      sql.NullString
		)
		if err := rows.Scan(&rec.Seq, &ts, &rec.Kind, &wallet, &amount, &available, &staked, &name); err != nil {
			return nil, err
		}
		rec.Time = time.Unix(0, ts)
		if len(wallet) > 0 {
			addr := pool.BytesToAddress(wallet)
			rec.Wallet = &addr
		}
		rec.Amount = nullAmount(amount)
		rec.Available = nullAmount(available)
		rec.Staked = nullAmount(staked)
		rec.Name = name.String
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func nullAmount(v sql.NullInt64) *pool.Amount {
	if !v.Valid {
		return nil
	}
	a := pool.Amount(v.Int64)
	return &a
}

func (db *EventDB) insert(rec *Record) error {
	var wallet []byte
	if rec.Wallet != nil {
		wallet = rec.Wallet.Bytes()
	}
	prepared, err := db.stmts.Prepare(
		"INSERT INTO event(ts, kind, wallet, amount, available, staked, name) VALUES(?,?,?,?,?,?,?)")
	if err != nil {
		return err
	}
	_, err = prepared.Exec(
		rec.Time.UnixNano(), rec.Kind, wallet,
		amountArg(rec.Amount), amountArg(rec.Available), amountArg(rec.Staked),
		rec.Name,
	)
	return err
}

func amountArg(a *pool.Amount) any {
	if a == nil {
		return nil
	}
	return int64(*a)
}
