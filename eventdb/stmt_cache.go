// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

import (
	"database/sql"

	lru "github.com/hashicorp/golang-lru"
)

const stmtCacheSize = 64

// stmtCache caches prepared statements keyed by query string. Filter
// queries are built dynamically, so the cache is bounded and evicted
// statements are closed.
type stmtCache struct {
	db    *sql.DB
	cache *lru.Cache
}

func newStmtCache(db *sql.DB) *stmtCache {
	cache, _ := lru.NewWithEvict(stmtCacheSize, func(_, value any) {
		_ = value.(*sql.Stmt).Close()
	})
	return &stmtCache{db: db, cache: cache}
}

func (sc *stmtCache) Prepare(query string) (*sql.Stmt, error) {
	if cached, ok := sc.cache.Get(query); ok {
		return cached.(*sql.Stmt), nil
	}
	stmt, err := sc.db.Prepare(query)
	if err != nil {
		return nil, err
	}
	sc.cache.Add(query, stmt)
	return stmt, nil
}

func (sc *stmtCache) Clear() {
	sc.cache.Purge()
}
