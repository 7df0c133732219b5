// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package custody abstracts the external fund holder. The bank never moves
// value itself; it only queries the vault's balance to enforce coverage and
// asks it to transfer funds out on withdrawal.
package custody

import "github.com/custodial/poolbank/pool"

// Vault is the external custody primitive. Balance must reflect committed
// credits and transfers; Transfer is a blocking call that can fail and, on
// failure, must not have moved funds.
type Vault interface {
	Balance() (pool.Amount, error)
	Credit(amount pool.Amount) error
	Transfer(to pool.Address, amount pool.Amount) error
}
