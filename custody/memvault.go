// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package custody

import (
	"sync"

	"github.com/custodial/poolbank/errs"
	"github.com/custodial/poolbank/pool"
)

// MemVault is a process-local vault. It backs the solo daemon setup and
// tests; production deployments plug in a real custody adapter instead.
type MemVault struct {
	mu      sync.Mutex
	balance pool.Amount

	// TransferErr, when set, makes the next Transfer fail without moving
	// funds. Used to exercise the failed-transfer atomicity contract.
	TransferErr error
	// BalanceErr, when set, makes the next Balance query fail. Used to
	// exercise the unverifiable-coverage path.
	BalanceErr error
}

// NewMemVault creates a vault seeded with an initial balance.
func NewMemVault(initial pool.Amount) *MemVault {
	return &MemVault{balance: initial}
}

func (v *MemVault) Balance() (pool.Amount, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.BalanceErr != nil {
		err := v.BalanceErr
		v.BalanceErr = nil
		return 0, err
	}
	return v.balance, nil
}

func (v *MemVault) Credit(amount pool.Amount) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	sum, ok := v.balance.CheckedAdd(amount)
	if !ok {
		return errs.New(errs.Overflow, "custody balance overflow")
	}
	v.balance = sum
	return nil
}

func (v *MemVault) Transfer(to pool.Address, amount pool.Amount) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.TransferErr != nil {
		err := v.TransferErr
		v.TransferErr = nil
		return err
	}
	diff, ok := v.balance.CheckedSub(amount)
	if !ok {
		return errs.New(errs.TransferFailed, "transfer %v to %v exceeds custody balance", amount, to)
	}
	v.balance = diff
	return nil
}
