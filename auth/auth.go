// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package auth holds the capability checks shared by the bank and
// subscriber packages. The checks are pure comparisons against stored
// identities; authentication itself happens outside the protocol.
package auth

import (
	"github.com/custodial/poolbank/errs"
	"github.com/custodial/poolbank/pool"
)

// RequireOwner fails unless caller is the recorded bank owner.
func RequireOwner(caller, owner pool.Address) error {
	if caller != owner {
		return errs.New(errs.Unauthorized, "caller %v is not the owner", caller)
	}
	return nil
}

// RequireBankCaller fails unless caller is the ledger's registered bank.
func RequireBankCaller(caller, bank pool.Address) error {
	if caller != bank {
		return errs.New(errs.Unauthorized, "caller %v is not the bank", caller)
	}
	return nil
}

// RequireWalletOwner fails unless caller is the ledger's bound wallet.
func RequireWalletOwner(caller, wallet pool.Address) error {
	if caller != wallet {
		return errs.New(errs.Unauthorized, "caller %v is not the wallet owner", caller)
	}
	return nil
}
