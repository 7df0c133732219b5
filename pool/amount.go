// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import "math/bits"

// Amount is a fixed-width unsigned balance. The width is a hard semantic
// constraint: additive mutations must fail rather than wrap, since lifetime
// counters only ever grow.
type Amount uint64

// CheckedAdd returns a + b, reporting false on overflow.
func (a Amount) CheckedAdd(b Amount) (Amount, bool) {
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	if carry != 0 {
		return 0, false
	}
	return Amount(sum), true
}

// CheckedSub returns a - b, reporting false when b exceeds a.
func (a Amount) CheckedSub(b Amount) (Amount, bool) {
	diff, borrow := bits.Sub64(uint64(a), uint64(b), 0)
	if borrow != 0 {
		return 0, false
	}
	return Amount(diff), true
}
