// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package restutil

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/custodial/poolbank/pool"
)

// CallerHeader names the header carrying the calling principal. The API
// performs no authentication; the identity source in front of it is
// expected to have validated the header already.
const CallerHeader = "x-caller"

// ParseCaller extracts the calling principal from the request.
func ParseCaller(req *http.Request) (pool.Address, error) {
	raw := req.Header.Get(CallerHeader)
	if raw == "" {
		return pool.Address{}, BadRequest(errors.New("missing " + CallerHeader + " header"))
	}
	caller, err := pool.ParseAddress(raw)
	if err != nil {
		return pool.Address{}, BadRequest(errors.WithMessage(err, CallerHeader))
	}
	return *caller, nil
}
