// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodial/poolbank/api/restutil"
	"github.com/custodial/poolbank/bank"
	"github.com/custodial/poolbank/custody"
	"github.com/custodial/poolbank/event"
	"github.com/custodial/poolbank/eventdb"
	"github.com/custodial/poolbank/pool"
	"github.com/custodial/poolbank/subscriber"
)

var (
	bankAddr  = pool.BytesToAddress([]byte("bank"))
	ownerAddr = pool.BytesToAddress([]byte("owner"))
	wallet1   = pool.BytesToAddress([]byte("w1"))
)

type testServer struct {
	*httptest.Server
	bank *bank.Bank
}

func newServer(t *testing.T) *testServer {
	t.Helper()

	db, err := eventdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	stream := event.NewStream()
	vault := custody.NewMemVault(0)
	b := bank.New(bankAddr, ownerAddr, vault, bank.Options{
		Sink: event.Fanout{stream, db.Sink()},
	})

	handler, closer := New(b, db, stream, Options{AllowedOrigins: "*"})
	t.Cleanup(closer)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testServer{srv, b}
}

func (s *testServer) do(t *testing.T, method, path string, caller *pool.Address, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	if caller != nil {
		req.Header.Set(restutil.CallerHeader, caller.String())
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func TestStatus(t *testing.T) {
	srv := newServer(t)

	code, raw := srv.do(t, http.MethodGet, "/status", nil, nil)
	require.Equal(t, http.StatusOK, code)

	var status struct {
		Owner          pool.Address `json:"owner"`
		TotalAllocated pool.Amount  `json:"totalAllocated"`
		Participants   int          `json:"participants"`
		Halted         bool         `json:"halted"`
	}
	require.NoError(t, json.Unmarshal(raw, &status))
	assert.Equal(t, ownerAddr, status.Owner)
	assert.Equal(t, 0, status.Participants)
	assert.False(t, status.Halted)
}

func TestAdminCreate(t *testing.T) {
	srv := newServer(t)
	body := map[string]any{"wallet": wallet1.String(), "name": "Alice"}

	// caller header is mandatory
	code, _ := srv.do(t, http.MethodPost, "/admin/participants", nil, body)
	assert.Equal(t, http.StatusBadRequest, code)

	// non-owner is refused by the bank
	code, _ = srv.do(t, http.MethodPost, "/admin/participants", &wallet1, body)
	assert.Equal(t, http.StatusForbidden, code)

	code, raw := srv.do(t, http.MethodPost, "/admin/participants", &ownerAddr, body)
	require.Equal(t, http.StatusOK, code)

	var created struct {
		Wallet pool.Address `json:"wallet"`
		Handle pool.Address `json:"handle"`
	}
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.Equal(t, wallet1, created.Wallet)
	assert.Equal(t, pool.DeriveHandle(wallet1), created.Handle)

	// duplicate registration conflicts
	code, _ = srv.do(t, http.MethodPost, "/admin/participants", &ownerAddr, body)
	assert.Equal(t, http.StatusConflict, code)
}

func TestDepositStakeSnapshot(t *testing.T) {
	srv := newServer(t)
	srv.do(t, http.MethodPost, "/admin/participants", &ownerAddr,
		map[string]any{"wallet": wallet1.String(), "name": "Alice"})

	walletPath := "/participants/" + wallet1.String()

	code, _ := srv.do(t, http.MethodPost, walletPath+"/deposits", nil,
		map[string]any{"amount": 100, "incoming": 100})
	require.Equal(t, http.StatusOK, code)

	// stake requires the wallet's own identity
	code, _ = srv.do(t, http.MethodPost, walletPath+"/stake", &ownerAddr,
		map[string]any{"amount": 60})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = srv.do(t, http.MethodPost, walletPath+"/stake", &wallet1,
		map[string]any{"amount": 60})
	require.Equal(t, http.StatusOK, code)

	// over-staking conflicts
	code, _ = srv.do(t, http.MethodPost, walletPath+"/stake", &wallet1,
		map[string]any{"amount": 41})
	assert.Equal(t, http.StatusConflict, code)

	code, raw := srv.do(t, http.MethodGet, walletPath, nil, nil)
	require.Equal(t, http.StatusOK, code)
	var snap subscriber.Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	assert.Equal(t, pool.Amount(40), snap.Available)
	assert.Equal(t, pool.Amount(60), snap.Staked)

	code, _ = srv.do(t, http.MethodPost, walletPath+"/unstake", &wallet1,
		map[string]any{"amount": 60})
	require.Equal(t, http.StatusOK, code)

	code, raw = srv.do(t, http.MethodGet, walletPath, nil, nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(raw, &snap))
	assert.Equal(t, pool.Amount(100), snap.Available)
	assert.Equal(t, pool.Amount(0), snap.Staked)
}

func TestEventsEndpoint(t *testing.T) {
	srv := newServer(t)
	srv.do(t, http.MethodPost, "/admin/participants", &ownerAddr,
		map[string]any{"wallet": wallet1.String(), "name": "Alice"})
	srv.do(t, http.MethodPost, "/participants/"+wallet1.String()+"/deposits", nil,
		map[string]any{"amount": 10, "incoming": 10})

	code, raw := srv.do(t, http.MethodGet,
		fmt.Sprintf("/events?wallet=%s&kind=deposited", wallet1), nil, nil)
	require.Equal(t, http.StatusOK, code)

	var records []*eventdb.Record
	require.NoError(t, json.Unmarshal(raw, &records))
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Amount)
	assert.Equal(t, pool.Amount(10), *records[0].Amount)

	code, _ = srv.do(t, http.MethodGet, "/events?order=sideways", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestListParticipants(t *testing.T) {
	srv := newServer(t)
	srv.do(t, http.MethodPost, "/admin/participants", &ownerAddr,
		map[string]any{"wallet": wallet1.String(), "name": "Alice"})
	srv.do(t, http.MethodPost, "/admin/participants/"+wallet1.String()+"/deactivate", &ownerAddr, nil)

	code, raw := srv.do(t, http.MethodGet, "/participants", nil, nil)
	require.Equal(t, http.StatusOK, code)

	var list []struct {
		Wallet pool.Address `json:"wallet"`
		Name   string       `json:"name"`
		Active bool         `json:"active"`
	}
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Alice", list[0].Name)
	assert.False(t, list[0].Active)
}
