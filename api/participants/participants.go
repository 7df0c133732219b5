// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package participants exposes the participant-facing surface: ledger
// snapshots, deposits and the stake/unstake request path.
package participants

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/custodial/poolbank/api/restutil"
	"github.com/custodial/poolbank/bank"
	"github.com/custodial/poolbank/pool"
	"github.com/custodial/poolbank/subscriber"
)

type Participants struct {
	bank *bank.Bank
}

func New(b *bank.Bank) *Participants {
	return &Participants{b}
}

type summary struct {
	Wallet pool.Address `json:"wallet"`
	Name   string       `json:"name"`
	Active bool         `json:"active"`
}

func (p *Participants) handleList(w http.ResponseWriter, _ *http.Request) error {
	out := []summary{}
	for _, wallet := range p.bank.Participants() {
		name, err := p.bank.NameOf(wallet)
		if err != nil {
			continue // deregistration cannot happen, but stay tolerant
		}
		active, err := p.bank.IsActive(wallet)
		if err != nil {
			continue
		}
		out = append(out, summary{Wallet: wallet, Name: name, Active: active})
	}
	return restutil.WriteJSON(w, out)
}

func (p *Participants) handleGet(w http.ResponseWriter, req *http.Request) error {
	wallet, err := parseWallet(req)
	if err != nil {
		return err
	}
	ledger, err := p.bank.LedgerOf(wallet)
	if err != nil {
		return restutil.ProtocolError(err)
	}
	snap := ledger.Snapshot()
	return restutil.WriteJSON(w, &snap)
}

type depositRequest struct {
	Amount   pool.Amount `json:"amount"`
	Incoming pool.Amount `json:"incoming"`
}

func (p *Participants) handleDeposit(w http.ResponseWriter, req *http.Request) error {
	wallet, err := parseWallet(req)
	if err != nil {
		return err
	}
	var body depositRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := p.bank.DepositFor(wallet, body.Amount, body.Incoming); err != nil {
		return restutil.ProtocolError(err)
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

type stakeRequest struct {
	Amount pool.Amount `json:"amount"`
}

func (p *Participants) handleStake(w http.ResponseWriter, req *http.Request) error {
	return p.handleStakeOp(w, req, false)
}

func (p *Participants) handleUnstake(w http.ResponseWriter, req *http.Request) error {
	return p.handleStakeOp(w, req, true)
}

func (p *Participants) handleStakeOp(w http.ResponseWriter, req *http.Request, unstake bool) error {
	caller, err := restutil.ParseCaller(req)
	if err != nil {
		return err
	}
	wallet, err := parseWallet(req)
	if err != nil {
		return err
	}
	var body stakeRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	ledger, err := p.bank.LedgerOf(wallet)
	if err != nil {
		return restutil.ProtocolError(err)
	}
	sub, ok := ledger.(*subscriber.Ledger)
	if !ok {
		return errors.New("ledger does not accept requests")
	}
	if unstake {
		err = sub.RequestUnstake(caller, body.Amount)
	} else {
		err = sub.RequestStake(caller, body.Amount)
	}
	if err != nil {
		return restutil.ProtocolError(err)
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

func parseWallet(req *http.Request) (pool.Address, error) {
	parsed, err := pool.ParseAddress(mux.Vars(req)["wallet"])
	if err != nil {
		return pool.Address{}, restutil.BadRequest(errors.WithMessage(err, "wallet"))
	}
	return *parsed, nil
}

func (p *Participants) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("participants_list").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleList))
	sub.Path("/{wallet}").
		Methods(http.MethodGet).
		Name("participants_get").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleGet))
	sub.Path("/{wallet}/deposits").
		Methods(http.MethodPost).
		Name("participants_deposit").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleDeposit))
	sub.Path("/{wallet}/stake").
		Methods(http.MethodPost).
		Name("participants_stake").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleStake))
	sub.Path("/{wallet}/unstake").
		Methods(http.MethodPost).
		Name("participants_unstake").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleUnstake))
}
