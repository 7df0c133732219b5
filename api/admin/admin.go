// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package admin exposes the owner-only bank operations. Authorization is
// still enforced by the bank itself against the forwarded caller identity;
// this surface only does transport.
package admin

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/custodial/poolbank/api/restutil"
	"github.com/custodial/poolbank/bank"
	"github.com/custodial/poolbank/pool"
)

type Admin struct {
	bank *bank.Bank
}

func New(b *bank.Bank) *Admin {
	return &Admin{b}
}

type createRequest struct {
	Wallet pool.Address `json:"wallet"`
	Name   string       `json:"name"`
}

type createResponse struct {
	Wallet pool.Address `json:"wallet"`
	Handle pool.Address `json:"handle"`
}

func (a *Admin) handleCreate(w http.ResponseWriter, req *http.Request) error {
	caller, err := restutil.ParseCaller(req)
	if err != nil {
		return err
	}
	var body createRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	ledger, err := a.bank.CreateParticipant(caller, body.Wallet, body.Name)
	if err != nil {
		return restutil.ProtocolError(err)
	}
	return restutil.WriteJSON(w, &createResponse{Wallet: body.Wallet, Handle: ledger.Handle()})
}

func (a *Admin) handleDeactivate(w http.ResponseWriter, req *http.Request) error {
	caller, wallet, err := callerAndWallet(req)
	if err != nil {
		return err
	}
	if err := a.bank.Deactivate(caller, wallet); err != nil {
		return restutil.ProtocolError(err)
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

func (a *Admin) handleReactivate(w http.ResponseWriter, req *http.Request) error {
	caller, wallet, err := callerAndWallet(req)
	if err != nil {
		return err
	}
	if err := a.bank.Reactivate(caller, wallet); err != nil {
		return restutil.ProtocolError(err)
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

type topUpRequest struct {
	Amount pool.Amount `json:"amount"`
}

func (a *Admin) handleTopUp(w http.ResponseWriter, req *http.Request) error {
	caller, err := restutil.ParseCaller(req)
	if err != nil {
		return err
	}
	var body topUpRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := a.bank.TopUp(caller, body.Amount); err != nil {
		return restutil.ProtocolError(err)
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

type withdrawRequest struct {
	Amount pool.Amount  `json:"amount"`
	To     pool.Address `json:"to"`
}

func (a *Admin) handleWithdraw(w http.ResponseWriter, req *http.Request) error {
	caller, err := restutil.ParseCaller(req)
	if err != nil {
		return err
	}
	var body withdrawRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := a.bank.Withdraw(caller, body.Amount, body.To); err != nil {
		return restutil.ProtocolError(err)
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

func callerAndWallet(req *http.Request) (caller, wallet pool.Address, err error) {
	caller, err = restutil.ParseCaller(req)
	if err != nil {
		return
	}
	parsed, perr := pool.ParseAddress(mux.Vars(req)["wallet"])
	if perr != nil {
		err = restutil.BadRequest(errors.WithMessage(perr, "wallet"))
		return
	}
	wallet = *parsed
	return
}

func (a *Admin) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/participants").
		Methods(http.MethodPost).
		Name("admin_create_participant").
		HandlerFunc(restutil.WrapHandlerFunc(a.handleCreate))
	sub.Path("/participants/{wallet}/deactivate").
		Methods(http.MethodPost).
		Name("admin_deactivate_participant").
		HandlerFunc(restutil.WrapHandlerFunc(a.handleDeactivate))
	sub.Path("/participants/{wallet}/reactivate").
		Methods(http.MethodPost).
		Name("admin_reactivate_participant").
		HandlerFunc(restutil.WrapHandlerFunc(a.handleReactivate))
	sub.Path("/topup").
		Methods(http.MethodPost).
		Name("admin_top_up").
		HandlerFunc(restutil.WrapHandlerFunc(a.handleTopUp))
	sub.Path("/withdraw").
		Methods(http.MethodPost).
		Name("admin_withdraw").
		HandlerFunc(restutil.WrapHandlerFunc(a.handleWithdraw))
}
