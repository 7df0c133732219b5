// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package events exposes the audit trail persisted by eventdb.
package events

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/custodial/poolbank/api/restutil"
	"github.com/custodial/poolbank/eventdb"
	"github.com/custodial/poolbank/pool"
)

const defaultLimit = 100

type Events struct {
	db *eventdb.EventDB
}

func New(db *eventdb.EventDB) *Events {
	return &Events{db}
}

func (e *Events) handleFilter(w http.ResponseWriter, req *http.Request) error {
	filter, err := parseFilter(req)
	if err != nil {
		return err
	}
	records, err := e.db.Filter(req.Context(), filter)
	if err != nil {
		return err
	}
	if records == nil {
		records = []*eventdb.Record{}
	}
	return restutil.WriteJSON(w, records)
}

func parseFilter(req *http.Request) (*eventdb.Filter, error) {
	query := req.URL.Query()
	filter := &eventdb.Filter{
		Kind:  query.Get("kind"),
		Limit: defaultLimit,
	}
	if raw := query.Get("wallet"); raw != "" {
		wallet, err := pool.ParseAddress(raw)
		if err != nil {
			return nil, restutil.BadRequest(errors.WithMessage(err, "wallet"))
		}
		filter.Wallet = wallet
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return nil, restutil.BadRequest(errors.New("limit: expected positive integer"))
		}
		filter.Limit = limit
	}
	switch query.Get("order") {
	case "", "asc":
		filter.Order = eventdb.ASC
	case "desc":
		filter.Order = eventdb.DESC
	default:
		return nil, restutil.BadRequest(errors.New("order: expected asc or desc"))
	}
	return filter, nil
}

func (e *Events) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("events_filter").
		HandlerFunc(restutil.WrapHandlerFunc(e.handleFilter))
}
