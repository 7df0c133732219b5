// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package api assembles the http surface over the bank. Identity comes in
// through the x-caller header; the api forwards it into the core, which
// does all authorization.
package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/custodial/poolbank/api/admin"
	"github.com/custodial/poolbank/api/events"
	"github.com/custodial/poolbank/api/participants"
	"github.com/custodial/poolbank/api/restutil"
	"github.com/custodial/poolbank/api/subscriptions"
	"github.com/custodial/poolbank/bank"
	"github.com/custodial/poolbank/event"
	"github.com/custodial/poolbank/eventdb"
	"github.com/custodial/poolbank/metrics"
	"github.com/custodial/poolbank/pool"
)

// Options tunes the assembled surface.
type Options struct {
	AllowedOrigins string
	EnableMetrics  bool
}

type status struct {
	Owner          pool.Address `json:"owner"`
	TotalAllocated pool.Amount  `json:"totalAllocated"`
	Participants   int          `json:"participants"`
	Halted         bool         `json:"halted"`
}

// New returns the api handler and a cleanup func releasing the handler's
// background resources.
func New(b *bank.Bank, db *eventdb.EventDB, stream *event.Stream, opts Options) (http.HandlerFunc, func()) {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	participants.New(b).Mount(router, "/participants")
	admin.New(b).Mount(router, "/admin")
	if db != nil {
		events.New(db).Mount(router, "/events")
	}
	subs := subscriptions.New(stream, origins)
	subs.Mount(router, "/subscriptions")

	router.Path("/status").
		Methods(http.MethodGet).
		Name("bank_status").
		HandlerFunc(restutil.WrapHandlerFunc(func(w http.ResponseWriter, _ *http.Request) error {
			return restutil.WriteJSON(w, &status{
				Owner:          b.Owner(),
				TotalAllocated: b.TotalAllocated(),
				Participants:   len(b.Participants()),
				Halted:         b.Halted(),
			})
		}))

	if opts.EnableMetrics {
		router.Path("/metrics").Handler(metrics.HTTPHandler())
	}

	handler := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type", restutil.CallerHeader}),
	)(router)

	return handler.ServeHTTP, func() {
		subs.Close()
	}
}
