// Copyright (c) 2025 The PoolBank developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package subscriptions streams committed events to websocket clients.
package subscriptions

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/custodial/poolbank/api/restutil"
	"github.com/custodial/poolbank/event"
	"github.com/custodial/poolbank/log"
)

var logger = log.WithContext("pkg", "subscriptions")

const (
	subscriberBuffer = 256
	writeTimeout     = 10 * time.Second
	pingPeriod       = 30 * time.Second
)

type Subscriptions struct {
	stream   *event.Stream
	upgrader websocket.Upgrader
	done     chan struct{}
}

func New(stream *event.Stream, allowedOrigins []string) *Subscriptions {
	return &Subscriptions{
		stream: stream,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(req *http.Request) bool {
				origin := req.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
		done: make(chan struct{}),
	}
}

// Close disconnects all subscribed clients.
func (s *Subscriptions) Close() {
	close(s.done)
}

type message struct {
	Event   string      `json:"event"`
	Payload event.Event `json:"payload"`
}

func (s *Subscriptions) handleEvents(w http.ResponseWriter, req *http.Request) error {
	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// upgrader has already responded
		return nil
	}
	defer conn.Close()

	ch, cancel := s.stream.Subscribe(subscriberBuffer)
	defer cancel()

	// drain client frames so close handshakes are noticed
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case e := <-ch:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(&message{Event: e.Name(), Payload: e}); err != nil {
				logger.Debug("subscriber write failed", "err", err)
				return nil
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-closed:
			return nil
		case <-s.done:
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
			return nil
		}
	}
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/events").
		Methods(http.MethodGet).
		Name("subscriptions_events").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleEvents))
}
