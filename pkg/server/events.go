// Copyright 2026 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//


package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/homeworker/HomeWorker/pkg/service/objects"
)

const (
	eventsWriteTimeout = time.Second * 5
	eventsPingInterval = time.Second * 30
)

// Changes provides a stream of status changes.
type Changes interface {
	// Subscribe returns a channel that receives status changes.
	// Call the returned function to unsubscribe.
	Subscribe() (<-chan objects.Status, context.CancelFunc)
}

var upgrader = websocket.Upgrader{} // use default options

// handleEvents streams the status of all objects over a websocket.
// The current status of every object is sent first, followed by every change.
func (s *Server) handleEvents(c echo.Context) error {
	// Subscribe before taking the snapshot, so no change is missed.
	changes, unsubscribe := s.changes.Subscribe()
	defer unsubscribe()
	statuses, err := s.service.Statuses()
	if err != nil {
		return sendError(c, http.StatusServiceUnavailable, err)
	}
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrader has already replied
		s.log.Debug().Err(err).Msg("Websocket upgrade failed")
		return nil
	}
	defer conn.Close()
	log := s.log.With().Str("remote", c.RealIP()).Logger()
	log.Debug().Msg("Event stream connected")

	send := func(status objects.Status) error {
		conn.SetWriteDeadline(time.Now().Add(eventsWriteTimeout))
		return conn.WriteJSON(newStatusView(status, time.Now()))
	}
	for _, st := range statuses {
		if err := send(st); err != nil {
			return nil
		}
	}

	// Clients do not send anything, but reading is needed to notice a close.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(eventsPingInterval)
	defer ping.Stop()
	for {
		select {
		case st, ok := <-changes:
			if !ok {
				return nil
			}
			if err := send(st); err != nil {
				log.Debug().Err(err).Msg("Failed to send status")
				return nil
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventsWriteTimeout)); err != nil {
				return nil
			}
		case <-disconnected:
			log.Debug().Msg("Event stream disconnected")
			return nil
		case <-s.closing:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"),
				time.Now().Add(eventsWriteTimeout))
			return nil
		}
	}
}
