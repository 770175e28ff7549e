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
	"fmt"
	"net/http"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/homeworker/HomeWorker/pkg/service"
	"github.com/homeworker/HomeWorker/pkg/service/devices"
	"github.com/homeworker/HomeWorker/pkg/service/objects"
	"github.com/homeworker/HomeWorker/pkg/service/worker"
)

// statusView is the JSON form of an object status.
type statusView struct {
	objects.Status
	// Human readable age of the state, e.g. "3 minutes ago"
	Age string `json:"age"`
}

// boardView is the JSON form of a board.
type boardView struct {
	ID        string `json:"id"`
	Chip      string `json:"chip"`
	Address   string `json:"address"`
	Direction string `json:"direction"`
	PinCount  int    `json:"pin-count"`
	Outputs   string `json:"outputs"`
	Inputs    string `json:"inputs,omitempty"`
}

// actuatorRequest is the body of a PUT on an actuator.
type actuatorRequest struct {
	On bool `json:"on"`
}

// readingRequest is the body of a PUT on a numeric sensor.
type readingRequest struct {
	Value *float64 `json:"value"`
}

// shutterRequest is the body of a POST on a shutter.
type shutterRequest struct {
	Action   worker.ShutterAction `json:"action"`
	Position float64              `json:"position,omitempty"`
}

type errorView struct {
	Error string `json:"error"`
}

func newStatusView(status objects.Status, now time.Time) statusView {
	return statusView{
		Status: status,
		Age:    humanize.RelTime(status.Since, now, "ago", "from now"),
	}
}

func newBoardView(b *devices.Board) boardView {
	v := boardView{
		ID:        b.ID(),
		Chip:      string(b.ChipType()),
		Address:   fmt.Sprintf("0x%02x", b.Address()),
		Direction: string(b.Direction()),
		PinCount:  b.PinCount(),
		Outputs:   b.Output().Format(b.PinCount()),
	}
	if snapshot, valid := b.Snapshot(); valid && b.HasInputs() {
		v.Inputs = snapshot.Format(b.PinCount())
	}
	return v
}

func (s *Server) handleHealth(c echo.Context) error {
	if !s.service.IsHealthy() {
		return c.String(http.StatusServiceUnavailable, "NOT RUNNING")
	}
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleStatuses(c echo.Context) error {
	statuses, err := s.service.Statuses()
	if err != nil {
		return sendError(c, http.StatusServiceUnavailable, err)
	}
	now := time.Now()
	return c.JSON(http.StatusOK, lo.Map(statuses, func(st objects.Status, _ int) statusView {
		return newStatusView(st, now)
	}))
}

func (s *Server) handleStatus(c echo.Context) error {
	id := c.Param("id")
	statuses, err := s.service.Statuses()
	if err != nil {
		return sendError(c, http.StatusServiceUnavailable, err)
	}
	status, found := lo.Find(statuses, func(st objects.Status) bool { return st.ID == id })
	if !found {
		return sendError(c, http.StatusNotFound, fmt.Errorf("object '%s' not found", id))
	}
	return c.JSON(http.StatusOK, newStatusView(status, time.Now()))
}

func (s *Server) handleBoards(c echo.Context) error {
	boards, err := s.service.Boards()
	if err != nil {
		return sendError(c, http.StatusServiceUnavailable, err)
	}
	return c.JSON(http.StatusOK, lo.Map(boards, func(b *devices.Board, _ int) boardView {
		return newBoardView(b)
	}))
}

func (s *Server) handleSetActuator(c echo.Context) error {
	var req actuatorRequest
	if err := c.Bind(&req); err != nil {
		return sendError(c, http.StatusBadRequest, err)
	}
	if err := s.service.SetActuator(c.Request().Context(), c.Param("id"), req.On); err != nil {
		return sendError(c, commandErrorStatus(err), err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleMoveShutter(c echo.Context) error {
	var req shutterRequest
	if err := c.Bind(&req); err != nil {
		return sendError(c, http.StatusBadRequest, err)
	}
	if err := s.service.MoveShutter(c.Request().Context(), c.Param("id"), req.Action, req.Position); err != nil {
		return sendError(c, commandErrorStatus(err), err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleSetReading(c echo.Context) error {
	var req readingRequest
	if err := c.Bind(&req); err != nil {
		return sendError(c, http.StatusBadRequest, err)
	}
	if req.Value == nil {
		return sendError(c, http.StatusBadRequest, objects.InvalidArgument("value is missing"))
	}
	if err := s.service.SetReading(c.Request().Context(), c.Param("id"), *req.Value); err != nil {
		return sendError(c, commandErrorStatus(err), err)
	}
	return c.NoContent(http.StatusNoContent)
}

// commandErrorStatus returns the HTTP status for an error of a command.
func commandErrorStatus(err error) int {
	switch {
	case service.IsNotRunning(err):
		return http.StatusServiceUnavailable
	case objects.IsNotFound(err):
		return http.StatusNotFound
	case objects.IsInvalidArgument(err):
		return http.StatusBadRequest
	case objects.IsPositionUnknown(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// sendError sends the given error as JSON with given HTTP status.
func sendError(c echo.Context, status int, err error) error {
	return c.JSON(status, errorView{Error: err.Error()})
}
