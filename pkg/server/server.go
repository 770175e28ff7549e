// Copyright 2023 Ewout Prangsma
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
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/homeworker/HomeWorker/pkg/service/devices"
	"github.com/homeworker/HomeWorker/pkg/service/objects"
	"github.com/homeworker/HomeWorker/pkg/service/worker"
)

const (
	shutdownTimeout = time.Second * 5
)

// Config for the HTTP server.
type Config struct {
	// Host interface to listen on
	Host string
	// Port to listen on for HTTP requests
	HTTPPort int
	// Port to listen on for SSH console sessions (0 disables)
	SSHPort int
	// Path of the SSH host key, created when it does not exist
	HostKeyPath string
}

// UI serves console sessions over SSH.
type UI interface {
	// Handler creates the model of a new session.
	Handler(s ssh.Session) (tea.Model, []tea.ProgramOption)
}

// Service provides the state that is served.
type Service interface {
	// Statuses returns the status of all objects.
	Statuses() ([]objects.Status, error)
	// Boards returns all registered boards.
	Boards() ([]*devices.Board, error)
	// IsHealthy returns true when the controller is running.
	IsHealthy() bool
	// SetActuator switches the binary actuator with given ID.
	SetActuator(ctx context.Context, id string, on bool) error
	// MoveShutter executes a manual command on the roller shutter with given ID.
	MoveShutter(ctx context.Context, id string, action worker.ShutterAction, position float64) error
	// SetReading records a reading of the numeric sensor with given ID.
	SetReading(ctx context.Context, id string, value float64) error
}

// Server runs the HTTP server for the service.
type Server struct {
	Config
	log     zerolog.Logger
	ui      UI
	service Service
	changes Changes
	closing chan struct{}
}

// New configures a new Server.
// UI and changes are optional.
func New(cfg Config, log zerolog.Logger, ui UI, service Service, changes Changes) (*Server, error) {
	if cfg.HostKeyPath == "" {
		cfg.HostKeyPath = ".ssh/id_ed25519"
	}
	return &Server{
		Config:  cfg,
		log:     log.With().Str("component", "server").Logger(),
		ui:      ui,
		service: service,
		changes: changes,
		closing: make(chan struct{}),
	}, nil
}

// Run the server until the given context is canceled.
func (s *Server) Run(ctx context.Context) error {
	// Prepare HTTP listener
	log := s.log
	httpAddr := net.JoinHostPort(s.Host, strconv.Itoa(s.HTTPPort))
	httpLis, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on address %s", httpAddr)
	}

	// Prepare HTTP server
	httpSrv := http.Server{
		Handler: s.router(),
	}

	// Prepare SSH server
	var sshServer *ssh.Server
	sshAddr := net.JoinHostPort(s.Host, strconv.Itoa(s.SSHPort))
	if s.SSHPort > 0 && s.ui != nil {
		sshServer, err = wish.NewServer(
			// The address the server will listen to.
			wish.WithAddress(sshAddr),

			// The SSH server need its own keys, this will create a keypair in the
			// given path if it doesn't exist yet.
			wish.WithHostKeyPath(s.HostKeyPath),

			// Middlewares do something on a ssh.Session, and then call the next
			// middleware in the stack.
			wish.WithMiddleware(
				bubbletea.Middleware(s.ui.Handler),
				// The last item in the chain is the first to be called.
				activeterm.Middleware(),
				logging.Middleware(),
			),
		)
		if err != nil {
			httpLis.Close()
			return errors.Wrap(err, "could not create SSH server")
		}
	}

	// Serve apis
	log.Debug().Str("address", httpAddr).Msg("Serving HTTP")
	serveErr := make(chan error, 2)
	go func() {
		if err := httpSrv.Serve(httpLis); err != nil && err != http.ErrServerClosed {
			serveErr <- errors.Wrap(err, "failed to serve HTTP server")
		}
		log.Debug().Str("address", httpAddr).Msg("Done Serving HTTP")
	}()
	// Serve UI
	if sshServer != nil {
		log.Debug().Str("address", sshAddr).Msg("Serving SSH")
		go func() {
			if err := sshServer.ListenAndServe(); err != nil && err != ssh.ErrServerClosed {
				serveErr <- errors.Wrap(err, "failed to serve SSH server")
			}
			log.Debug().Str("address", sshAddr).Msg("Done Serving SSH")
		}()
	}

	// Wait until context closed
	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}

	log.Info().Msg("Closing servers")
	close(s.closing)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	httpSrv.Shutdown(shutdownCtx)
	if sshServer != nil {
		sshServer.Shutdown(shutdownCtx)
	}
	return err
}

// router builds the HTTP routes.
func (s *Server) router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/debug/pprof/*", echo.WrapHandler(http.HandlerFunc(pprof.Index)))
	e.GET("/health", s.handleHealth)
	e.GET("/api/status", s.handleStatuses)
	e.GET("/api/status/:id", s.handleStatus)
	e.GET("/api/boards", s.handleBoards)
	e.PUT("/api/actuators/:id", s.handleSetActuator)
	e.POST("/api/shutters/:id", s.handleMoveShutter)
	e.PUT("/api/sensors/:id", s.handleSetReading)
	if s.changes != nil {
		e.GET("/api/events", s.handleEvents)
	}
	return e
}
