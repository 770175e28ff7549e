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

package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"

	"github.com/homeworker/HomeWorker/pkg/service/objects"
)

// Console serves a status console to SSH sessions.
type Console struct {
	service Service
	feed    *Feed
}

// NewConsole creates a console for the given service.
// Feed is optional.
func NewConsole(service Service, feed *Feed) *Console {
	return &Console{
		service: service,
		feed:    feed,
	}
}

// Handler creates the model of a new SSH session.
func (c *Console) Handler(s ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, _ := s.Pty()
	var changes <-chan objects.Status
	if c.feed != nil {
		var unsubscribe context.CancelFunc
		changes, unsubscribe = c.feed.Subscribe()
		go func() {
			<-s.Context().Done()
			unsubscribe()
		}()
	}
	root := NewRoot(pty.Term, pty.Window.Width, pty.Window.Height, c.service, changes)
	return root, []tea.ProgramOption{tea.WithAltScreen()}
}
