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
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeworker/HomeWorker/pkg/service/devices"
	"github.com/homeworker/HomeWorker/pkg/service/objects"
)

type fakeService struct {
	statuses []objects.Status
}

func (s *fakeService) Statuses() ([]objects.Status, error) { return s.statuses, nil }
func (s *fakeService) Boards() ([]*devices.Board, error)   { return nil, nil }
func (s *fakeService) IsHealthy() bool                     { return true }

func key(k string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func TestFeed(t *testing.T) {
	f := NewFeed()
	defer f.Close()
	ch1, cancel1 := f.Subscribe()
	ch2, cancel2 := f.Subscribe()
	assert.Equal(t, 2, f.Subscribers())

	require.NoError(t, f.PublishStatus(context.Background(), objects.Status{ID: "hall", State: "on"}))
	for _, ch := range []<-chan objects.Status{ch1, ch2} {
		select {
		case s := <-ch:
			assert.Equal(t, "hall", s.ID)
		case <-time.After(time.Second):
			t.Fatal("no status received")
		}
	}

	cancel1()
	cancel1()
	_, open := <-ch1
	assert.False(t, open)
	assert.Equal(t, 1, f.Subscribers())
	cancel2()
	assert.Equal(t, 0, f.Subscribers())
}

func TestRootView(t *testing.T) {
	pos := 40
	svc := &fakeService{statuses: []objects.Status{
		{ID: "bedroom", Type: objects.TypeRollerShutter, State: "idle", Position: &pos, Since: time.Now()},
		{ID: "hall", Type: objects.TypeBinaryOutput, State: "off", Since: time.Now()},
	}}
	var m tea.Model = NewRoot("xterm", 100, 30, svc, nil)
	m, _ = m.Update(fetch(svc))
	view := m.View()
	assert.Contains(t, view, "RUNNING")
	assert.Contains(t, view, "bedroom")
	assert.Contains(t, view, "40%")

	m, _ = m.Update(statusChangedMsg(objects.Status{ID: "hall", Type: objects.TypeBinaryOutput, State: "on", Since: time.Now()}))
	assert.Equal(t, "on", m.(Root).statuses[1].State)

	m, _ = m.Update(key("c"))
	view = m.View()
	assert.Contains(t, view, "hall")
	assert.NotContains(t, view, "bedroom")

	m, _ = m.Update(key("b"))
	assert.Contains(t, m.View(), "No boards")

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
