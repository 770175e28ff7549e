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
	"fmt"
	"io/ioutil"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	humanize "github.com/dustin/go-humanize"

	"github.com/homeworker/HomeWorker/pkg/service/devices"
	"github.com/homeworker/HomeWorker/pkg/service/objects"
)

const (
	refreshInterval = time.Second * 2
	maxRecent       = 10
)

// Service provides the state shown in the console.
type Service interface {
	// Statuses returns the status of all objects.
	Statuses() ([]objects.Status, error)
	// Boards returns all registered boards.
	Boards() ([]*devices.Board, error)
	// IsHealthy returns true when the controller is running.
	IsHealthy() bool
}

type page int

const (
	pageStatuses page = iota
	pageBoards
	pageChanges
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	stoppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle    = lipgloss.NewStyle().Faint(true)
)

// Root is the model of a console session.
type Root struct {
	term    string
	width   int
	height  int
	loadAvg string

	service Service
	changes <-chan objects.Status
	now     func() time.Time

	page     page
	healthy  bool
	statuses []objects.Status
	boards   []*devices.Board
	recent   []objects.Status
	err      error
	viewPort viewport.Model
}

var _ tea.Model = Root{}

// NewRoot creates the model of a console session.
// Changes is optional.
func NewRoot(term string, width, height int, service Service, changes <-chan objects.Status) Root {
	r := Root{
		term:    term,
		width:   width,
		height:  height,
		service: service,
		changes: changes,
		now:     time.Now,
	}
	r.viewPort = viewport.New(width, r.viewHeight())
	return r
}

// Init is the first function that will be called. It returns an optional
// initial command. To not perform an initial command return nil.
func (r Root) Init() tea.Cmd {
	return tea.Batch(
		doReloadCPULoadAvg(),
		doRefresh(r.service),
		waitForChange(r.changes),
	)
}

// Update is called when a message is received. Use it to inspect messages
// and, in response, update the model and/or send a command.
func (r Root) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case loadAvgMsg:
		r.loadAvg = string(msg)
		return r, doReloadCPULoadAvg()
	case refreshMsg:
		r.healthy = msg.healthy
		r.statuses, r.boards, r.err = msg.statuses, msg.boards, msg.err
		r = r.updateContent()
		return r, tea.Tick(refreshInterval, func(time.Time) tea.Msg { return fetch(r.service) })
	case statusChangedMsg:
		r = r.applyChange(objects.Status(msg)).updateContent()
		return r, waitForChange(r.changes)
	case tea.WindowSizeMsg:
		r.height = msg.Height
		r.width = msg.Width
		r.viewPort.Width = r.width
		r.viewPort.Height = r.viewHeight()
		r = r.updateContent()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return r, tea.Quit
		case "s":
			r.page = pageStatuses
			r = r.updateContent()
		case "b":
			r.page = pageBoards
			r = r.updateContent()
		case "c":
			r.page = pageChanges
			r = r.updateContent()
		}
	}

	// Handle keyboard and mouse events in the viewport
	var cmd tea.Cmd
	r.viewPort, cmd = r.viewPort.Update(msg)
	cmds = append(cmds, cmd)

	return r, tea.Batch(cmds...)
}

// View renders the program's UI, which is just a string. The view is
// rendered after every Update.
func (r Root) View() string {
	return r.headerView() + r.viewPort.View() + "\n" + r.footerView()
}

func (r Root) headerView() string {
	state := stoppedStyle.Render("NOT RUNNING")
	if r.healthy {
		state = runningStyle.Render("RUNNING")
	}
	return lipgloss.JoinHorizontal(lipgloss.Left,
		titleStyle.Render("HomeWorker "),
		state,
		"  ",
		strings.TrimSpace(r.loadAvg),
	) + "\n"
}

func (r Root) footerView() string {
	return helpStyle.Render("s - Statuses  b - Boards  c - Changes  q - Disconnect")
}

// viewHeight returns the height available for the viewport.
func (r Root) viewHeight() int {
	h := r.height - lipgloss.Height(r.headerView()) - lipgloss.Height(r.footerView()) - 1
	if h < 1 {
		return 1
	}
	return h
}

// applyChange updates the cached statuses with a changed status.
func (r Root) applyChange(status objects.Status) Root {
	statuses := make([]objects.Status, 0, len(r.statuses)+1)
	found := false
	for _, s := range r.statuses {
		if s.ID == status.ID {
			s = status
			found = true
		}
		statuses = append(statuses, s)
	}
	if !found {
		statuses = append(statuses, status)
	}
	r.statuses = statuses
	recent := append([]objects.Status{status}, r.recent...)
	if len(recent) > maxRecent {
		recent = recent[:maxRecent]
	}
	r.recent = recent
	return r
}

// updateContent renders the current page into the viewport.
func (r Root) updateContent() Root {
	var content string
	switch {
	case r.err != nil:
		content = fmt.Sprintf("Error: %s\n", r.err)
	case r.page == pageBoards:
		content = r.boardsContent()
	case r.page == pageChanges:
		content = r.statusLines(r.recent)
	default:
		content = r.statusLines(r.statuses)
	}
	r.viewPort.SetContent(content)
	return r
}

func (r Root) statusLines(list []objects.Status) string {
	if len(list) == 0 {
		return "No objects\n"
	}
	now := r.now()
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-24s %-16s %-12s %-8s %s\n", "ID", "TYPE", "STATE", "POSITION", "SINCE")
	for _, s := range list {
		position := "-"
		if s.Position != nil {
			position = fmt.Sprintf("%d%%", *s.Position)
		}
		fmt.Fprintf(&sb, "%-24s %-16s %-12s %-8s %s\n", s.ID, s.Type, s.State, position,
			humanize.RelTime(s.Since, now, "ago", "from now"))
	}
	return sb.String()
}

func (r Root) boardsContent() string {
	if len(r.boards) == 0 {
		return "No boards\n"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-16s %-10s %-8s %-10s %-18s %s\n", "ID", "CHIP", "ADDRESS", "DIRECTION", "OUTPUTS", "INPUTS")
	for _, b := range r.boards {
		inputs := "-"
		if snapshot, valid := b.Snapshot(); valid && b.HasInputs() {
			inputs = snapshot.Format(b.PinCount())
		}
		fmt.Fprintf(&sb, "%-16s %-10s 0x%02x     %-10s %-18s %s\n", b.ID(), b.ChipType(), b.Address(),
			b.Direction(), b.Output().Format(b.PinCount()), inputs)
	}
	return sb.String()
}

type refreshMsg struct {
	healthy  bool
	statuses []objects.Status
	boards   []*devices.Board
	err      error
}

// fetch the state of the service.
func fetch(service Service) tea.Msg {
	msg := refreshMsg{healthy: service.IsHealthy()}
	if msg.statuses, msg.err = service.Statuses(); msg.err == nil {
		msg.boards, msg.err = service.Boards()
	}
	return msg
}

func doRefresh(service Service) tea.Cmd {
	return func() tea.Msg { return fetch(service) }
}

type statusChangedMsg objects.Status

// waitForChange waits for the next status change.
func waitForChange(changes <-chan objects.Status) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		status, ok := <-changes
		if !ok {
			return nil
		}
		return statusChangedMsg(status)
	}
}

type loadAvgMsg string

func doReloadCPULoadAvg() tea.Cmd {
	return tea.Tick(time.Second*2, func(t time.Time) tea.Msg {
		if content, err := ioutil.ReadFile("/proc/loadavg"); err != nil {
			return loadAvgMsg(err.Error())
		} else {
			return loadAvgMsg(string(content))
		}
	})
}
