package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/domain"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/service"
)

// SaveFailedMessage is shown when a new square could not be stored.
const SaveFailedMessage = "Could not save to the server. Try again."

// Store is the part of service.GridStore the UI drives.
type Store interface {
	State() domain.GridState
	Load(ctx context.Context) error
	AddCell(ctx context.Context) (domain.Cell, bool, error)
	Clear(ctx context.Context)
}

// ---------------------------------------------------------------------------
// Bubble Tea messages
// ---------------------------------------------------------------------------

type loadedMsg struct {
	state domain.GridState
}

type addedMsg struct {
	cell  domain.Cell
	added bool
	err   error
	state domain.GridState
}

type clearedMsg struct {
	state domain.GridState
}

// ---------------------------------------------------------------------------
// Model
// ---------------------------------------------------------------------------

// Model is the bubbletea model of the grid client.
type Model struct {
	store   Store
	timeout time.Duration
	keys    keyMap
	help    help.Model

	state   domain.GridState
	loading bool
	busy    bool
	status  string
	errMsg  string
	width   int
}

func NewModel(store Store, timeout time.Duration) Model {
	return Model{
		store:   store,
		timeout: timeout,
		keys:    newKeyMap(),
		help:    help.New(),
		state:   store.State(),
		loading: true,
		status:  "Loading grid...",
	}
}

func (m Model) Init() tea.Cmd {
	return m.loadCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case loadedMsg:
		m.loading = false
		m.state = msg.state
		m.status = fmt.Sprintf("Loaded %d squares.", len(msg.state.Cells))
		return m, nil
	case addedMsg:
		return m.handleAdded(msg), nil
	case clearedMsg:
		m.state = msg.state
		m.errMsg = ""
		m.status = "Grid cleared."
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Add):
		if m.busy {
			m.status = "Still saving the previous square..."
			return m, nil
		}
		m.busy = true
		m.errMsg = ""
		m.status = "Saving..."
		return m, m.addCmd()
	case key.Matches(msg, m.keys.Clear):
		return m, m.clearCmd()
	case key.Matches(msg, m.keys.Reload):
		m.loading = true
		m.status = "Loading grid..."
		return m, m.loadCmd()
	}
	return m, nil
}

func (m Model) handleAdded(msg addedMsg) Model {
	m.busy = false
	m.state = msg.state
	switch {
	case errors.Is(msg.err, service.ErrSuperseded):
		m.status = "The grid changed while saving, square discarded."
	case msg.err != nil:
		m.errMsg = SaveFailedMessage
		m.status = ""
	case !msg.added:
		m.status = "No free position found."
	default:
		m.status = fmt.Sprintf("Added %s at (%d, %d).", msg.cell.Color, msg.cell.Row, msg.cell.Col)
	}
	return m
}

// State is the grid as last shown.
func (m Model) State() domain.GridState { return m.state }

// Busy reports whether an add is in flight.
func (m Model) Busy() bool { return m.busy }

// Err is the visible failure notice, if any.
func (m Model) Err() string { return m.errMsg }

func (m Model) loadCmd() tea.Cmd {
	store, timeout := m.store, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := store.Load(ctx); err != nil {
			logrus.WithError(err).Warn("tui: could not load grid, showing current state")
		}
		return loadedMsg{state: store.State()}
	}
}

func (m Model) addCmd() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		// GridStore applies its own persistence timeout.
		cell, added, err := store.AddCell(context.Background())
		if err != nil {
			logrus.WithError(err).Warn("tui: add square failed")
		}
		return addedMsg{cell: cell, added: added, err: err, state: store.State()}
	}
}

func (m Model) clearCmd() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		store.Clear(context.Background())
		return clearedMsg{state: store.State()}
	}
}
