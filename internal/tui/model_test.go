package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/domain"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/service"
)

// memRepo is an in-memory cell store that can be told to fail writes.
type memRepo struct {
	mu        sync.Mutex
	cells     []domain.Cell
	failWrite bool
}

func (r *memRepo) FetchAll(context.Context) ([]domain.Cell, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Cell{}, r.cells...), nil
}

func (r *memRepo) ReplaceAll(_ context.Context, cells []domain.Cell) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrite {
		return errors.New("server unreachable")
	}
	r.cells = append([]domain.Cell{}, cells...)
	return nil
}

type syncWriter struct{ repo *memRepo }

func (w syncWriter) Submit(ctx context.Context, write service.GridWrite) error {
	return w.repo.ReplaceAll(ctx, write.Cells)
}

func newTestModel(t *testing.T, repo *memRepo) Model {
	t.Helper()
	store := service.NewGridStore(repo,
		service.WithAsyncWriter(syncWriter{repo: repo}),
		service.WithPersistTimeout(time.Second),
	)
	return NewModel(store, time.Second)
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// step feeds msg to the model and runs the resulting command once.
func step(t *testing.T, m Model, msg tea.Msg) (Model, tea.Msg) {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd == nil {
		return m, nil
	}
	return m, cmd()
}

func TestModel_InitLoadsPersistedGrid(t *testing.T) {
	repo := &memRepo{cells: []domain.Cell{
		{Row: 0, Col: 0, Color: "#F25022"},
		{Row: 0, Col: 1, Color: "#7FBA00"},
	}}
	m := newTestModel(t, repo)

	msg := m.Init()()
	next, _ := m.Update(msg)
	m = next.(Model)

	assert.Equal(t, 2, m.State().Dimension)
	assert.Len(t, m.State().Cells, 2)
	assert.Contains(t, m.View(), "2x2, 2 filled")
}

func TestModel_AddSerializedByBusyFlag(t *testing.T) {
	repo := &memRepo{}
	m := newTestModel(t, repo)

	next, cmd := m.Update(keyMsg("a"))
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.Busy())

	next, second := m.Update(keyMsg("enter"))
	m = next.(Model)
	assert.Nil(t, second)
	assert.True(t, m.Busy())

	next, _ = m.Update(cmd())
	m = next.(Model)
	assert.False(t, m.Busy())
	assert.Equal(t, []domain.Cell{{Row: 0, Col: 0, Color: "#F25022"}}, m.State().Cells)
	assert.Len(t, repo.cells, 1)
}

func TestModel_AddFailureShowsNotice(t *testing.T) {
	repo := &memRepo{failWrite: true}
	m := newTestModel(t, repo)

	m, msg := step(t, m, keyMsg("a"))
	next, _ := m.Update(msg)
	m = next.(Model)

	assert.Equal(t, SaveFailedMessage, m.Err())
	assert.Empty(t, m.State().Cells)
	assert.False(t, m.Busy())
	assert.Contains(t, m.View(), SaveFailedMessage)

	repo.failWrite = false
	m, msg = step(t, m, keyMsg("a"))
	next, _ = m.Update(msg)
	m = next.(Model)
	assert.Empty(t, m.Err())
	assert.Len(t, m.State().Cells, 1)
}

func TestModel_ClearResetsGrid(t *testing.T) {
	repo := &memRepo{}
	m := newTestModel(t, repo)
	for i := 0; i < 3; i++ {
		var msg tea.Msg
		m, msg = step(t, m, keyMsg("a"))
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	require.Len(t, m.State().Cells, 3)

	m, msg := step(t, m, keyMsg("c"))
	next, _ := m.Update(msg)
	m = next.(Model)

	assert.Empty(t, m.State().Cells)
	assert.Equal(t, 1, m.State().Dimension)
	assert.Empty(t, repo.cells)
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(t, &memRepo{})

	_, cmd := m.Update(keyMsg("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestRenderGrid(t *testing.T) {
	state := domain.StateFromCells([]domain.Cell{{Row: 0, Col: 0, Color: "#F25022"}, {Row: 1, Col: 1, Color: "#7FBA00"}})

	out := RenderGrid(state)
	lines := strings.Split(out, "\n")

	// Two rows of bordered cells, three lines each.
	assert.Len(t, lines, 6)
	assert.Contains(t, out, "┌")
}
