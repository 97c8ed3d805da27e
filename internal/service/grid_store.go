package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/domain"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/repository"
)

// DefaultPersistTimeout bounds each round-trip to the cell repository.
const DefaultPersistTimeout = 10 * time.Second

// StateListener is told about every state the store commits.
type StateListener interface {
	GridChanged(state domain.GridState)
}

// AsyncWriter persists a cell list without making the caller wait for the result.
type AsyncWriter interface {
	Submit(ctx context.Context, w GridWrite) error
}

// GridWrite is a whole-list replace handed to an AsyncWriter. A fenced write
// carries the repository revision it was issued at and must be dropped once the
// repository has moved past that revision.
type GridWrite struct {
	Cells    []domain.Cell
	Revision int64
	Fenced   bool
}

// drainer is implemented by writers that can wait for their submitted writes.
type drainer interface {
	Wait(ctx context.Context) error
}

// GridStore owns the canonical grid state. All mutations go through it: AddCell
// plans, persists and only then commits; Clear resets first and persists in the
// background; Load replaces the state with whatever the repository holds.
//
// A background clear is ordered against later writes: AddCell and Load first wait
// for writers that can be drained, and a fenced clear is superseded by any direct
// write that lands after it.
type GridStore struct {
	repo      repository.CellRepository
	allocator *domain.ColorAllocator
	writer    AsyncWriter
	listener  StateListener
	timeout   time.Duration

	addMu sync.Mutex // one repository write path at a time

	mu         sync.RWMutex
	state      domain.GridState
	generation uint64 // bumped on every commit, reload and clear

	// set while a fenced clear may still be waiting in the writer
	clearPending  bool
	clearRevision int64

	notifyMu    sync.Mutex
	notifiedGen uint64
}

type GridStoreOption func(*GridStore)

func WithColorAllocator(a *domain.ColorAllocator) GridStoreOption {
	return func(s *GridStore) { s.allocator = a }
}

func WithAsyncWriter(w AsyncWriter) GridStoreOption {
	return func(s *GridStore) { s.writer = w }
}

func WithStateListener(l StateListener) GridStoreOption {
	return func(s *GridStore) { s.listener = l }
}

// WithPersistTimeout sets the repository timeout; zero or negative disables it.
func WithPersistTimeout(d time.Duration) GridStoreOption {
	return func(s *GridStore) { s.timeout = d }
}

// NewGridStore creates a store holding the empty grid.
func NewGridStore(repo repository.CellRepository, opts ...GridStoreOption) *GridStore {
	if repo == nil {
		panic("CellRepository cannot be nil for GridStore")
	}
	s := &GridStore{
		repo:    repo,
		timeout: DefaultPersistTimeout,
		state:   domain.EmptyState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.allocator == nil {
		s.allocator = domain.NewColorAllocator(nil)
	}
	if s.writer == nil {
		s.writer = NewBackgroundWriter(repo, s.timeout)
	}
	return s
}

// State returns a copy of the current grid.
func (s *GridStore) State() domain.GridState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Load replaces the in-memory grid with the persisted cell list. On failure the
// current state is kept and the error is returned. Listeners hear about it only
// when the grid actually changed.
func (s *GridStore) Load(ctx context.Context) error {
	logCtx := logrus.WithField("operation", "Load")

	if err := s.drain(ctx); err != nil {
		logCtx.WithError(err).Warn("Background grid write still running, keeping current state")
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	s.mu.RLock()
	generation := s.generation
	s.mu.RUnlock()

	pending, err := s.clearStillPending(ctx)
	if err != nil {
		logCtx.WithError(err).Warn("Could not read grid revision, keeping current state")
		return mapRepoError(err)
	}
	if pending {
		// The store still holds the list from before the clear.
		logCtx.Debug("Cleared grid not saved yet, keeping current state")
		return nil
	}

	cells, err := s.fetch(ctx)
	if err != nil {
		logCtx.WithError(err).Warn("Could not read grid from store, keeping current state")
		return mapRepoError(err)
	}

	loaded := domain.StateFromCells(cells)
	s.mu.Lock()
	if s.generation != generation {
		s.mu.Unlock()
		logCtx.Debug("Grid changed while loading, discarding loaded list")
		return nil
	}
	changed := !s.state.Equal(loaded)
	s.state = loaded
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	logCtx.WithFields(logrus.Fields{"cells": len(loaded.Cells), "dimension": loaded.Dimension}).Info("Grid loaded")
	if changed {
		s.notify(loaded, gen)
	}
	return nil
}

// GridChanged adopts a list that was written around the store, such as a raw
// replace of the whole grid. It makes the store a StateListener.
func (s *GridStore) GridChanged(state domain.GridState) {
	adopted := state.Clone()
	s.mu.Lock()
	changed := !s.state.Equal(adopted)
	s.state = adopted
	s.generation++
	s.clearPending = false
	gen := s.generation
	s.mu.Unlock()

	if changed {
		s.notify(adopted, gen)
	}
}

// AddCell fills the next spiral position. The returned bool is false when nothing
// was added, either because the planner found no position (err == nil) or because
// the write failed (err != nil). On failure the in-memory grid is unchanged.
func (s *GridStore) AddCell(ctx context.Context) (domain.Cell, bool, error) {
	s.addMu.Lock()
	defer s.addMu.Unlock()

	if err := s.drain(ctx); err != nil {
		logrus.WithError(err).Error("Background grid write still running, nothing added")
		return domain.Cell{}, false, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	s.mu.RLock()
	current := s.state
	generation := s.generation
	s.mu.RUnlock()

	next, dimension, ok := domain.PlanNext(current)
	if !ok {
		logrus.WithField("dimension", current.Dimension).Warn("No free position found even after growing, nothing added")
		return domain.Cell{}, false, nil
	}

	cell := domain.Cell{
		Row:   next.Row,
		Col:   next.Col,
		Color: s.allocator.ColorFor(len(current.Cells), current.LastColor()),
	}
	candidate := current.With(cell, dimension)
	logCtx := logrus.WithFields(logrus.Fields{
		"row":       cell.Row,
		"col":       cell.Col,
		"color":     cell.Color,
		"dimension": dimension,
	})

	if err := s.persist(ctx, candidate.Cells); err != nil {
		logCtx.WithError(err).Error("Could not save new cell, grid left unchanged")
		return domain.Cell{}, false, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	s.mu.Lock()
	if s.generation != generation {
		s.mu.Unlock()
		logCtx.Warn("Grid changed while saving, discarding planned cell")
		return domain.Cell{}, false, ErrSuperseded
	}
	s.state = candidate
	s.generation++
	// The saved list already reflects the clear, so a queued clear is now stale.
	s.clearPending = false
	gen := s.generation
	s.mu.Unlock()

	logCtx.Debug("Cell added")
	s.notify(candidate, gen)
	return cell, true, nil
}

// Clear empties the grid immediately and hands the empty list to the async writer.
// The reset is never rolled back, even if the write later fails. The write waits
// for an AddCell already in flight so it is issued after that cell's save.
func (s *GridStore) Clear(ctx context.Context) {
	empty := domain.EmptyState()
	s.mu.Lock()
	s.state = empty
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	logrus.Info("Grid cleared")
	s.notify(empty, gen)

	s.addMu.Lock()
	defer s.addMu.Unlock()

	write := GridWrite{Cells: []domain.Cell{}}
	if rr, ok := s.repo.(repository.RevisionedRepository); ok {
		rev, err := s.revision(ctx, rr)
		if err != nil {
			logrus.WithError(err).Error("Could not read grid revision, cleared grid not saved")
			return
		}
		write.Revision, write.Fenced = rev, true
	}
	if err := s.writer.Submit(ctx, write); err != nil {
		logrus.WithError(err).Error("Could not schedule persistence of cleared grid")
		return
	}
	if write.Fenced {
		s.mu.Lock()
		s.clearPending, s.clearRevision = true, write.Revision
		s.mu.Unlock()
	}
}

// clearStillPending reports whether a fenced clear was submitted and the
// repository has not been written since.
func (s *GridStore) clearStillPending(ctx context.Context) (bool, error) {
	s.mu.RLock()
	pending, at := s.clearPending, s.clearRevision
	s.mu.RUnlock()
	if !pending {
		return false, nil
	}
	rr, ok := s.repo.(repository.RevisionedRepository)
	if !ok {
		return false, nil
	}
	rev, err := s.revision(ctx, rr)
	if err != nil {
		return false, err
	}
	if rev != at {
		s.mu.Lock()
		if s.clearRevision == at {
			s.clearPending = false
		}
		s.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (s *GridStore) revision(ctx context.Context, rr repository.RevisionedRepository) (int64, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	rev, err := rr.Revision(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return 0, fmt.Errorf("%w: %w", ErrPersistTimeout, err)
	}
	return rev, err
}

// drain waits, bounded by the persist timeout, for writers that support it.
func (s *GridStore) drain(ctx context.Context) error {
	d, ok := s.writer.(drainer)
	if !ok {
		return nil
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistTimeout, err)
	}
	return nil
}

func (s *GridStore) fetch(ctx context.Context) ([]domain.Cell, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	cells, err := s.repo.FetchAll(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w: %w", ErrPersistTimeout, err)
	}
	return cells, err
}

func (s *GridStore) persist(ctx context.Context, cells []domain.Cell) error {
	return replaceWithTimeout(ctx, s.repo, cells, s.timeout)
}

// notify drops states older than one already announced, so listeners never end
// on a stale grid when commits race their notifications.
func (s *GridStore) notify(state domain.GridState, gen uint64) {
	if s.listener == nil {
		return
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if gen <= s.notifiedGen {
		return
	}
	s.notifiedGen = gen
	s.listener.GridChanged(state.Clone())
}

func replaceWithTimeout(ctx context.Context, repo repository.CellRepository, cells []domain.Cell, timeout time.Duration) error {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	err := repo.ReplaceAll(ctx, cells)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrPersistTimeout, err)
	}
	return err
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
