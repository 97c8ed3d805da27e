package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/domain"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/repository"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/repository/mocks"
)

func TestBackgroundWriter_OutlivesCallerContext(t *testing.T) {
	repo := mocks.NewCellRepository(t)
	repo.On("ReplaceAll", mock.Anything, []domain.Cell{}).Return(nil).Once()

	done := make(chan error, 1)
	w := NewBackgroundWriter(repo, time.Second)
	w.done = func(err error) { done <- err }

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Submit(ctx, GridWrite{Cells: []domain.Cell{}}))
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("background write never ran")
	}
}

func TestBackgroundWriter_FailureIsSwallowed(t *testing.T) {
	repo := mocks.NewCellRepository(t)
	repo.On("ReplaceAll", mock.Anything, mock.Anything).Return(repository.ErrTransport).Once()

	done := make(chan error, 1)
	w := NewBackgroundWriter(repo, time.Second)
	w.done = func(err error) { done <- err }

	require.NoError(t, w.Submit(context.Background(), GridWrite{}))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, repository.ErrTransport)
	case <-time.After(2 * time.Second):
		t.Fatal("background write never ran")
	}
}

func TestBackgroundWriter_WaitDrainsSubmittedWrites(t *testing.T) {
	repo := mocks.NewCellRepository(t)
	release := make(chan struct{})
	repo.On("ReplaceAll", mock.Anything, []domain.Cell{}).
		Run(func(mock.Arguments) { <-release }).
		Return(nil).Once()

	w := NewBackgroundWriter(repo, time.Second)
	require.NoError(t, w.Submit(context.Background(), GridWrite{Cells: []domain.Cell{}}))

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.Wait(short), context.DeadlineExceeded, "write is still blocked")

	close(release)
	require.NoError(t, w.Wait(context.Background()))
	repo.AssertExpectations(t)
}

func TestBackgroundWriter_WaitWithNothingSubmitted(t *testing.T) {
	w := NewBackgroundWriter(mocks.NewCellRepository(t), time.Second)

	assert.NoError(t, w.Wait(context.Background()))
}

func TestNewGridStore_DefaultWriterPersistsClear(t *testing.T) {
	repo := mocks.NewCellRepository(t)
	written := make(chan []domain.Cell, 1)
	repo.On("ReplaceAll", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { written <- args.Get(1).([]domain.Cell) }).
		Return(nil).Once()

	store := NewGridStore(repo)
	store.Clear(context.Background())

	select {
	case cells := <-written:
		assert.Empty(t, cells)
	case <-time.After(2 * time.Second):
		t.Fatal("clear was never persisted")
	}
}

func TestMapRepoError(t *testing.T) {
	assert.Nil(t, mapRepoError(nil))
	assert.ErrorIs(t, mapRepoError(repository.ErrTransport), ErrStoreUnavailable)
	assert.ErrorIs(t, mapRepoError(repository.ErrMalformedResponse), ErrStoreUnavailable)
	assert.ErrorIs(t, mapRepoError(repository.ErrDuplicateEntry), ErrInvalidCells)
	assert.ErrorIs(t, mapRepoError(assert.AnError), ErrInternalServer)
}
