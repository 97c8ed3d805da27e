package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/domain"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/repository"
)

// CellService exposes the raw persisted list to remote grid clients.
type CellService struct {
	repo     repository.CellRepository
	listener StateListener
	timeout  time.Duration
}

func NewCellService(repo repository.CellRepository, listener StateListener, timeout time.Duration) *CellService {
	if repo == nil {
		panic("CellRepository cannot be nil for CellService")
	}
	return &CellService{repo: repo, listener: listener, timeout: timeout}
}

// List returns the persisted cells in fill order.
func (s *CellService) List(ctx context.Context) ([]domain.Cell, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	cells, err := s.repo.FetchAll(ctx)
	if err != nil {
		logrus.WithError(err).Error("CellService.List: repository error")
		return nil, mapRepoError(err)
	}
	if cells == nil {
		cells = []domain.Cell{}
	}
	return cells, nil
}

// Replace validates and stores cells as the new persisted list.
func (s *CellService) Replace(ctx context.Context, cells []domain.Cell) error {
	logCtx := logrus.WithField("cells", len(cells))
	if err := domain.ValidateCells(cells); err != nil {
		logCtx.WithError(err).Warn("CellService.Replace: rejected cell list")
		return fmt.Errorf("%w: %w", ErrInvalidCells, err)
	}
	if err := replaceWithTimeout(ctx, s.repo, cells, s.timeout); err != nil {
		logCtx.WithError(err).Error("CellService.Replace: repository error")
		return mapRepoError(err)
	}
	logCtx.Info("Grid replaced")
	if s.listener != nil {
		s.listener.GridChanged(domain.StateFromCells(cells))
	}
	return nil
}

// Snapshot returns the persisted list as a grid state, dimension derived from the cells.
func (s *CellService) Snapshot(ctx context.Context) (domain.GridState, error) {
	cells, err := s.List(ctx)
	if err != nil {
		return domain.GridState{}, err
	}
	return domain.StateFromCells(cells), nil
}
