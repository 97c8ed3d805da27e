package repository

import (
	"context"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/domain"
)

// CellRepository is the persistence collaborator of the grid: it stores one flat,
// insertion-ordered list of filled cells and swaps it out as a whole.
type CellRepository interface {
	// FetchAll returns the full persisted cell list (empty, never nil, when nothing is stored).
	FetchAll(ctx context.Context) ([]domain.Cell, error)

	// ReplaceAll atomically replaces the persisted list with cells.
	ReplaceAll(ctx context.Context, cells []domain.Cell) error
}

// RevisionedRepository is implemented by stores that count their writes. Deferred
// writes use it so a write issued against an older revision never lands on top of
// a newer one.
type RevisionedRepository interface {
	CellRepository

	// Revision returns how many times the list has been replaced.
	Revision(ctx context.Context) (int64, error)

	// ReplaceAllAt replaces the list only if the stored revision still equals
	// revision, and fails with ErrStaleRevision otherwise.
	ReplaceAllAt(ctx context.Context, cells []domain.Cell, revision int64) error
}
