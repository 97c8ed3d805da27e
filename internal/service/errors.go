package service

import (
	"errors"
	"fmt"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/repository"
)

var (
	ErrPersistFailed    = errors.New("could not save grid to the store")
	ErrPersistTimeout   = errors.New("grid store did not answer in time")
	ErrSuperseded       = errors.New("grid was reloaded or cleared while the cell was being saved")
	ErrInvalidCells     = errors.New("invalid cell list")
	ErrStoreUnavailable = errors.New("grid store unavailable")
	ErrInternalServer   = errors.New("internal server error")
)

// mapRepoError translates repository failures into service errors.
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, repository.ErrDuplicateEntry):
		return fmt.Errorf("%w: %w", ErrInvalidCells, err)
	case errors.Is(err, repository.ErrTransport),
		errors.Is(err, repository.ErrMalformedResponse),
		errors.Is(err, ErrPersistTimeout):
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%w: %w", ErrInternalServer, err)
}
