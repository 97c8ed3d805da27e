package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Cell is one filled square of the grid. Cells are never edited after creation.
type Cell struct {
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	Color string `json:"color"` // hex code, e.g. "#F25022"
}

// Coord returns the (row, col) identity of the cell.
func (c Cell) Coord() Coord {
	return Coord{Row: c.Row, Col: c.Col}
}

// Coord is a (row, col) position on the grid.
type Coord struct {
	Row int
	Col int
}

func (c Coord) String() string {
	return fmt.Sprintf("%d:%d", c.Row, c.Col)
}

// GridState is the authoritative grid value: filled cells in fill order plus the
// current side length. It is replaced as a whole, never edited in place.
type GridState struct {
	Cells     []Cell `json:"cells"`
	Dimension int    `json:"dimension"`
}

// EmptyState is the state at startup and after a clear.
func EmptyState() GridState {
	return GridState{Cells: []Cell{}, Dimension: 1}
}

// StateFromCells rebuilds a state from a persisted cell list. The cells are kept
// verbatim; the dimension is one past the largest row or column seen (1 when empty).
func StateFromCells(cells []Cell) GridState {
	return GridState{Cells: cloneCells(cells), Dimension: DimensionFor(cells)}
}

// DimensionFor returns max(0, max row, max col) + 1 over cells.
func DimensionFor(cells []Cell) int {
	largest := 0
	for _, c := range cells {
		if c.Row > largest {
			largest = c.Row
		}
		if c.Col > largest {
			largest = c.Col
		}
	}
	return largest + 1
}

// Clone returns a deep copy so callers cannot alias the store's slice.
func (s GridState) Clone() GridState {
	return GridState{Cells: cloneCells(s.Cells), Dimension: s.Dimension}
}

// Equal reports whether both states hold the same cells in the same order at the same dimension.
func (s GridState) Equal(other GridState) bool {
	if s.Dimension != other.Dimension || len(s.Cells) != len(other.Cells) {
		return false
	}
	for i := range s.Cells {
		if s.Cells[i] != other.Cells[i] {
			return false
		}
	}
	return true
}

// With returns the candidate state produced by appending cell at dimension.
func (s GridState) With(cell Cell, dimension int) GridState {
	cells := make([]Cell, 0, len(s.Cells)+1)
	cells = append(cells, s.Cells...)
	cells = append(cells, cell)
	return GridState{Cells: cells, Dimension: dimension}
}

// LastColor is the color of the most recently filled cell, or "" for an empty grid.
func (s GridState) LastColor() string {
	if len(s.Cells) == 0 {
		return ""
	}
	return s.Cells[len(s.Cells)-1].Color
}

// Filled returns the set of occupied coordinates.
func (s GridState) Filled() map[Coord]struct{} {
	filled := make(map[Coord]struct{}, len(s.Cells))
	for _, c := range s.Cells {
		filled[c.Coord()] = struct{}{}
	}
	return filled
}

var (
	ErrNegativeCoord  = errors.New("cell coordinate is negative")
	ErrDuplicateCoord = errors.New("duplicate cell coordinate")
	ErrMissingColor   = errors.New("cell color is empty")
)

// ValidateCells checks a list submitted for persistence.
func ValidateCells(cells []Cell) error {
	seen := make(map[Coord]struct{}, len(cells))
	for i, c := range cells {
		if c.Row < 0 || c.Col < 0 {
			return fmt.Errorf("cell %d (%s): %w", i, c.Coord(), ErrNegativeCoord)
		}
		if strings.TrimSpace(c.Color) == "" {
			return fmt.Errorf("cell %d (%s): %w", i, c.Coord(), ErrMissingColor)
		}
		if _, dup := seen[c.Coord()]; dup {
			return fmt.Errorf("cell %d (%s): %w", i, c.Coord(), ErrDuplicateCoord)
		}
		seen[c.Coord()] = struct{}{}
	}
	return nil
}

func cloneCells(cells []Cell) []Cell {
	out := make([]Cell, len(cells))
	copy(out, cells)
	return out
}
