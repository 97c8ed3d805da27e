package tui

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/domain"
)

// gridFile is the on-disk snapshot written by `gridtui export`.
type gridFile struct {
	Dimension int        `toml:"dimension"`
	Cells     []cellLine `toml:"cells"`
}

type cellLine struct {
	Row   int    `toml:"row"`
	Col   int    `toml:"col"`
	Color string `toml:"color"`
}

// ExportTOML writes state as a TOML document with one [[cells]] table per cell.
func ExportTOML(w io.Writer, state domain.GridState) error {
	file := gridFile{Dimension: state.Dimension, Cells: make([]cellLine, 0, len(state.Cells))}
	for _, c := range state.Cells {
		file.Cells = append(file.Cells, cellLine{Row: c.Row, Col: c.Col, Color: c.Color})
	}
	if err := toml.NewEncoder(w).Encode(file); err != nil {
		return fmt.Errorf("encode grid: %w", err)
	}
	return nil
}

// ImportTOML reads a snapshot written by ExportTOML and validates its cells.
// The stored dimension is informational; it is recomputed from the cells.
func ImportTOML(r io.Reader) ([]domain.Cell, error) {
	var file gridFile
	if _, err := toml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode grid: %w", err)
	}
	cells := make([]domain.Cell, 0, len(file.Cells))
	for _, c := range file.Cells {
		cells = append(cells, domain.Cell{Row: c.Row, Col: c.Col, Color: c.Color})
	}
	if err := domain.ValidateCells(cells); err != nil {
		return nil, err
	}
	return cells, nil
}

// ExportFile writes state to path. A failed close counts as a failed export,
// since buffered data may not have reached the disk.
func ExportFile(path string, state domain.GridState) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close %s: %w", path, cerr))
		}
	}()
	return ExportTOML(f, state)
}

// ImportFile reads the cells stored at path by ExportFile.
func ImportFile(path string) ([]domain.Cell, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ImportTOML(f)
}
