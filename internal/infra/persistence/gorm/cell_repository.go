package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/domain"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/repository"
)

// CellRecord is the table row behind one persisted cell. Position keeps fill order.
type CellRecord struct {
	ID       uint   `gorm:"primaryKey"`
	Position int    `gorm:"index;not null"`
	Row      int    `gorm:"column:grid_row;uniqueIndex:idx_cell_coord;not null"`
	Col      int    `gorm:"column:grid_col;uniqueIndex:idx_cell_coord;not null"`
	Color    string `gorm:"size:32;not null"`
}

func (CellRecord) TableName() string { return "grid_cells" }

// RevisionRecord is the single-row write counter for grid_cells.
type RevisionRecord struct {
	ID       uint  `gorm:"primaryKey;autoIncrement:false"`
	Revision int64 `gorm:"not null;default:0"`
}

func (RevisionRecord) TableName() string { return "grid_revisions" }

const revisionRowID = 1

// GormCellRepository is the CellRepository backed by a SQL database through GORM.
type GormCellRepository struct {
	db *gorm.DB
}

func NewGormCellRepository(db *gorm.DB) *GormCellRepository {
	if db == nil {
		panic("database connection cannot be nil for GormCellRepository")
	}
	return &GormCellRepository{db: db}
}

// FetchAll reads every cell ordered by fill position.
func (r *GormCellRepository) FetchAll(ctx context.Context) ([]domain.Cell, error) {
	var records []CellRecord
	if err := r.db.WithContext(ctx).Order("position ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("gorm: fetch grid cells: %v: %w", err, repository.ErrTransport)
	}
	cells := make([]domain.Cell, 0, len(records))
	for _, rec := range records {
		cells = append(cells, domain.Cell{Row: rec.Row, Col: rec.Col, Color: rec.Color})
	}
	return cells, nil
}

// ReplaceAll swaps the table contents and bumps the revision inside one transaction.
func (r *GormCellRepository) ReplaceAll(ctx context.Context, cells []domain.Cell) error {
	return r.replace(ctx, cells, nil)
}

// ReplaceAllAt is ReplaceAll that only applies while the revision still equals
// revision. The conditional UPDATE holds the row lock for the rest of the
// transaction, so a concurrent ReplaceAll cannot slip in between.
func (r *GormCellRepository) ReplaceAllAt(ctx context.Context, cells []domain.Cell, revision int64) error {
	return r.replace(ctx, cells, &revision)
}

// Revision returns how many times the list has been replaced.
func (r *GormCellRepository) Revision(ctx context.Context) (int64, error) {
	var rec RevisionRecord
	err := r.db.WithContext(ctx).Limit(1).Find(&rec, revisionRowID).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: read grid revision: %v: %w", err, repository.ErrTransport)
	}
	return rec.Revision, nil
}

func (r *GormCellRepository) replace(ctx context.Context, cells []domain.Cell, expected *int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bumpRevision(tx, expected); err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&CellRecord{}).Error; err != nil {
			return err
		}
		if len(cells) == 0 {
			return nil
		}
		records := make([]CellRecord, len(cells))
		for i, c := range cells {
			records[i] = CellRecord{Position: i, Row: c.Row, Col: c.Col, Color: c.Color}
		}
		return tx.CreateInBatches(records, 200).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleRevision):
			return err
		case isDuplicateEntry(err):
			return fmt.Errorf("gorm: replace grid cells: %v: %w", err, repository.ErrDuplicateEntry)
		}
		return fmt.Errorf("gorm: replace grid cells (%d): %v: %w", len(cells), err, repository.ErrTransport)
	}
	return nil
}

func bumpRevision(tx *gorm.DB, expected *int64) error {
	rec := RevisionRecord{ID: revisionRowID}
	if err := tx.FirstOrCreate(&rec, RevisionRecord{ID: revisionRowID}).Error; err != nil {
		return err
	}
	q := tx.Model(&RevisionRecord{}).Where("id = ?", revisionRowID)
	if expected != nil {
		q = q.Where("revision = ?", *expected)
	}
	res := q.UpdateColumn("revision", gorm.Expr("revision + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if expected != nil && res.RowsAffected == 0 {
		return fmt.Errorf("gorm: grid revision moved past %d: %w", *expected, repository.ErrStaleRevision)
	}
	return nil
}

func isDuplicateEntry(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	// sqlite without TranslateError
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
