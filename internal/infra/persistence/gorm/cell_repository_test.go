package gormpersistence_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/domain"
	gormpersistence "github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/infra/persistence/gorm"
	"github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/repository"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "grid.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&gormpersistence.CellRecord{}, &gormpersistence.RevisionRecord{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestGormCellRepository_EmptyTable(t *testing.T) {
	repo := gormpersistence.NewGormCellRepository(openTestDB(t))

	cells, err := repo.FetchAll(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, cells)
	assert.Empty(t, cells)
}

func TestGormCellRepository_ReplaceKeepsOrder(t *testing.T) {
	repo := gormpersistence.NewGormCellRepository(openTestDB(t))
	ctx := context.Background()
	first := []domain.Cell{
		{Row: 0, Col: 0, Color: "#F25022"},
		{Row: 0, Col: 1, Color: "#7FBA00"},
		{Row: 1, Col: 1, Color: "#FFB900"},
		{Row: 1, Col: 0, Color: "#00A4EF"},
	}
	require.NoError(t, repo.ReplaceAll(ctx, first))

	got, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	second := []domain.Cell{{Row: 0, Col: 0, Color: "#e74c3c"}}
	require.NoError(t, repo.ReplaceAll(ctx, second))
	got, err = repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestGormCellRepository_ReplaceWithEmpty(t *testing.T) {
	repo := gormpersistence.NewGormCellRepository(openTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.ReplaceAll(ctx, []domain.Cell{{Row: 0, Col: 0, Color: "#F25022"}}))

	require.NoError(t, repo.ReplaceAll(ctx, []domain.Cell{}))

	got, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGormCellRepository_DuplicateRollsBack(t *testing.T) {
	repo := gormpersistence.NewGormCellRepository(openTestDB(t))
	ctx := context.Background()
	kept := []domain.Cell{{Row: 0, Col: 0, Color: "#F25022"}}
	require.NoError(t, repo.ReplaceAll(ctx, kept))

	err := repo.ReplaceAll(ctx, []domain.Cell{
		{Row: 0, Col: 0, Color: "#F25022"},
		{Row: 0, Col: 0, Color: "#7FBA00"},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)
	got, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, kept, got)
}

func TestGormCellRepository_ReplaceAllAt(t *testing.T) {
	repo := gormpersistence.NewGormCellRepository(openTestDB(t))
	ctx := context.Background()

	rev, err := repo.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rev)

	cells := []domain.Cell{{Row: 0, Col: 0, Color: "#F25022"}}
	require.NoError(t, repo.ReplaceAll(ctx, cells))
	rev, err = repo.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)

	require.NoError(t, repo.ReplaceAllAt(ctx, []domain.Cell{}, rev))
	got, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	err = repo.ReplaceAllAt(ctx, cells, rev)
	assert.ErrorIs(t, err, repository.ErrStaleRevision)
	got, err = repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got, "refused write must leave the table alone")

	rev, err = repo.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)
}
