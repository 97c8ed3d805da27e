package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	gormpersistence "github.com/WizardWorks-AntagningsProv/QuarterSpiralUI/internal/infra/persistence/gorm"
)

// MigrateDB creates or updates the grid_cells and grid_revisions tables.
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}
	if err := db.AutoMigrate(&gormpersistence.CellRecord{}, &gormpersistence.RevisionRecord{}); err != nil {
		logrus.Errorf("Failed to auto-migrate grid tables: %v", err)
		return fmt.Errorf("failed to auto-migrate tables: %w", err)
	}
	logrus.Info("Database migration completed successfully")
	return nil
}
