package migration

import (
	"github.com/secforge/billing/internal/infrastructure/persistence/models"
)

// AutoMigrateModels lists the models GORM AutoMigrate creates in development.
func AutoMigrateModels() []interface{} {
	return models.All()
}
