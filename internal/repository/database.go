package repository

import (
	"strings"

	"github.com/ilker/tracker-server/internal/config"
	"github.com/ilker/tracker-server/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDatabase(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(withForeignKeys(cfg.SQLitePath)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// Auto migrate
	err = db.AutoMigrate(
		&models.User{},
		&models.Device{},
		&models.Event{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// withForeignKeys turns on FK enforcement for every pooled connection;
// the cascade rules on events depend on it.
func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}
