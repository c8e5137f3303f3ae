package gormstore

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vsinha/mfgplan/pkg/infrastructure/config"
)

// Repositories groups the gorm-backed stores
type Repositories struct {
	BOMs     *BOMStore
	Capacity *CapacityStore
	Runs     *RunStore
}

// NewRepositories wraps an open database
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		BOMs:     NewBOMStore(db),
		Capacity: NewCapacityStore(db),
		Runs:     NewRunStore(db),
	}
}

// Open connects to postgres and migrates the planning tables
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate planning tables: %w", err)
	}
	return db, nil
}
