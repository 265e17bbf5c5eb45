// Package db opens the local sqlite store of the agent.
package db

import (
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/crm-portal/portal-agent/internal/config"
	"github.com/crm-portal/portal-agent/internal/db/dsn"
	"github.com/crm-portal/portal-agent/internal/db/models"
)

// Open opens the database configured in cfg and migrates the schema.
func Open(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DB.Path != "" && cfg.DB.Path != dsn.MemoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.DB.Path), 0o750); err != nil {
			return nil, errors.Wrap(err, "create database directory")
		}
	}

	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}
	if cfg.DevMode {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	db, err := gorm.Open(sqlite.Open(dsn.Create(cfg)), gormCfg)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	if err = db.AutoMigrate(&models.CallRecord{}); err != nil {
		return nil, errors.Wrap(err, "migrate database")
	}

	return db, nil
}
