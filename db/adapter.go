// Package db opens the audit database.
package db

import (
	"fmt"

	"github.com/kasuganosora/charsheet/config"
	dbmysql "github.com/kasuganosora/charsheet/db/mysql"
	dbsqlite "github.com/kasuganosora/charsheet/db/sqlite"
	"github.com/kasuganosora/charsheet/model"
	"gorm.io/gorm"
)

const (
	ModeSQLite = "sqlite"
	ModeMySQL  = "mysql"
)

// Open returns a *gorm.DB for the configured database mode.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Mode {
	case ModeSQLite, "":
		return dbsqlite.Open(cfg.SQLitePath)
	case ModeMySQL:
		return dbmysql.Open(cfg.MySQLDSN, cfg.MySQLMaxOpen, cfg.MySQLMaxIdle, cfg.MySQLMaxLife)
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}

// OpenAndMigrate opens the database and creates the audit tables.
func OpenAndMigrate(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gdb, err := Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", cfg.Mode, err)
	}
	if err := model.AutoMigrate(gdb); err != nil {
		return nil, fmt.Errorf("db: migrate: %w", err)
	}
	return gdb, nil
}
