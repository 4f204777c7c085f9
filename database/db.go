// Package database owns the catalog's gorm connection and schema migration.
package database

import (
	"errors"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/thucvatbm/species-catalog/config"
	"github.com/thucvatbm/species-catalog/database/model"
	catalogLogger "github.com/thucvatbm/species-catalog/logger"
)

var db *gorm.DB

func initModels() error {
	models := []any{
		&model.Account{},
		&model.Species{},
	}
	for _, m := range models {
		if err := db.AutoMigrate(m); err != nil {
			catalogLogger.Errorf("Error auto migrating model: %v", err)
			return err
		}
	}
	return nil
}

func openDialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Type {
	case config.DatabaseTypeSQLite:
		return sqlite.Open(cfg.DSN + "?cache=shared&_journal_mode=WAL&_synchronous=NORMAL"), nil
	case config.DatabaseTypePostgreSQL:
		return postgres.Open(cfg.DSN), nil
	case config.DatabaseTypeMySQL:
		return mysql.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

// InitDB opens the database described by cfg and migrates the schema.
func InitDB(cfg *config.DatabaseConfig) error {
	if err := cfg.EnsureDirectoryExists(); err != nil {
		return err
	}

	dialector, err := openDialector(cfg)
	if err != nil {
		return err
	}

	var gormLogger logger.Interface
	if config.IsDebug() {
		gormLogger = logger.Default
	} else {
		gormLogger = logger.Discard
	}

	c := &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	}

	conn, err := gorm.Open(dialector, c)
	if err != nil {
		return fmt.Errorf("failed to open %s database: %w", cfg.Type, err)
	}
	db = conn

	if cfg.IsSQLite() {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		for _, pragma := range []string{
			"PRAGMA cache_size = -64000;",
			"PRAGMA temp_store = MEMORY;",
		} {
			if _, err := sqlDB.Exec(pragma); err != nil {
				return err
			}
		}
	}

	return initModels()
}

// InitSQLite is a shortcut for InitDB with a SQLite file.
func InitSQLite(path string) error {
	return InitDB(&config.DatabaseConfig{Type: config.DatabaseTypeSQLite, DSN: path})
}

func CloseDB() error {
	if db == nil {
		return nil
	}
	if db.Dialector.Name() == "sqlite" {
		if err := Checkpoint(); err != nil {
			catalogLogger.Warningf("error executing checkpoint: %v", err)
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	db = nil
	return sqlDB.Close()
}

func GetDB() *gorm.DB {
	return db
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func Checkpoint() error {
	// Update WAL
	return db.Exec("PRAGMA wal_checkpoint;").Error
}
