package storage

import (
	"fidha/backend/internal/config"
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to one of the SQL backends. TranslateError is enabled so unique
// violations surface as gorm.ErrDuplicatedKey on every dialect.
func Open(backend, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch backend {
	case config.BackendPostgres:
		dialector = postgres.Open(dsn)
	case config.BackendMySQL:
		dialector = mysql.Open(dsn)
	case config.BackendSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", backend)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", backend, err)
	}

	if backend == config.BackendSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// SQLite allows one writer; serialize through a single connection.
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// New builds the Storage selected by cfg. SQL backends are migrated before
// they are returned.
func New(cfg *config.Config) (Storage, error) {
	if cfg.StorageBackend == "" || cfg.StorageBackend == config.BackendMemory {
		log.Println("INFO: Using in-memory storage")
		return NewMemoryStore(), nil
	}

	db, err := Open(cfg.StorageBackend, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	svc := NewStorageService(db)
	if err := svc.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Printf("INFO: Using %s storage", cfg.StorageBackend)
	return svc, nil
}
