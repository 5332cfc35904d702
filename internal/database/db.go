package database

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/model"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// NewConnection opens the order store with GORM and migrates its tables.
// For postgres, dbName fills in the database when the url carries none.
func NewConnection(driver, dsn, dbName string, logger *zap.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case DriverPostgres, "":
		if dsn == "" {
			return nil, fmt.Errorf("database connection url is required (set DB_CONNECTION_URL or an environment-specific key)")
		}
		dialector = postgres.Open(withDatabase(dsn, dbName))
	case DriverSQLite:
		if dsn == "" {
			dsn = "file::memory:"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		// range queries on created_at expect UTC
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	if dialector.Name() == DriverSQLite {
		// one connection, so an in-memory database is shared by every query
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.OrderDocument{},
		&model.AuditLog{},
	)
	if err != nil {
		logger.Warn("failed to auto-migrate models", zap.Error(err))
	}

	return db, nil
}

func withDatabase(dsn, dbName string) string {
	if dbName == "" {
		return dsn
	}
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return dsn
	}
	if strings.Trim(u.Path, "/") != "" {
		return dsn
	}
	u.Path = "/" + dbName
	return u.String()
}
