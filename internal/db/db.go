package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sujalbistaa/crown/internal/logging"
	"github.com/sujalbistaa/crown/internal/models"
)

// Open returns a GORM connection for a DATABASE_URL of the form
// "postgres://..." or "sqlite://<path>". An empty URL means sqlite://crown.db.
func Open(dbURL string) (*gorm.DB, error) {
	log := logging.GetLogger("db")

	if dbURL == "" {
		dbURL = "sqlite://crown.db"
		log.Info("DATABASE_URL not set, defaulting to sqlite://crown.db")
	}

	var (
		dialector gorm.Dialector
		isSQLite  bool
	)

	switch {
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		dialector = postgres.Open(dbURL)
		log.Info("connecting to postgres")
	case strings.HasPrefix(dbURL, "sqlite://"):
		dsn := strings.TrimPrefix(dbURL, "sqlite://")
		dialector = sqlite.Open(dsn)
		isSQLite = true
		log.Info("connecting to sqlite", "path", dsn)
	default:
		return nil, fmt.Errorf("invalid DATABASE_URL %q: must start with postgres:// or sqlite://", dbURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}

	if isSQLite {
		// SQLite allows a single writer; one connection also keeps :memory: databases alive.
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
			return nil, fmt.Errorf("set busy timeout: %w", err)
		}
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	log.Info("database connection established")

	return db, nil
}

// Migrate creates or updates every table the site uses.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Post{}, &models.Session{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}
