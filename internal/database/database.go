package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"marketplace/internal/config"
	"marketplace/internal/models"
)

// Open establishes a connection to the configured database. The caller owns the
// returned handle and must Close it on shutdown.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	case "sqlite":
		dialector = sqlite.Open(sqliteDSN(cfg.Path))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, GormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	log.Info("database connection established", zap.String("driver", cfg.Driver))
	return db, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// GormConfig is shared by production connections and test databases
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Error),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	}
}

// Close releases the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Models lists every table owned by the marketplace in migration order
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Category{},
		&models.Listing{},
		&models.Trade{},
		&models.Conversation{},
		&models.Message{},
		&models.Review{},
		&models.Favorite{},
		&models.Dispute{},
		&models.Report{},
	}
}

// indexes gorm tags cannot express. Both postgres and sqlite accept partial indexes.
var indexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_trades_active_triple
		ON trades (listing_id, buyer_id, seller_id)
		WHERE status IN ('initiated', 'payment_pending', 'paid', 'in_progress')`,
	`CREATE INDEX IF NOT EXISTS idx_messages_unread
		ON messages (conversation_id, sender_id)
		WHERE is_read = false`,
}

// AutoMigrate runs automatic migrations for all models and creates the
// partial indexes that back the storage-level invariants
func AutoMigrate(db *gorm.DB) error {
	for _, model := range Models() {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}
	return EnsureIndexes(db)
}

// EnsureIndexes creates the partial indexes if they do not exist
func EnsureIndexes(db *gorm.DB) error {
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
