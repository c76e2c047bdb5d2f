package database

import (
	"fmt"
	"strings"

	"github.com/akolanti/landbot/internal/config"
	"github.com/akolanti/landbot/internal/domain/chatModel"
	"github.com/akolanti/landbot/pkg/logger_i"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Driver string // postgres, sqlite
	DSN    string
	Debug  bool
}

// Open connects through GORM and migrates the chat log tables.
func Open(cfg Config) (*gorm.DB, error) {
	log := logger_i.NewLogger("Database")

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.New(postgres.Config{
			DSN:                  cfg.DSN,
			PreferSimpleProtocol: true,
		})
	case "sqlite":
		dialector = sqlite.Open(sqliteDSN(cfg.DSN))
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	logLevel := logger.Warn
	if cfg.Debug {
		logLevel = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// one writer at a time, sqlite locks the whole file
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(config.DBMaxIdleConns)
		sqlDB.SetMaxOpenConns(config.DBMaxOpenConns)
		sqlDB.SetConnMaxLifetime(config.DBConnMaxLifetime)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("Database ready", "driver", cfg.Driver)
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&chatModel.Conversation{}, &chatModel.Message{}); err != nil {
		return fmt.Errorf("failed to migrate chat tables: %w", err)
	}
	return nil
}

// sqliteDSN turns foreign keys on so message rows cascade with their conversation.
func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = config.DefaultDatabaseDSN
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
