package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Akshit568/Robot-Navigation-System/logging"
	"github.com/Akshit568/Robot-Navigation-System/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSQLiteDSN keeps the run log in memory for the life of the process.
const DefaultSQLiteDSN = "file::memory:?cache=shared"

// MySQLConfig carries the individual MYSQL_* settings used when no DSN is given.
type MySQLConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

func (c MySQLConfig) DSN() string {
	port := c.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, port, c.Database)
}

// DatabaseConfig selects the run log backend.
type DatabaseConfig struct {
	Driver string // sqlite | mysql | none
	DSN    string
	MySQL  MySQLConfig
}

// OpenDatabase connects the run log store and migrates its tables. Driver
// "none" returns a nil DB, which disables the run log.
func OpenDatabase(cfg DatabaseConfig, log logging.Logger) (*gorm.DB, error) {
	if log == nil {
		log = logging.Noop()
	}
	ctx := context.Background()

	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Driver) {
	case "none":
		log.Info(ctx, "run log disabled")
		return nil, nil
	case "mysql":
		dsn := cfg.DSN
		if dsn == "" {
			if cfg.MySQL.Host == "" || cfg.MySQL.User == "" || cfg.MySQL.Database == "" {
				return nil, fmt.Errorf("mysql needs DB_DSN or MYSQL_HOST, MYSQL_USER, MYSQL_DATABASE: %w", ErrInvalidConfig)
			}
			dsn = cfg.MySQL.DSN()
		}
		dialector = mysql.Open(dsn)
	case "sqlite", "":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = DefaultSQLiteDSN
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("database driver %q: %w", cfg.Driver, ErrInvalidConfig)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialector.Name(), err)
	}

	if err := db.AutoMigrate(&models.RunLog{}, &models.RunResult{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info(ctx, "run log database ready", logging.String("driver", dialector.Name()))
	return db, nil
}
