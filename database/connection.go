// database/connection.go
package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/nycenv/aqingest/config"
	"github.com/nycenv/aqingest/logger"
)

// Connect opens the database connection pool and verifies it with a ping.
// Callers own the returned handle; stores receive it explicitly rather than
// reading a package-level connection.
func Connect(cfg config.DatabaseConfig) (*sql.DB, error) {
	// DSN: username:password@protocol(address)/dbname?param=value
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
	)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Log.Infof("Connected to database %s on %s:%s", cfg.DBName, cfg.Host, cfg.Port)
	return db, nil
}

// Close closes the connection pool. Typically deferred in main.
func Close(db *sql.DB) {
	if db != nil {
		db.Close()
		logger.Log.Info("Database connection closed")
	}
}
