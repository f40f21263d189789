package migration

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"regexp"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"rtp/internal/config"
)

var databaseName = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

// DatabaseManager creates one MySQL test database per worker
type DatabaseManager struct {
	config *config.Config
}

// NewDatabaseManager creates a new DatabaseManager
func NewDatabaseManager(cfg *config.Config) *DatabaseManager {
	return &DatabaseManager{config: cfg}
}

// DSN returns the server connection string built from the project .env,
// falling back to the process environment and then to local defaults.
func (dm *DatabaseManager) DSN() string {
	vars, err := godotenv.Read(dm.config.GetEnvPath())
	if err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", dm.config.GetEnvPath()).Msg("Failed to read .env")
	}
	get := func(key, fallback string) string {
		if v := vars[key]; v != "" {
			return v
		}
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	cfg := mysql.NewConfig()
	cfg.User = get("DB_USERNAME", "root")
	cfg.Passwd = get("DB_PASSWORD", "")
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(get("DB_HOST", "127.0.0.1"), get("DB_PORT", "3306"))
	return cfg.FormatDSN()
}

// EnsureDatabases creates the missing worker databases and returns the ids
// of the workers that have one.
func (dm *DatabaseManager) EnsureDatabases(ctx context.Context, workerCount int) ([]int, error) {
	db, err := sql.Open("mysql", dm.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database server: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database server: %w", err)
	}

	workers := make([]int, 0, workerCount)
	for i := 1; i <= workerCount; i++ {
		name := dm.config.GetDatabaseName(i)
		if !IsValidDatabaseName(name) {
			return nil, fmt.Errorf("invalid database name: %s", name)
		}

		var exists bool
		query := "SELECT EXISTS(SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?)"
		if err := db.QueryRowContext(ctx, query, name).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check database %s: %w", name, err)
		}
		if !exists {
			if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", name)); err != nil {
				return nil, fmt.Errorf("failed to create database %s: %w", name, err)
			}
			log.Info().Str("database", name).Msg("Created test database")
		}
		workers = append(workers, i)
	}
	return workers, nil
}

// IsValidDatabaseName reports whether name can be used unquoted in DDL
func IsValidDatabaseName(name string) bool {
	return databaseName.MatchString(name)
}
