// Package utils provides database utilities for archiving cron job history.
//
// This file handles database configuration, connection, and the export of
// history pages into a MySQL or PostgreSQL table.
package utils

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/mehreencs87/sandboxjs/models"
)

// Supported database types
const (
	DBTypePostgres = "postgresql"
	DBTypeMySQL    = "mysql"
)

// DefaultHistoryTable is the table history is exported to when none is set
const DefaultHistoryTable = "webtask_cron_history"

// DBConfig represents the database cron history is exported to
type DBConfig struct {
	DBType string `json:"db_type" yaml:"db_type" mapstructure:"db_type"`
	DSN    string `json:"dsn" yaml:"dsn" mapstructure:"dsn"`
	Table  string `json:"table" yaml:"table" mapstructure:"table"`
}

func driverName(dbType string) (string, error) {
	switch dbType {
	case DBTypePostgres, "postgres":
		return "postgres", nil
	case DBTypeMySQL:
		return "mysql", nil
	}
	return "", fmt.Errorf("unsupported database type %q", dbType)
}

// tableIdent matches a plain or schema-qualified SQL identifier. Table names
// are interpolated into statements, so nothing else is accepted.
var tableIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}(\.[A-Za-z_][A-Za-z0-9_]{0,62})?$`)

func tableName(cfg DBConfig) (string, error) {
	if cfg.Table == "" {
		return DefaultHistoryTable, nil
	}
	if !tableIdent.MatchString(cfg.Table) {
		return "", fmt.Errorf("invalid history table name %q", cfg.Table)
	}
	return cfg.Table, nil
}

// OpenHistoryDB connects to the configured database and verifies the
// connection
func OpenHistoryDB(ctx context.Context, cfg DBConfig) (*sql.DB, error) {
	driver, err := driverName(cfg.DBType)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.DBType, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.DBType, err)
	}
	return db, nil
}

// CreateTableStatement returns the DDL for the history table
func CreateTableStatement(cfg DBConfig) (string, error) {
	if _, err := driverName(cfg.DBType); err != nil {
		return "", err
	}

	table, err := tableName(cfg)
	if err != nil {
		return "", err
	}

	timestamp := "TIMESTAMP"
	if cfg.DBType == DBTypeMySQL {
		timestamp = "DATETIME"
	}

	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	container VARCHAR(255) NOT NULL,
	name VARCHAR(255) NOT NULL,
	type VARCHAR(32),
	status_code INTEGER,
	body TEXT,
	created_at %s NOT NULL,
	scheduled_at %s NULL
)`, table, timestamp, timestamp), nil
}

// InsertStatement returns the parameterized INSERT for one history record,
// using $n placeholders for PostgreSQL and ? for MySQL
func InsertStatement(cfg DBConfig) (string, error) {
	if _, err := driverName(cfg.DBType); err != nil {
		return "", err
	}

	table, err := tableName(cfg)
	if err != nil {
		return "", err
	}

	columns := []string{"container", "name", "type", "status_code", "body", "created_at", "scheduled_at"}
	placeholders := make([]string, len(columns))
	for i := range columns {
		if cfg.DBType == DBTypeMySQL {
			placeholders[i] = "?"
		} else {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", ")), nil
}

// insertArgs flattens a record into InsertStatement's column order. An unset
// scheduled_at is stored as NULL.
func insertArgs(r models.HistoryRecord) []any {
	var scheduledAt any
	if !r.ScheduledAt.IsZero() {
		scheduledAt = r.ScheduledAt.UTC()
	}
	return []any{r.Container, r.Name, r.Type, r.StatusCode, r.Body, r.CreatedAt.UTC(), scheduledAt}
}

// ExportHistory writes records to the history table in one transaction and
// returns how many rows were inserted
func ExportHistory(ctx context.Context, db *sql.DB, cfg DBConfig, records []models.HistoryRecord) (int, error) {
	ddl, err := CreateTableStatement(cfg)
	if err != nil {
		return 0, err
	}
	insert, err := InsertStatement(cfg)
	if err != nil {
		return 0, err
	}

	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return 0, fmt.Errorf("failed to create history table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, insertArgs(r)...); err != nil {
			return 0, fmt.Errorf("failed to insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit history export: %w", err)
	}
	return len(records), nil
}
