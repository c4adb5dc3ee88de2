// Copyright 2025 SAP SE
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/cobaltcore-dev/consolidator/internal/conf"
	"github.com/dlmiddlecote/sqlstats"
	"github.com/go-gorp/gorp"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
)

// Table is implemented by every struct persisted through DB, following this
// codebase family's gorp convention of naming the destination table on the
// model itself.
type Table interface {
	TableName() string
}

// DB wraps gorp.DbMap with the connection liveness and select-duration
// metrics this codebase family always wires around a database connection.
type DB struct {
	*gorp.DbMap
	conf conf.DBConfig
	mon  monitor
}

// NewPostgresDB opens a Postgres connection, retrying until it is reachable
// or the configured retry budget is exhausted.
func NewPostgresDB(c conf.DBConfig, registry *prometheus.Registry) (*DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
	sqlDB, err := connectWithRetry("postgres", dsn, c.Reconnect)
	if err != nil {
		return nil, err
	}
	return newDB(sqlDB, gorp.PostgresDialect{}, c, registry), nil
}

// NewSQLiteDB opens a SQLite connection at the given path (or ":memory:"
// for tests), used both for local/dev runs and for the history-store test
// suite's in-memory harness.
func NewSQLiteDB(path string, registry *prometheus.Registry) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	return newDB(sqlDB, gorp.SqliteDialect{}, conf.DBConfig{Driver: "sqlite3", Database: path}, registry), nil
}

func newDB(sqlDB *sql.DB, dialect gorp.Dialect, c conf.DBConfig, registry *prometheus.Registry) *DB {
	dbMap := &gorp.DbMap{Db: sqlDB, Dialect: dialect}
	mon := newMonitor(c)
	if registry != nil {
		registry.MustRegister(&mon)
		registry.MustRegister(sqlstats.NewStatsCollector(c.Database, sqlDB))
	}
	return &DB{DbMap: dbMap, conf: c, mon: mon}
}

func connectWithRetry(driver, dsn string, r conf.DBReconnectConfig) (*sql.DB, error) {
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	maxRetries := r.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 10
	}
	retryInterval := time.Duration(r.RetryIntervalSeconds) * time.Second
	if retryInterval <= 0 {
		retryInterval = time.Second
	}
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if lastErr = sqlDB.Ping(); lastErr == nil {
			return sqlDB, nil
		}
		slog.Error("failed to connect to database, retrying", "error", lastErr, "attempt", i+1)
		time.Sleep(retryInterval)
	}
	return nil, fmt.Errorf("giving up connecting to database: %w", lastErr)
}

// AddTable registers t's struct type against its own TableName().
func (d *DB) AddTable(t Table) *gorp.TableMap {
	return d.AddTableWithName(t, t.TableName())
}

// CreateTable creates each table if it does not already exist.
func (d *DB) CreateTable(tables ...*gorp.TableMap) error {
	tx, err := d.Begin()
	if err != nil {
		return err
	}
	for _, t := range tables {
		if _, err := tx.Exec(t.SqlForCreate(true)); err != nil {
			return tx.Rollback()
		}
	}
	return tx.Commit()
}

// SelectTimed runs a gorp Select, recording its duration against group in
// the select-duration histogram.
func (d *DB) SelectTimed(group string, dest any, query string, args ...any) ([]any, error) {
	start := time.Now()
	rows, err := d.Select(dest, query, args...)
	d.mon.selectTimer.WithLabelValues(group).Observe(time.Since(start).Seconds())
	return rows, err
}

func (d *DB) Close() error {
	return d.DbMap.Db.Close()
}

// CheckLivenessPeriodically pings the database on the configured interval
// until ctx is done, logging (rather than panicking) on a failed ping — a
// transient DB outage should not take the consolidation loop down with it.
func (d *DB) CheckLivenessPeriodically(ctx context.Context) {
	interval := time.Duration(d.conf.Reconnect.LivenessPingIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.DbMap.Db.Ping(); err != nil {
				slog.Error("database liveness check failed", "error", err)
			}
		}
	}
}
