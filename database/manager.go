/*
 * Copyright 2026 the notarystore authors.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

type defaultManager struct {
	config          *Config
	db              *bun.DB
	sqlDB           *sql.DB
	logger          Logger
	mu              sync.RWMutex
	connected       bool
	closed          bool
	lastError       error
	lastHealthCheck time.Time
	healthStatus    *HealthStatus
	reconnectTries  int
	stopHealthCheck chan struct{} // closed on Disconnect; nil when no loop is running
}

// NewManager returns a Manager backed by Bun. If cfg is nil a default
// configuration is used; Connect must still be called before use.
func NewManager(cfg *Config) Manager {
	if cfg == nil {
		cfg = &Config{Connection: *DefaultConnectionConfig()}
	}
	return &defaultManager{
		config:       cfg,
		healthStatus: &HealthStatus{},
	}
}

// Connect opens the pool and verifies connectivity. Calling Connect on
// a disconnected manager deliberately starts a new lifecycle; only the
// background health loop is barred from reopening a closed manager.
func (dm *defaultManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.connectLocked(ctx)
}

func (dm *defaultManager) connectLocked(ctx context.Context) error {
	if dm.connected && dm.db != nil {
		return nil
	}

	if err := validateConnectionConfig(&dm.config.Connection); err != nil {
		dm.lastError = err
		return err
	}

	var err error
	dm.sqlDB, dm.db, err = dm.createConnection()
	if err != nil {
		dm.lastError = err
		return fmt.Errorf("failed to create database connection: %w", err)
	}

	dm.configureConnectionPool()

	ctxTimeout, cancel := context.WithTimeout(ctx, dm.config.Connection.ConnectTimeout)
	defer cancel()

	if err := dm.db.PingContext(ctxTimeout); err != nil {
		dm.lastError = err
		return fmt.Errorf("database connection test failed: %w", err)
	}

	dm.connected = true
	dm.closed = false
	dm.lastError = nil
	dm.reconnectTries = 0

	if dm.config.Connection.HealthCheckInterval > 0 {
		dm.stopHealthCheck = make(chan struct{})
		dm.startHealthCheck(dm.stopHealthCheck)
	}

	if dm.logger != nil {
		dm.logger.Info("Database connected",
			"type", dm.config.Connection.Type,
			"host", dm.config.Connection.Host,
			"pool_size", dm.config.Connection.PoolSize,
			"max_overflow", dm.config.Connection.MaxOverflow,
		)
	}
	return nil
}

func validateConnectionConfig(cc *ConnectionConfig) error {
	switch cc.Type {
	case "postgres", "postgresql", "mysql", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("%w: unsupported database type: %q", ErrInvalidConfig, cc.Type)
	}
	if cc.Type != "sqlite" && cc.Type != "sqlite3" {
		if cc.Host == "" {
			return fmt.Errorf("%w: host is required for %s", ErrInvalidConfig, cc.Type)
		}
		if cc.Port <= 0 || cc.Port > 65535 {
			return fmt.Errorf("%w: invalid port %d", ErrInvalidConfig, cc.Port)
		}
	}
	if cc.DBName == "" {
		return fmt.Errorf("%w: database name is required", ErrInvalidConfig)
	}
	if cc.PoolSize < 0 || cc.MaxOverflow < 0 {
		return fmt.Errorf("%w: pool size and max overflow must be non-negative", ErrInvalidConfig)
	}
	if cc.ConnectTimeout <= 0 {
		cc.ConnectTimeout = time.Second * 30
	}
	if cc.AcquireTimeout <= 0 {
		cc.AcquireTimeout = time.Second * 30
	}
	return nil
}

func (dm *defaultManager) createConnection() (*sql.DB, *bun.DB, error) {
	var sqlDB *sql.DB
	var db *bun.DB
	var err error

	switch dm.config.Connection.Type {
	case "mysql":
		sqlDB, db, err = dm.createMySQLConnection()
	case "postgres", "postgresql":
		sqlDB, db, err = dm.createPostgreSQLConnection()
	case "sqlite", "sqlite3":
		sqlDB, db, err = dm.createSQLiteConnection()
	}
	if err != nil {
		return nil, nil, err
	}

	db.AddQueryHook(NewQueryHook(dm.config.Connection.Echo, false))
	// BUNDEBUG=1/2 enables bun's own verbose hook on top of the echo hook.
	db.AddQueryHook(bundebug.NewQueryHook(bundebug.FromEnv("BUNDEBUG")))

	if dm.config.Connection.SlowQueryTime > 0 {
		db.AddQueryHook(NewSlowQueryHook(dm.config.Connection.SlowQueryTime, dm.logger))
	}

	return sqlDB, db, nil
}

func (dm *defaultManager) createMySQLConnection() (*sql.DB, *bun.DB, error) {
	cc := dm.config.Connection
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%s&readTimeout=%s&writeTimeout=%s",
		cc.Username,
		cc.Password,
		cc.Host,
		cc.Port,
		cc.DBName,
		cc.ConnectTimeout,
		cc.ReadTimeout,
		cc.WriteTimeout,
	)

	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, nil, err
	}

	return sqlDB, bun.NewDB(sqlDB, mysqldialect.New()), nil
}

func (dm *defaultManager) createPostgreSQLConnection() (*sql.DB, *bun.DB, error) {
	cc := dm.config.Connection
	sslMode := cc.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=%d",
		cc.Username,
		cc.Password,
		cc.Host,
		cc.Port,
		cc.DBName,
		sslMode,
		int(cc.ConnectTimeout.Seconds()),
	)

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, err
	}

	return sqlDB, bun.NewDB(sqlDB, pgdialect.New()), nil
}

func (dm *defaultManager) createSQLiteConnection() (*sql.DB, *bun.DB, error) {
	cc := dm.config.Connection
	dsn := cc.DBName
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		dsn = fmt.Sprintf("%s.db", dsn)
	}

	sqlDB, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, nil, err
	}

	return sqlDB, bun.NewDB(sqlDB, sqlitedialect.New()), nil
}

// configureConnectionPool maps the configuration onto database/sql:
// PoolSize warm connections, PoolSize+MaxOverflow as the hard cap, and
// RecycleInterval as the max connection lifetime. Recycled connections
// are retired on their next checkout, never interrupted mid-use. With
// PoolDisabled no idle connection is retained, so every session gets a
// fresh connection (isolated test execution).
func (dm *defaultManager) configureConnectionPool() {
	if dm.sqlDB == nil {
		return
	}

	cc := dm.config.Connection
	if cc.PoolDisabled {
		dm.sqlDB.SetMaxIdleConns(0)
		dm.sqlDB.SetMaxOpenConns(0)
		return
	}

	dm.sqlDB.SetMaxIdleConns(cc.PoolSize)
	dm.sqlDB.SetMaxOpenConns(cc.PoolSize + cc.MaxOverflow)
	dm.sqlDB.SetConnMaxLifetime(cc.RecycleInterval)
}

func (dm *defaultManager) Disconnect() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.disconnectLocked()
}

func (dm *defaultManager) disconnectLocked() error {
	// Closing the channel is sticky: the health loop observes it even
	// when it is mid-check rather than parked on its select.
	if dm.stopHealthCheck != nil {
		close(dm.stopHealthCheck)
		dm.stopHealthCheck = nil
	}

	dm.closed = true

	if dm.db != nil {
		err := dm.db.Close()
		dm.db = nil
		dm.sqlDB = nil
		dm.connected = false

		if dm.logger != nil {
			if err != nil {
				dm.logger.Error("Failed to close database connection", "error", err)
			} else {
				dm.logger.Info("Database connection closed")
			}
		}

		return err
	}

	return nil
}

// Reconnect tears down the current pool and opens a fresh one as a
// single critical section. A manager that has been disconnected stays
// disconnected: Reconnect refuses with ErrManagerClosed so the health
// loop can never resurrect a torn-down manager.
func (dm *defaultManager) Reconnect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.closed {
		return ErrManagerClosed
	}

	if dm.logger != nil {
		dm.logger.Info("Attempting to reconnect to the database")
	}

	if err := dm.disconnectLocked(); err != nil {
		if dm.logger != nil {
			dm.logger.Warn("Error disconnecting existing connection", "error", err)
		}
	}
	dm.closed = false

	return dm.connectLocked(ctx)
}

func (dm *defaultManager) Ping(ctx context.Context) error {
	dm.mu.RLock()
	db := dm.db
	dm.mu.RUnlock()

	if db == nil {
		return ErrManagerClosed
	}

	return db.PingContext(ctx)
}

func (dm *defaultManager) DB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *defaultManager) SQLDB() *sql.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.sqlDB
}

func (dm *defaultManager) HealthCheck(ctx context.Context) *HealthStatus {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	start := time.Now()
	status := &HealthStatus{
		LastCheckTime: start,
		Connected:     dm.connected,
	}

	if dm.db == nil {
		status.Healthy = false
		status.LastError = "database not initialized"
		return status
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	err := dm.db.PingContext(ctxTimeout)
	status.ResponseTime = time.Since(start)

	if err != nil {
		status.Healthy = false
		status.Connected = false
		status.LastError = err.Error()
		dm.lastError = err
	} else {
		status.Healthy = true
		status.Connected = true
		dm.lastError = nil
	}

	if dm.sqlDB != nil {
		stats := dm.sqlDB.Stats()
		status.ActiveConns = stats.InUse
		status.IdleConns = stats.Idle
		status.MaxOpenConns = stats.MaxOpenConnections
	}

	dm.healthStatus = status
	dm.lastHealthCheck = start

	return status
}

// startHealthCheck runs the periodic health loop until stop is closed.
// Each Connect starts its own loop bound to its own stop channel, so a
// loop from a previous lifecycle can never outlive its pool.
func (dm *defaultManager) startHealthCheck(stop chan struct{}) {
	go func() {
		ticker := time.NewTicker(dm.config.Connection.HealthCheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
				status := dm.HealthCheck(ctx)
				cancel()
				if !status.Healthy && dm.config.Connection.EnableReconnect {
					dm.handleReconnect(stop)
				}

			case <-stop:
				return
			}
		}
	}()
}

func (dm *defaultManager) handleReconnect(stop chan struct{}) {
	dm.mu.Lock()
	if dm.closed || dm.reconnectTries >= dm.config.Connection.MaxReconnectTries {
		tries := dm.reconnectTries
		closed := dm.closed
		dm.mu.Unlock()
		if !closed && dm.logger != nil {
			dm.logger.Error("Max reconnect attempts reached, stopping", "tries", tries)
		}
		return
	}
	dm.reconnectTries++
	try := dm.reconnectTries
	dm.mu.Unlock()

	if dm.logger != nil {
		dm.logger.Info("Starting database reconnect", "try", try)
	}

	time.Sleep(dm.config.Connection.ReconnectInterval)

	// Disconnect may have landed during the backoff sleep.
	select {
	case <-stop:
		return
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), dm.config.Connection.ConnectTimeout)
	defer cancel()

	if err := dm.Reconnect(ctx); err != nil {
		if dm.logger != nil {
			dm.logger.Error("Reconnect failed", "error", err, "try", try)
		}
	} else {
		if dm.logger != nil {
			dm.logger.Info("Reconnect succeeded")
		}
	}
}

func (dm *defaultManager) Stats() *DBStats {
	dm.mu.RLock()
	sqlDB := dm.sqlDB
	dm.mu.RUnlock()

	if sqlDB == nil {
		return &DBStats{}
	}

	stats := sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

func (dm *defaultManager) RunMigrations(ctx context.Context) error {
	db := dm.DB()
	if db == nil {
		return ErrManagerClosed
	}

	return NewMigrationManager(db, dm.config, dm.logger).RunMigrations(ctx)
}

func (dm *defaultManager) SeedData(ctx context.Context) error {
	db := dm.DB()
	if db == nil {
		return ErrManagerClosed
	}
	return NewMigrationManager(db, dm.config, dm.logger).SeedData(ctx)
}

func (dm *defaultManager) SetLogger(logger Logger) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger = logger
}
