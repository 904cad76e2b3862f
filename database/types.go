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
	"os"
	"time"

	"github.com/uptrace/bun"
	"gopkg.in/yaml.v3"
)

// Manager owns the process-wide pooled connection source. It is
// constructed once at process start and passed explicitly to every
// repository; there is no package-level engine singleton.
type Manager interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Reconnect(ctx context.Context) error
	Ping(ctx context.Context) error
	HealthCheck(ctx context.Context) *HealthStatus

	// AcquireSession checks out one pooled connection as a scoped
	// session, bounded by the configured acquisition timeout.
	AcquireSession(ctx context.Context) (*Session, error)
	// RunInSession acquires a session, runs fn, and guarantees the
	// connection returns to the pool on every exit path.
	RunInSession(ctx context.Context, fn func(ctx context.Context, s *Session) error) error
	// RunInTx runs fn inside a transaction on a scoped session,
	// committing on success and rolling back on error.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error

	DB() *bun.DB
	SQLDB() *sql.DB
	RunMigrations(ctx context.Context) error
	SeedData(ctx context.Context) error
	Stats() *DBStats
	SetLogger(logger Logger)
}

// HealthStatus holds the result of a health check against the database.
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	Connected     bool          `json:"connected"`
	ResponseTime  time.Duration `json:"response_time"`
	ActiveConns   int           `json:"active_conns"`
	IdleConns     int           `json:"idle_conns"`
	MaxOpenConns  int           `json:"max_open_conns"`
	LastError     string        `json:"last_error,omitempty"`
	LastCheckTime time.Time     `json:"last_check_time"`
}

// DBStats mirrors database/sql pool statistics.
type DBStats struct {
	MaxOpenConns      int           `json:"max_open_conns"`
	OpenConns         int           `json:"open_conns"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	MaxIdleClosed     int64         `json:"max_idle_closed"`
	MaxIdleTimeClosed int64         `json:"max_idle_time_closed"`
	MaxLifetimeClosed int64         `json:"max_lifetime_closed"`
}

// ConnectionConfig describes how to reach the database and tune its pool.
//
// PoolSize is the number of persistent connections kept warm; MaxOverflow
// allows that many additional transient connections when the pool is
// saturated. RecycleInterval retires connections on their next checkout
// once they exceed the threshold. AcquireTimeout bounds the wait for a
// connection before AcquireSession fails with ErrPoolExhausted.
type ConnectionConfig struct {
	Type     string `json:"type" yaml:"type"` // postgres, mysql, sqlite
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	DBName   string `json:"dbname" yaml:"dbname"`
	SSLMode  string `json:"sslmode" yaml:"sslmode"`

	PoolSize        int           `json:"pool_size" yaml:"pool_size"`
	MaxOverflow     int           `json:"max_overflow" yaml:"max_overflow"`
	PoolDisabled    bool          `json:"pool_disabled" yaml:"pool_disabled"` // test mode: a fresh connection per session
	PrePing         bool          `json:"pre_ping" yaml:"pre_ping"`
	RecycleInterval time.Duration `json:"recycle_interval" yaml:"recycle_interval"`
	AcquireTimeout  time.Duration `json:"acquire_timeout" yaml:"acquire_timeout"`
	ConnectTimeout  time.Duration `json:"connect_timeout" yaml:"connect_timeout"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout"`

	EnableReconnect     bool          `json:"enable_reconnect" yaml:"enable_reconnect"`
	ReconnectInterval   time.Duration `json:"reconnect_interval" yaml:"reconnect_interval"`
	MaxReconnectTries   int           `json:"max_reconnect_tries" yaml:"max_reconnect_tries"`
	HealthCheckInterval time.Duration `json:"health_check_interval" yaml:"health_check_interval"`

	Echo          bool          `json:"echo" yaml:"echo"` // log every query
	SlowQueryTime time.Duration `json:"slow_query_time" yaml:"slow_query_time"`
}

// MigrateConfig controls startup schema initialization.
type MigrateConfig struct {
	EnableMigrateOnStartup bool   `json:"enable_migrate_on_startup" yaml:"enable_migrate_on_startup"`
	EnableForeignKey       bool   `json:"enable_foreign_key" yaml:"enable_foreign_key"`
	ForeignKeyFile         string `json:"foreign_key_file" yaml:"foreign_key_file"`
}

// SeedConfig controls SQL seed execution and environment selection.
type SeedConfig struct {
	AutoSeedOnMigration bool   `json:"auto_seed_on_migration" yaml:"auto_seed_on_migration"`
	Filepath            string `json:"filepath" yaml:"filepath"`
	Environment         string `json:"environment" yaml:"environment"`
}

// Config aggregates connection, migration, and seed settings.
type Config struct {
	Connection ConnectionConfig `json:"connection" yaml:"connection"`
	Migrate    MigrateConfig    `json:"migrate" yaml:"migrate"`
	Seed       SeedConfig       `json:"seed" yaml:"seed"`
}

// DefaultConnectionConfig returns pool defaults matching the production
// deployment: five warm connections, ten overflow, hourly recycle.
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		PoolSize:            5,
		MaxOverflow:         10,
		PrePing:             true,
		RecycleInterval:     time.Hour,
		AcquireTimeout:      time.Second * 30,
		ConnectTimeout:      time.Second * 10,
		ReadTimeout:         time.Second * 30,
		WriteTimeout:        time.Second * 30,
		EnableReconnect:     true,
		ReconnectInterval:   time.Second * 5,
		MaxReconnectTries:   3,
		HealthCheckInterval: time.Minute * 5,
		SlowQueryTime:       time.Second * 2,
	}
}

// LoadConfigFile reads a YAML configuration file into a Config with
// connection defaults applied for unset pool fields.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{Connection: *DefaultConnectionConfig()}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config file: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}
