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
	"fmt"
	"os"
	"strconv"
	"time"
)

// Factory builds a configured Manager and drives its initialization.
// It applies environment overrides so deployments can tune the pool
// without editing config files.
type Factory struct {
	manager Manager
	logger  Logger
}

// NewFactory returns a factory using the package logger.
func NewFactory() *Factory {
	return &Factory{logger: GetLogger()}
}

// CreateFromConfig constructs a Manager from the given configuration,
// applying environment overrides first. The manager is not yet
// connected; call Initialize or Connect.
func (f *Factory) CreateFromConfig(cfg *Config) (Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: configuration cannot be empty", ErrInvalidConfig)
	}

	f.overrideFromEnv(&cfg.Connection)

	if err := validateConnectionConfig(&cfg.Connection); err != nil {
		return nil, err
	}

	manager := NewManager(cfg)
	manager.SetLogger(f.logger)

	f.manager = manager
	return manager, nil
}

// overrideFromEnv overrides connection settings from environment variables.
func (f *Factory) overrideFromEnv(cc *ConnectionConfig) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cc.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cc.Port = p
		}
	}
	if username := os.Getenv("DB_USERNAME"); username != "" {
		cc.Username = username
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cc.Password = password
	}
	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		cc.DBName = dbname
	}
	if sslmode := os.Getenv("DB_SSLMODE"); sslmode != "" {
		cc.SSLMode = sslmode
	}

	// Pool tuning
	if poolSize := os.Getenv("DB_POOL_SIZE"); poolSize != "" {
		if val, err := strconv.Atoi(poolSize); err == nil {
			cc.PoolSize = val
		}
	}
	if maxOverflow := os.Getenv("DB_MAX_OVERFLOW"); maxOverflow != "" {
		if val, err := strconv.Atoi(maxOverflow); err == nil {
			cc.MaxOverflow = val
		}
	}
	if prePing := os.Getenv("DB_POOL_PRE_PING"); prePing != "" {
		if val, err := strconv.ParseBool(prePing); err == nil {
			cc.PrePing = val
		}
	}
	if recycle := os.Getenv("DB_POOL_RECYCLE"); recycle != "" {
		if val, err := strconv.Atoi(recycle); err == nil {
			cc.RecycleInterval = time.Duration(val) * time.Second
		}
	}
	if acquire := os.Getenv("DB_POOL_TIMEOUT"); acquire != "" {
		if val, err := strconv.Atoi(acquire); err == nil {
			cc.AcquireTimeout = time.Duration(val) * time.Second
		}
	}
	if disabled := os.Getenv("DB_POOL_DISABLED"); disabled != "" {
		if val, err := strconv.ParseBool(disabled); err == nil {
			cc.PoolDisabled = val
		}
	}

	// Reconnect and logging
	if enableReconnect := os.Getenv("DB_ENABLE_RECONNECT"); enableReconnect != "" {
		cc.EnableReconnect = enableReconnect == "true"
	}
	if reconnectInterval := os.Getenv("DB_RECONNECT_INTERVAL"); reconnectInterval != "" {
		if val, err := strconv.Atoi(reconnectInterval); err == nil {
			cc.ReconnectInterval = time.Duration(val) * time.Second
		}
	}
	if echo := os.Getenv("DB_ECHO"); echo != "" {
		if val, err := strconv.ParseBool(echo); err == nil {
			cc.Echo = val
		}
	}
}

// Initialize connects the managed database and optionally runs the
// startup migrations.
func (f *Factory) Initialize(ctx context.Context, runMigrations bool) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}

	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if runMigrations {
		if err := f.manager.RunMigrations(ctx); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
	}
	f.logger.Info("Database initialization completed")
	return nil
}

// Manager returns the underlying manager, or nil before CreateFromConfig.
func (f *Factory) Manager() Manager {
	return f.manager
}

// SetLogger sets the logger on the factory and the underlying manager.
func (f *Factory) SetLogger(logger Logger) {
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

// Close closes the managed database connection.
func (f *Factory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}
