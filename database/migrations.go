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
	"sort"
	"time"

	"github.com/uptrace/bun"
)

// MigrationManager runs the startup schema initialization: base tables
// from the model registry, secondary indexes, foreign keys, and seed
// data. Structural schema evolution beyond this lives in an external
// migration tool.
type MigrationManager struct {
	db     *bun.DB
	config *Config
	logger Logger
}

// Migration is an applied migration record stored in the database.
type Migration struct {
	bun.BaseModel `bun:"table:notary_migrations"`

	Version     string    `bun:"version,pk"`
	Name        string    `bun:"name"`
	AppliedAt   time.Time `bun:"applied_at"`
	Description string    `bun:"description"`
}

// MigrationFunc is a migration step executed within a transaction.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

// MigrationItem describes a single migration version.
type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
}

// NewMigrationManager constructs a MigrationManager for the given
// database and configuration.
func NewMigrationManager(db *bun.DB, config *Config, logger Logger) *MigrationManager {
	if config == nil {
		config = &Config{}
	}
	return &MigrationManager{
		db:     db,
		config: config,
		logger: logger,
	}
}

// RunMigrations creates the tracking table if needed and executes all
// pending migrations in ascending version order.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	// silent migration
	if _, ok := os.LookupEnv("BUNDEBUG_MIGRATION"); !ok {
		EnableBunSqlSilent(true)
		defer EnableBunSqlSilent(false)
	}

	if mm.db == nil {
		return ErrManagerClosed
	}

	if err := mm.createMigrationTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations := mm.allMigrations()
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	for _, migration := range migrations {
		if err := mm.runMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migration.Version, err)
		}
	}

	if mm.logger != nil {
		mm.logger.Info("Database migrations completed")
	}
	return nil
}

func (mm *MigrationManager) createMigrationTable(ctx context.Context) error {
	_, err := mm.db.NewCreateTable().
		Model((*Migration)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (mm *MigrationManager) allMigrations() []MigrationItem {
	migrations := []MigrationItem{
		{
			Version:     "001",
			Name:        "create_base_tables",
			Description: "Create accounts, documents, and api_keys tables",
			Up:          mm.createBaseTables,
		},
		{
			Version:     "002",
			Name:        "create_indexes",
			Description: "Create secondary lookup indexes",
			Up:          mm.createIndexes,
		},
	}
	if mm.config.Migrate.EnableForeignKey {
		migrations = append(migrations, MigrationItem{
			Version:     "003",
			Name:        "add_foreign_keys",
			Description: "Add ownership foreign key constraints",
			Up:          mm.addForeignKeys,
		})
	}
	if mm.config.Seed.AutoSeedOnMigration {
		migrations = append(migrations, MigrationItem{
			Version:     "004",
			Name:        "seed_initial_data",
			Description: "Seed initial data from SQL files",
			Up:          mm.seedInitialData,
		})
	}
	return migrations
}

func (mm *MigrationManager) runMigration(ctx context.Context, migration MigrationItem) error {
	exists, err := mm.db.NewSelect().
		Model((*Migration)(nil)).
		Where("version = ?", migration.Version).
		Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	tx, err := mm.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	var committed bool
	defer func(tx bun.Tx) {
		if !committed {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && mm.logger != nil {
				mm.logger.Error("Failed to rollback migration transaction", "error", rollbackErr)
			}
		}
	}(tx)

	if err := migration.Up(ctx, tx); err != nil {
		return err
	}

	record := &Migration{
		Version:     migration.Version,
		Name:        migration.Name,
		AppliedAt:   time.Now(),
		Description: migration.Description,
	}
	if _, err = tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	if mm.logger != nil {
		mm.logger.Info("Migration executed", "version", migration.Version, "name", migration.Name)
	}

	return nil
}

func (mm *MigrationManager) createBaseTables(ctx context.Context, db bun.IDB) error {
	for _, model := range RegisteredModelInstances() {
		_, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table %T: %w", model, err)
		}
	}
	return nil
}

// createIndexes builds the secondary lookup indexes; the unique indexes
// on email, file_hash, and key_hash come from the model definitions.
func (mm *MigrationManager) createIndexes(ctx context.Context, db bun.IDB) error {
	indexes := []struct {
		name   string
		table  string
		column string
	}{
		{"idx_documents_owner_id", "documents", "owner_id"},
		{"idx_documents_status", "documents", "status"},
		{"idx_api_keys_owner_id", "api_keys", "owner_id"},
	}

	for _, idx := range indexes {
		_, err := db.NewCreateIndex().
			Table(idx.table).
			Index(idx.name).
			Column(idx.column).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}
	return nil
}

func (mm *MigrationManager) addForeignKeys(ctx context.Context, db bun.IDB) error {
	fkManager := NewForeignKeyManagerFromFile(mm.logger, mm.config.Migrate.ForeignKeyFile)

	if errs := fkManager.ValidateConstraints(); len(errs) > 0 {
		for _, err := range errs {
			if mm.logger != nil {
				mm.logger.Debug("Foreign key constraint validation failed", "error", err.Error())
			}
		}
		return fmt.Errorf("foreign key constraint validation failed, %d errors in total", len(errs))
	}

	return fkManager.AddAllForeignKeys(ctx, db)
}

// SeedData executes the environment's SQL seed files outside the
// migration flow.
func (mm *MigrationManager) SeedData(ctx context.Context) error {
	if mm.db == nil {
		return ErrManagerClosed
	}
	return mm.seedInitialData(ctx, mm.db)
}

func (mm *MigrationManager) seedInitialData(ctx context.Context, db bun.IDB) error {
	environment := mm.config.Seed.Environment
	if environment == "" {
		environment = "development"
	}

	seeder := NewSQLSeeder(db, environment, mm.logger)
	if mm.config.Seed.Filepath != "" {
		seeder.SetSQLRootPath(mm.config.Seed.Filepath)
	}

	if mm.logger != nil {
		mm.logger.Info("Starting SQL seed initialization", "environment", environment)
	}
	return seeder.Execute(ctx)
}

// AppliedMigrations returns migration records ordered by version.
func (mm *MigrationManager) AppliedMigrations(ctx context.Context) ([]Migration, error) {
	var migrations []Migration
	err := mm.db.NewSelect().
		Model(&migrations).
		Order("version ASC").
		Scan(ctx)
	return migrations, err
}
