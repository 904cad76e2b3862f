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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/uptrace/bun"
)

// SQLSeeder discovers SQL seed files and executes them in order.
// Files under <root>/common run first, then <root>/environments/<env>.
// Within a directory, a numeric "NNN_" filename prefix decides order.
type SQLSeeder struct {
	db          bun.IDB
	environment string
	sqlRootPath string
	logger      Logger
}

// SeedFile describes a discovered SQL seed file.
type SeedFile struct {
	Path        string
	Name        string
	Order       int
	Environment string
}

// SeedResult is the outcome of executing a single seed file.
type SeedResult struct {
	File         string
	Duration     time.Duration
	RowsAffected int64
}

// NewSQLSeeder creates a seeder for the given environment. The default
// root path is configs/seeds relative to the working directory.
func NewSQLSeeder(db bun.IDB, environment string, logger Logger) *SQLSeeder {
	return &SQLSeeder{
		db:          db,
		environment: environment,
		sqlRootPath: "configs/seeds",
		logger:      logger,
	}
}

// SetSQLRootPath overrides the root directory for seed file discovery.
func (s *SQLSeeder) SetSQLRootPath(path string) {
	s.sqlRootPath = path
}

// Execute runs every discovered seed file, stopping at the first failure.
func (s *SQLSeeder) Execute(ctx context.Context) error {
	files, err := s.discoverFiles()
	if err != nil {
		return fmt.Errorf("failed to discover seed files: %w", err)
	}
	if len(files) == 0 {
		if s.logger != nil {
			s.logger.Info("No SQL seed files found", "path", s.sqlRootPath)
		}
		return nil
	}

	for _, file := range files {
		result, err := s.executeFile(ctx, file)
		if err != nil {
			if s.logger != nil {
				s.logger.Error("Seed file execution failed", "file", file.Path, "error", err.Error())
			}
			return fmt.Errorf("seed file %s failed: %w", file.Path, err)
		}
		if s.logger != nil {
			s.logger.Info("Seed file executed",
				"file", result.File,
				"duration", result.Duration.String(),
				"rows_affected", result.RowsAffected)
		}
	}

	if s.logger != nil {
		s.logger.Info("SQL seed initialization completed",
			"total_files", len(files), "environment", s.environment)
	}
	return nil
}

func (s *SQLSeeder) discoverFiles() ([]SeedFile, error) {
	var files []SeedFile

	commonPath := filepath.Join(s.sqlRootPath, "common")
	if _, err := os.Stat(commonPath); err == nil {
		commonFiles, err := s.filesFromDir(commonPath, "common")
		if err != nil {
			return nil, err
		}
		files = append(files, commonFiles...)
	}

	envPath := filepath.Join(s.sqlRootPath, "environments", s.environment)
	if _, err := os.Stat(envPath); err == nil {
		envFiles, err := s.filesFromDir(envPath, s.environment)
		if err != nil {
			return nil, err
		}
		files = append(files, envFiles...)
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].Environment != files[j].Environment {
			return files[i].Environment == "common"
		}
		return files[i].Order < files[j].Order
	})

	return files, nil
}

func (s *SQLSeeder) filesFromDir(dir, environment string) ([]SeedFile, error) {
	var files []SeedFile

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".sql") {
			return nil
		}
		files = append(files, SeedFile{
			Path:        path,
			Name:        d.Name(),
			Order:       parseFileOrder(d.Name()),
			Environment: environment,
		})
		return nil
	})

	return files, err
}

var seedOrderPattern = regexp.MustCompile(`^(\d+)_`)

func parseFileOrder(filename string) int {
	matches := seedOrderPattern.FindStringSubmatch(filename)
	if len(matches) > 1 {
		var order int
		_, _ = fmt.Sscanf(matches[1], "%d", &order)
		return order
	}
	return 999
}

func (s *SQLSeeder) executeFile(ctx context.Context, file SeedFile) (SeedResult, error) {
	start := time.Now()
	result := SeedResult{File: file.Path}

	content, err := os.ReadFile(file.Path)
	if err != nil {
		return result, fmt.Errorf("failed to read file: %w", err)
	}

	rendered, err := s.renderTemplate(string(content))
	if err != nil {
		return result, err
	}

	for _, stmt := range splitSQLStatements(rendered) {
		res, execErr := s.db.ExecContext(ctx, stmt)
		if execErr != nil {
			return result, fmt.Errorf("failed to execute statement %q: %w", stmt, execErr)
		}
		rowsAffected, _ := res.RowsAffected()
		result.RowsAffected += rowsAffected
	}

	result.Duration = time.Since(start)
	return result, nil
}

// renderTemplate expands {{.VAR}} references against the process
// environment, plus ENVIRONMENT and TIMESTAMP.
func (s *SQLSeeder) renderTemplate(content string) (string, error) {
	if !strings.Contains(content, "{{") {
		return content, nil
	}

	tmpl, err := template.New("seed").Parse(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse seed template: %w", err)
	}

	vars := make(map[string]string)
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			vars[parts[0]] = parts[1]
		}
	}
	vars["ENVIRONMENT"] = s.environment
	vars["TIMESTAMP"] = time.Now().Format("2006-01-02 15:04:05")

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("failed to render seed template: %w", err)
	}
	return buf.String(), nil
}

func splitSQLStatements(content string) []string {
	var statements []string
	var current strings.Builder

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}

		current.WriteString(line)
		current.WriteString(" ")

		if strings.HasSuffix(line, ";") {
			statements = append(statements, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}
