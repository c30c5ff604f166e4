package main

import (
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/svdh2/burnin-orchestrator/internal/audit"
)

// ownedTables lists every table this migrator is allowed to create. An "up"
// migration that declares a table outside this set almost always means the
// audit mirror's schema and its Go sink (internal/audit) have drifted apart,
// so ValidateEmbeddedMigrations rejects it rather than silently applying it.
var ownedTables = []string{
	audit.TransitionAuditTable,
}

var createTableRegex = regexp.MustCompile(`(?i)CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?"?([a-zA-Z_][a-zA-Z0-9_]*)"?`)

// EmbeddedMigrationSupport validates the burn-in audit mirror's migration
// files before they ever reach golang-migrate: filename format, SQL syntax
// by way of a readability check, up/down pairing, sequence gaps, checksum
// drift, and table ownership.
type EmbeddedMigrationSupport struct {
	migrationsPath string
	checksums      map[string]string // filename -> checksum for integrity checking
}

// MigrationInfo contains parsed information about a migration file
type MigrationInfo struct {
	Sequence  int
	Name      string
	Direction string // "up" or "down"
	Filename  string
	Checksum  string
}

// Migration filename regex: 001_migration_name.up.sql or 001_migration_name.down.sql
var migrationFilenameRegex = regexp.MustCompile(`^(\d{3})_([a-zA-Z0-9_]+)\.(up|down)\.sql$`)

// NewEmbeddedMigrationSupport creates a new embedded migration support instance
func NewEmbeddedMigrationSupport(migrationsPath string) *EmbeddedMigrationSupport {
	return &EmbeddedMigrationSupport{
		migrationsPath: migrationsPath,
		checksums:      make(map[string]string),
	}
}

// GetEmbeddedMigrations returns a file system interface over the migrations
// directory.
func (e *EmbeddedMigrationSupport) GetEmbeddedMigrations() fs.FS {
	return os.DirFS(e.migrationsPath)
}

// ListEmbeddedMigrations returns a list of all migration files that conform to the strict naming standard.
// Only files matching the format 001_name.(up|down).sql are included.
// Invalid filenames are rejected to enforce consistency and prevent operational mistakes.
func (e *EmbeddedMigrationSupport) ListEmbeddedMigrations() ([]string, error) {
	entries, err := os.ReadDir(e.migrationsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		filename := entry.Name()

		// Only include .sql files that match our strict naming standard
		if filepath.Ext(filename) == ".sql" && migrationFilenameRegex.MatchString(filename) {
			files = append(files, filename)
		}
	}

	// Simple lexicographic sort works perfectly with our naming standard
	// 001_name.down.sql comes before 001_name.up.sql
	// 001_name.up.sql comes before 002_name.down.sql
	sort.Strings(files)

	return files, nil
}

// ValidateEmbeddedMigrations performs comprehensive validation of migration files.
// This includes filename format, up/down pairing, sequence validation, and checksum integrity.
func (e *EmbeddedMigrationSupport) ValidateEmbeddedMigrations() error {
	// Check if migrations directory exists
	if _, err := os.Stat(e.migrationsPath); os.IsNotExist(err) {
		return fmt.Errorf("migrations directory does not exist: %s", e.migrationsPath)
	}

	// List files to ensure we have some migrations
	files, err := e.ListEmbeddedMigrations()
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no migration files found in directory: %s", e.migrationsPath)
	}

	// First, validate that we can read each file (for backward compatibility)
	for _, file := range files {
		if _, err := e.GetEmbeddedMigrationContent(file); err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}
	}

	// Perform filename validation
	if err := e.validateFilenames(files); err != nil {
		return err
	}

	// Perform up/down pairing validation
	if err := e.validatePairing(files); err != nil {
		return err
	}

	// Perform sequence validation
	if err := e.validateSequence(files); err != nil {
		return err
	}

	// Perform table ownership validation against the audit mirror's schema
	if err := e.validateOwnedTables(files); err != nil {
		return err
	}

	// Perform checksum validation if checksums are available
	if len(e.checksums) > 0 {
		if err := e.validateChecksums(files); err != nil {
			return err
		}
	}

	// Store checksums for future validation
	for _, file := range files {
		content, err := e.GetEmbeddedMigrationContent(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}
		e.checksums[file] = e.calculateChecksum(content)
	}

	return nil
}

// GetEmbeddedMigrationContent returns the content of a specific migration file.
func (e *EmbeddedMigrationSupport) GetEmbeddedMigrationContent(filename string) ([]byte, error) {
	fullPath := filepath.Join(e.migrationsPath, filename)
	return os.ReadFile(fullPath)
}

// parseMigrationFilename parses a migration filename and extracts its components
func (e *EmbeddedMigrationSupport) parseMigrationFilename(filename string) (*MigrationInfo, error) {
	matches := migrationFilenameRegex.FindStringSubmatch(filename)
	if len(matches) != 4 {
		return nil, fmt.Errorf("invalid migration filename format: %s (expected: 001_name.up.sql or 001_name.down.sql)", filename)
	}

	sequence, err := strconv.Atoi(matches[1])
	if err != nil {
		return nil, fmt.Errorf("invalid sequence number in filename %s: %w", filename, err)
	}

	return &MigrationInfo{
		Sequence:  sequence,
		Name:      matches[2],
		Direction: matches[3],
		Filename:  filename,
	}, nil
}

// validateFilenames validates that all migration files follow the correct naming convention
func (e *EmbeddedMigrationSupport) validateFilenames(files []string) error {
	for _, file := range files {
		_, err := e.parseMigrationFilename(file)
		if err != nil {
			return fmt.Errorf("filename validation failed for %s: %w", file, err)
		}
	}
	return nil
}

// validatePairing ensures that every up migration has a corresponding down migration
func (e *EmbeddedMigrationSupport) validatePairing(files []string) error {
	// Parse all migration files
	migrations := make(map[string]map[string]*MigrationInfo) // sequence_name -> direction -> migration

	for _, file := range files {
		migration, err := e.parseMigrationFilename(file)
		if err != nil {
			return err // This should have been caught in filename validation
		}

		key := fmt.Sprintf("%03d_%s", migration.Sequence, migration.Name)
		if migrations[key] == nil {
			migrations[key] = make(map[string]*MigrationInfo)
		}
		migrations[key][migration.Direction] = migration
	}

	// Check for unpaired migrations
	for key, directions := range migrations {
		if len(directions) != 2 {
			if _, hasUp := directions["up"]; !hasUp {
				return fmt.Errorf("orphaned down migration: missing up migration for %s", key)
			}
			if _, hasDown := directions["down"]; !hasDown {
				return fmt.Errorf("orphaned up migration: missing down migration for %s", key)
			}
		}
	}

	return nil
}

// validateSequence ensures there are no gaps in the migration sequence
func (e *EmbeddedMigrationSupport) validateSequence(files []string) error {
	sequences := make(map[int]bool)

	// Collect all sequence numbers
	for _, file := range files {
		migration, err := e.parseMigrationFilename(file)
		if err != nil {
			return err // This should have been caught in filename validation
		}
		sequences[migration.Sequence] = true
	}

	// Convert to sorted slice
	var sequenceNumbers []int
	for seq := range sequences {
		sequenceNumbers = append(sequenceNumbers, seq)
	}
	sort.Ints(sequenceNumbers)

	// Check for gaps
	if len(sequenceNumbers) == 0 {
		return nil // No migrations
	}

	// Should start with 1
	if sequenceNumbers[0] != 1 {
		return fmt.Errorf("migration sequence should start with 001, but found %03d", sequenceNumbers[0])
	}

	// Check for gaps
	for i := 1; i < len(sequenceNumbers); i++ {
		expected := sequenceNumbers[i-1] + 1
		actual := sequenceNumbers[i]
		if actual != expected {
			return fmt.Errorf("gap in migration sequence: expected %03d, found %03d", expected, actual)
		}
	}

	return nil
}

// validateOwnedTables scans every "up" migration for CREATE TABLE statements
// and rejects any table name outside ownedTables. A "down" migration's DROP
// TABLE is not checked, since it can only remove a table an "up" migration
// already proved is owned.
func (e *EmbeddedMigrationSupport) validateOwnedTables(files []string) error {
	owned := make(map[string]bool, len(ownedTables))
	for _, t := range ownedTables {
		owned[strings.ToLower(t)] = true
	}

	for _, file := range files {
		migration, err := e.parseMigrationFilename(file)
		if err != nil {
			return err // This should have been caught in filename validation
		}

		if migration.Direction != "up" {
			continue
		}

		content, err := e.GetEmbeddedMigrationContent(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		for _, match := range createTableRegex.FindAllStringSubmatch(string(content), -1) {
			table := strings.ToLower(match[1])
			if !owned[table] {
				return fmt.Errorf("migration %s declares unowned table %q: the audit mirror's migrator only manages %v", file, match[1], ownedTables)
			}
		}
	}

	return nil
}

// calculateChecksum calculates SHA256 checksum of content
func (e *EmbeddedMigrationSupport) calculateChecksum(content []byte) string {
	hash := sha256.Sum256(content)
	return fmt.Sprintf("%x", hash)
}

// validateChecksums verifies that migration files haven't been modified
func (e *EmbeddedMigrationSupport) validateChecksums(files []string) error {
	for _, file := range files {
		content, err := e.GetEmbeddedMigrationContent(file)
		if err != nil {
			return fmt.Errorf("failed to read file %s for checksum validation: %w", file, err)
		}

		currentChecksum := e.calculateChecksum(content)
		if storedChecksum, exists := e.checksums[file]; exists {
			if currentChecksum != storedChecksum {
				return fmt.Errorf("checksum mismatch for %s: file has been modified", file)
			}
		}
	}
	return nil
}
