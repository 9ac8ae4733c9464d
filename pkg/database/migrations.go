package database

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered schema history. Append only; never edit an
// applied version.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_holders",
		SQL: `
			CREATE TABLE IF NOT EXISTS holders (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				type TEXT NOT NULL CHECK (type IN ('vendor', 'tenant')),
				email TEXT NOT NULL DEFAULT '',
				property_name TEXT NOT NULL DEFAULT '',
				portal_token TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'pending',
				coverage_json TEXT,
				coi_expiration_date TEXT NOT NULL DEFAULT '',
				coi_uploaded_at DATETIME,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_holders_portal_token
				ON holders(portal_token) WHERE portal_token != '';
		`,
	},
	{
		Version: 2,
		Name:    "create_requirement_profiles",
		SQL: `
			CREATE TABLE IF NOT EXISTS requirement_profiles (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				holder_id INTEGER NOT NULL UNIQUE REFERENCES holders(id) ON DELETE CASCADE,
				profile_json TEXT NOT NULL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			);
		`,
	},
	{
		Version: 3,
		Name:    "create_compliance_results",
		SQL: `
			CREATE TABLE IF NOT EXISTS compliance_results (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				holder_id INTEGER NOT NULL REFERENCES holders(id) ON DELETE CASCADE,
				overall_status TEXT NOT NULL,
				fields_json TEXT NOT NULL,
				issues_json TEXT NOT NULL,
				evaluated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_compliance_results_holder
				ON compliance_results(holder_id, evaluated_at);
		`,
	},
	{
		Version: 4,
		Name:    "create_documents",
		SQL: `
			CREATE TABLE IF NOT EXISTS documents (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				holder_id INTEGER NOT NULL REFERENCES holders(id) ON DELETE CASCADE,
				kind TEXT NOT NULL CHECK (kind IN ('coi', 'lease')),
				file_name TEXT NOT NULL,
				file_path TEXT NOT NULL,
				file_size INTEGER NOT NULL DEFAULT 0,
				uploaded_at DATETIME DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_documents_holder ON documents(holder_id);
		`,
	},
}

// Migrator handles database migrations
type Migrator struct {
	db     *DB
	logger *zap.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(db *DB, logger *zap.Logger) *Migrator {
	return &Migrator{
		db:     db,
		logger: logger,
	}
}

// createMigrationsTable creates the migrations tracking table
func (m *Migrator) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
	_, err := m.db.Exec(query)
	return err
}

// getAppliedMigrations returns the set of applied migration versions
func (m *Migrator) getAppliedMigrations() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// RunMigrations applies every pending migration in order
func (m *Migrator) RunMigrations() error {
	if err := m.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	for _, migration := range migrations {
		if applied[migration.Version] {
			continue
		}

		m.logger.Info("Applying migration",
			zap.Int("version", migration.Version),
			zap.String("name", migration.Name))

		err := m.db.WithTransaction(func(tx *sql.Tx) error {
			if _, err := tx.Exec(migration.SQL); err != nil {
				return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
			}
			_, err := tx.Exec(
				"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
				migration.Version, migration.Name,
			)
			return err
		})
		if err != nil {
			return err
		}
	}

	return nil
}
