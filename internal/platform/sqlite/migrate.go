package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('admin', 'leader', 'employee')),
		employee_id TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		last_login TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS positions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		responsibilities TEXT NOT NULL DEFAULT '',
		requirements TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS competencies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		category TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		position_id TEXT REFERENCES positions(id),
		department TEXT NOT NULL DEFAULT '',
		manager_id TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS evaluation_authorizations (
		id TEXT PRIMARY KEY,
		leader_id TEXT NOT NULL,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		authorized_by TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		revoked_at TEXT
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_authorizations_active_pair
		ON evaluation_authorizations (leader_id, employee_id) WHERE status = 'active'`,
	`CREATE TABLE IF NOT EXISTS performance_cycles (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		parent_cycle_id TEXT REFERENCES performance_cycles(id),
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS evaluations (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		leader_id TEXT NOT NULL,
		cycle_id TEXT REFERENCES performance_cycles(id),
		period TEXT NOT NULL,
		status TEXT NOT NULL,
		employee_name TEXT NOT NULL,
		employee_code TEXT NOT NULL,
		position_name TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		competency_count INTEGER NOT NULL,
		performance_score REAL NOT NULL DEFAULT 0,
		comments TEXT NOT NULL DEFAULT '',
		submitted_at TEXT,
		completed_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_evaluations_leader ON evaluations (leader_id)`,
	`CREATE INDEX IF NOT EXISTS idx_evaluations_employee ON evaluations (employee_id)`,
	`CREATE TABLE IF NOT EXISTS evaluation_weights (
		evaluation_id TEXT NOT NULL REFERENCES evaluations(id),
		competency_id TEXT NOT NULL REFERENCES competencies(id),
		competency_name TEXT NOT NULL,
		category TEXT NOT NULL,
		sort_order INTEGER NOT NULL,
		weight INTEGER NOT NULL DEFAULT 0 CHECK (weight BETWEEN 0 AND 100),
		score REAL NOT NULL DEFAULT 0 CHECK (score BETWEEN 0 AND 5),
		weighted_score REAL NOT NULL DEFAULT 0,
		comments TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (evaluation_id, competency_id)
	)`,
	`CREATE TABLE IF NOT EXISTS evaluation_locks (
		id TEXT PRIMARY KEY,
		evaluation_id TEXT NOT NULL UNIQUE REFERENCES evaluations(id),
		locked_by TEXT NOT NULL,
		reason TEXT NOT NULL,
		can_unlock INTEGER NOT NULL DEFAULT 0,
		locked_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS feedback_records (
		id TEXT PRIMARY KEY,
		evaluation_id TEXT NOT NULL REFERENCES evaluations(id),
		author_id TEXT NOT NULL,
		type TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pdi_items (
		id TEXT PRIMARY KEY,
		evaluation_id TEXT NOT NULL REFERENCES evaluations(id),
		development_area TEXT NOT NULL,
		actions TEXT NOT NULL DEFAULT '',
		timeline TEXT NOT NULL DEFAULT '',
		responsible TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cycle_statuses (
		id TEXT PRIMARY KEY,
		cycle_id TEXT NOT NULL REFERENCES performance_cycles(id),
		employee_id TEXT NOT NULL REFERENCES employees(id),
		current_status TEXT NOT NULL,
		self_evaluation_date TEXT,
		leader_evaluation_date TEXT,
		feedback_date TEXT,
		pdi_date TEXT,
		completion_date TEXT,
		is_overdue INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (cycle_id, employee_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cycle_statuses_employee ON cycle_statuses (employee_id)`,
	`CREATE TABLE IF NOT EXISTS audit_events (
		id TEXT PRIMARY KEY,
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		before_json TEXT,
		after_json TEXT,
		request_id TEXT NOT NULL DEFAULT '',
		ip TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_events_created ON audit_events (created_at)`,
	`CREATE TABLE IF NOT EXISTS job_runs (
		id TEXT PRIMARY KEY,
		job_type TEXT NOT NULL,
		status TEXT NOT NULL,
		details_json TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	)`,
}

// Migrate applies the schema. Every statement is idempotent so it runs on
// each open.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
