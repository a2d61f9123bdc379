package sqlite

import (
	"database/sql"
	"fmt"
)

// documentTables are the tables holding one JSON document per row.
var documentTables = []string{
	"accounts",
	"transactions",
	"budgets",
	"goals",
	"bills",
	"investments",
	"notifications",
	"ai_conversations",
}

// usersSchema sets up the users table. Users are queried by email, so they
// keep relational columns instead of a JSON document.
const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL,
    currency TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// documentSchema is the layout shared by every document table.
const documentSchema = `
CREATE TABLE IF NOT EXISTS %[1]s (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    data TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_user_id ON %[1]s(user_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(usersSchema); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	for _, table := range documentTables {
		if _, err := db.Exec(fmt.Sprintf(documentSchema, table)); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table, err)
		}
	}
	return nil
}
