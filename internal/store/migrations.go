package store

import "strings"

// migration holds a single schema migration with its target version and SQL.
// The SQL uses {{blob}} and {{bigint}} placeholders so one script serves
// both sqlite and postgres.
type migration struct {
	version int
	sql     string
}

// render substitutes driver-specific column types into the migration SQL.
func (m migration) render(driver string) string {
	blob, bigint := "BLOB", "INTEGER"
	if driver == "postgres" {
		blob, bigint = "BYTEA", "BIGINT"
	}
	return strings.NewReplacer("{{blob}}", blob, "{{bigint}}", bigint).Replace(m.sql)
}

const schemaVersionDDL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
)`

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS columns (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	sort_order  INTEGER NOT NULL DEFAULT 0,
	created_at  {{bigint}} NOT NULL,
	updated_at  {{bigint}} NOT NULL
);

CREATE TABLE IF NOT EXISTS leads (
	id               TEXT PRIMARY KEY,
	title            TEXT NOT NULL,
	details          TEXT NOT NULL DEFAULT '',
	column_id        TEXT NOT NULL,
	sort_order       INTEGER NOT NULL DEFAULT 0,
	assigned_user_id TEXT,
	is_emergency     INTEGER NOT NULL DEFAULT 0,
	is_completed     INTEGER NOT NULL DEFAULT 0,
	note             TEXT,
	reminder_text    TEXT,
	reminder_at      {{bigint}},
	created_at       {{bigint}} NOT NULL,
	updated_at       {{bigint}} NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_column_id ON leads(column_id);

CREATE TABLE IF NOT EXISTS customers (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	phone             TEXT NOT NULL DEFAULT '',
	email             TEXT NOT NULL DEFAULT '',
	details           TEXT NOT NULL DEFAULT '',
	member_names      TEXT NOT NULL DEFAULT '[]',
	passport_file_id  TEXT,
	aadhaar_file_id   TEXT,
	pan_file_id       TEXT,
	assigned_user_ids TEXT NOT NULL DEFAULT '[]',
	created_at        {{bigint}} NOT NULL,
	updated_at        {{bigint}} NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_customers_name ON customers(name);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS files (
	id          TEXT PRIMARY KEY,
	mime_type   TEXT NOT NULL,
	size        {{bigint}} NOT NULL,
	data        {{blob}} NOT NULL,
	created_at  {{bigint}} NOT NULL
);
`,
	},
	{
		version: 3,
		sql: `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    {{bigint}} NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	secret      TEXT NOT NULL UNIQUE,
	expires_at  {{bigint}} NOT NULL,
	created_at  {{bigint}} NOT NULL
);
`,
	},
}
