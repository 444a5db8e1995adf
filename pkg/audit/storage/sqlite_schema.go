package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the audit database schema.
// Timestamps are stored as Unix nanoseconds so both drivers compare them the
// same way.
const Schema = `
-- Audit events table
CREATE TABLE IF NOT EXISTS audit_events (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    request_id TEXT,
    timestamp_ns INTEGER NOT NULL,

    -- Rule corpus
    rule_set TEXT NOT NULL,
    artifact_id TEXT,
    version TEXT,
    source_hash TEXT,

    -- Result
    success INTEGER NOT NULL,
    matched INTEGER NOT NULL,
    outcome TEXT,
    reasons TEXT,
    diagnostics TEXT,
    error TEXT,

    duration_ms INTEGER
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_audit_events_timestamp ON audit_events(timestamp_ns);
CREATE INDEX IF NOT EXISTS idx_audit_events_type ON audit_events(type);
CREATE INDEX IF NOT EXISTS idx_audit_events_rule_set ON audit_events(rule_set);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const selectColumns = `id, type, request_id, timestamp_ns, rule_set, artifact_id, version, source_hash,
	success, matched, outcome, reasons, diagnostics, error, duration_ms`
