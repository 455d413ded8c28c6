package store

// schemaVersion is the current layout of the device-local store. The
// version row lets a future release migrate persisted queues instead of
// guessing at their format.
const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_info (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS pending_incidents (
	local_id    TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL,
	latitude    REAL NOT NULL,
	longitude   REAL NOT NULL,
	severity    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending_sync',
	created_at  TEXT NOT NULL,
	position    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pending_position ON pending_incidents(position);

CREATE TABLE IF NOT EXISTS cached_incidents (
	position INTEGER PRIMARY KEY,
	payload  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
