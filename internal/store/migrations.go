package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	user_id    INTEGER NOT NULL,
	id         INTEGER NOT NULL,
	type       TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	message    TEXT NOT NULL DEFAULT '',
	is_read    INTEGER NOT NULL DEFAULT 0 CHECK(is_read IN (0, 1)),
	mission_id INTEGER,
	created_at DATETIME NOT NULL,
	PRIMARY KEY (user_id, id)
);

CREATE INDEX IF NOT EXISTS idx_notifications_user_read ON notifications(user_id, is_read);
CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(created_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS badge_snapshots (
	user_id         INTEGER PRIMARY KEY,
	dashboard       INTEGER NOT NULL DEFAULT 0,
	reviews         INTEGER NOT NULL DEFAULT 0,
	messages        INTEGER NOT NULL DEFAULT 0,
	pending_reviews INTEGER NOT NULL DEFAULT 0,
	my_bids         INTEGER NOT NULL DEFAULT 0,
	refreshed_at    DATETIME NOT NULL
);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
