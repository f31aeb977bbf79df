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

CREATE TABLE IF NOT EXISTS flash_messages (
	id         TEXT PRIMARY KEY,
	level      TEXT NOT NULL DEFAULT 'info' CHECK(level IN ('info', 'warning', 'danger')),
	message    TEXT NOT NULL,
	read       INTEGER NOT NULL DEFAULT 0 CHECK(read IN (0, 1)),
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_flash_messages_read ON flash_messages(read);
CREATE INDEX IF NOT EXISTS idx_flash_messages_created ON flash_messages(created_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS feeds (
	feed_key        TEXT PRIMARY KEY,
	has_next_page   INTEGER NOT NULL DEFAULT 1 CHECK(has_next_page IN (0, 1)),
	next_page_token TEXT NOT NULL DEFAULT '',
	updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS feed_activities (
	feed_key    TEXT NOT NULL REFERENCES feeds(feed_key) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	activity_id TEXT NOT NULL,
	payload     TEXT NOT NULL,
	PRIMARY KEY (feed_key, position)
);

CREATE INDEX IF NOT EXISTS idx_feed_activities_activity_id ON feed_activities(activity_id);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
