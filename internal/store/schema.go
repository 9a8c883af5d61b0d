package store

// schema is applied on open; statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS reviews (
	id          TEXT PRIMARY KEY,
	created_at  TEXT NOT NULL,
	model       TEXT NOT NULL,
	code_sha256 TEXT NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	security    TEXT NOT NULL DEFAULT '',
	performance TEXT NOT NULL DEFAULT '',
	readability TEXT NOT NULL DEFAULT '',
	summary     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_reviews_code_sha ON reviews(code_sha256, created_at);
CREATE INDEX IF NOT EXISTS idx_reviews_created ON reviews(created_at);
`
