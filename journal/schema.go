package journal

// Money columns are TEXT so decimals round-trip exactly.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	initial_balance TEXT NOT NULL,
	prior_peak TEXT,
	entry_phase TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL REFERENCES accounts(id),
	instrument TEXT NOT NULL,
	lots REAL NOT NULL,
	result TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	notes TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_account_time ON trades(account_id, timestamp);
`
