package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	label TEXT NOT NULL,
	dataset TEXT NOT NULL,
	config TEXT NOT NULL,
	initial_capital REAL NOT NULL,
	final_capital REAL NOT NULL,
	total_pnl REAL NOT NULL,
	return_pct REAL NOT NULL,
	trades INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	win_rate REAL NOT NULL,
	profit_factor REAL NOT NULL,
	sharpe REAL NOT NULL,
	max_dd_pct REAL NOT NULL,
	error TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	run_id TEXT NOT NULL,
	position_id TEXT NOT NULL,
	ticker TEXT NOT NULL,
	direction TEXT NOT NULL,
	event_time DATETIME NOT NULL,
	entry_time DATETIME NOT NULL,
	entry_price REAL NOT NULL,
	shares INTEGER NOT NULL,
	position_value REAL NOT NULL,
	stop_loss REAL NOT NULL,
	take_profit REAL NOT NULL,
	risk_amount REAL NOT NULL,
	confidence REAL NOT NULL,
	sentiment REAL NOT NULL,
	themes TEXT NOT NULL,
	exit_time DATETIME,
	exit_price REAL NOT NULL,
	exit_reason TEXT NOT NULL,
	commission REAL NOT NULL,
	pnl REAL NOT NULL,
	return_pct REAL NOT NULL,
	holding_days INTEGER NOT NULL,
	is_open INTEGER NOT NULL,
	PRIMARY KEY (run_id, position_id)
);

CREATE TABLE IF NOT EXISTS events (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	time DATETIME NOT NULL,
	kind TEXT NOT NULL,
	ticker TEXT NOT NULL,
	description TEXT NOT NULL,
	details TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS risk_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	type TEXT NOT NULL,
	severity TEXT NOT NULL,
	ticker TEXT NOT NULL,
	message TEXT NOT NULL,
	details TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_positions_entry ON positions(run_id, entry_time);
CREATE INDEX IF NOT EXISTS idx_events_kind ON events(run_id, kind);
CREATE INDEX IF NOT EXISTS idx_risk_events_run ON risk_events(run_id, time);
`
