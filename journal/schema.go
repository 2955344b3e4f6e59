package journal

// SQLiteSchema creates the orders table used by the SQLite store.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS orders (
	id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL,
	agg_trade_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	action TEXT NOT NULL,
	price REAL NOT NULL,
	amount REAL NOT NULL,
	cost REAL NOT NULL,
	stop_loss_price REAL NOT NULL,
	atr REAL NOT NULL,
	free_balance REAL NOT NULL,
	total_balance REAL NOT NULL,
	pl REAL NOT NULL DEFAULT 0,
	pl_percent REAL NOT NULL DEFAULT 0,
	position_status TEXT NOT NULL,
	closed_positions TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_open ON orders(symbol, position_status, created_at);
`

// PostgresSchema is the schema holding the orders table in Postgres.
const PostgresSchema = "turtle_strategy"

const columns = `id, order_id, agg_trade_id, symbol, action, price, amount, cost,
	stop_loss_price, atr, free_balance, total_balance, pl, pl_percent,
	position_status, closed_positions, created_at`
