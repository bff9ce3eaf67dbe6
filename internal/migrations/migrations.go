package migrations

import (
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Run creates the database schema required for the stock backend.
func Run(db *sqlx.DB) {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			role TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS stock_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			product_name TEXT NOT NULL,
			item_type TEXT NOT NULL,
			batch_number TEXT NOT NULL DEFAULT '',
			current_quantity INTEGER NOT NULL,
			original_quantity INTEGER NOT NULL,
			unit_price TEXT NOT NULL DEFAULT '0',
			width_cm REAL,
			height_cm REAL,
			expiry_date TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			CHECK (current_quantity >= 0),
			CHECK (original_quantity >= 0)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_stock_items_batch ON stock_items(batch_number);`,
		`CREATE TABLE IF NOT EXISTS stock_ledger (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			stock_item_id INTEGER NOT NULL REFERENCES stock_items(id),
			entry_date TIMESTAMP NOT NULL,
			entry_type TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			previous_quantity INTEGER NOT NULL,
			changed_by INTEGER NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			issuance_id TEXT,
			order_id INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_stock_ledger_item ON stock_ledger(stock_item_id, entry_date);`,
		`CREATE TABLE IF NOT EXISTS issuances (
			id TEXT PRIMARY KEY,
			stock_item_id INTEGER NOT NULL REFERENCES stock_items(id),
			order_id INTEGER,
			quantity INTEGER NOT NULL,
			issued_by INTEGER NOT NULL,
			status TEXT NOT NULL,
			issued_at TIMESTAMP NOT NULL,
			returned_at TIMESTAMP,
			remarks TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_issuances_item ON issuances(stock_item_id);`,
		`CREATE TABLE IF NOT EXISTS orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			customer_name TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'open',
			created_by INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS expenses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			description TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			amount TEXT NOT NULL,
			spent_by INTEGER NOT NULL,
			spent_at TIMESTAMP NOT NULL
		);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
	}
}
