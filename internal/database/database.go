package database

import (
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Connect opens a SQLite database using the provided DSN.
func Connect(dsn string) *sqlx.DB {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	// A single connection serializes writers and keeps :memory: databases
	// on one handle.
	db.SetMaxOpenConns(1)
	return db
}
