// Package store persists processing reports in SQLite, PostgreSQL or memory.
package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know as a ? driver
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Open connects to the report database and verifies the connection.
// driver is "sqlite" or "postgres".
func Open(ctx context.Context, driver, url string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// one writer keeps SQLite free of SQLITE_BUSY and shares :memory: across calls
		db.SetMaxOpenConns(1)
		for _, p := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode = WAL"} {
			if _, err := db.ExecContext(ctx, p); err != nil {
				db.Close()
				return nil, fmt.Errorf("store: pragma %q: %w", p, err)
			}
		}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", driver, err)
	}
	return db, nil
}
