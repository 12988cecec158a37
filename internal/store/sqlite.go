package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"meteoplan/internal/model"
)

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS readings (
            location TEXT NOT NULL,
            day TEXT NOT NULL,
            humidity REAL NOT NULL,
            PRIMARY KEY (location, day)
        )`,
		`CREATE INDEX IF NOT EXISTS readings_day_idx ON readings (day)`,
		`CREATE TABLE IF NOT EXISTS optimizer_config (
            id INTEGER PRIMARY KEY,
            params TEXT NOT NULL
        )`,
	},
	dayCol:    `day`,
	monthExpr: `CAST(strftime('%m', day) AS INTEGER)`,
	dayArg:    func(t time.Time) any { return t.Format(model.DateLayout) },
	rebind:    questionMarks,
}

// NewSQLite opens (creating if needed) a SQLite database file.
func NewSQLite(ctx context.Context, path string) (*SQL, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	// single connection so writers never contend
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &SQL{db: db, d: sqliteDialect}, nil
}
