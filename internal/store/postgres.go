package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var postgresDialect = dialect{
	name: "postgres",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS readings (
            location TEXT NOT NULL,
            day DATE NOT NULL,
            humidity DOUBLE PRECISION NOT NULL,
            PRIMARY KEY (location, day)
        )`,
		`CREATE INDEX IF NOT EXISTS readings_day_idx ON readings (day)`,
		`CREATE TABLE IF NOT EXISTS optimizer_config (
            id INTEGER PRIMARY KEY,
            params TEXT NOT NULL
        )`,
	},
	dayCol:    `to_char(day, 'YYYY-MM-DD')`,
	monthExpr: `EXTRACT(MONTH FROM day)::int`,
	dayArg:    func(t time.Time) any { return t },
}

// NewPostgres opens a Postgres-backed store through the pgx stdlib driver.
func NewPostgres(ctx context.Context, dsn string) (*SQL, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQL{db: db, d: postgresDialect}, nil
}
