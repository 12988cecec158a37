package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"meteoplan/internal/model"
)

// dialect holds the SQL that differs between the supported databases.
type dialect struct {
	name      string
	schema    []string
	dayCol    string // selects the day as YYYY-MM-DD text
	monthExpr string // month number (1..12) of the day column
	dayArg    func(time.Time) any
	rebind    func(string) string
}

// SQL is a Store backed by a database/sql connection.
type SQL struct {
	db *sql.DB
	d  dialect
}

func (s *SQL) q(query string) string {
	if s.d.rebind == nil {
		return query
	}
	return s.d.rebind(query)
}

// Migrate creates the tables if they do not exist.
func (s *SQL) Migrate(ctx context.Context) error {
	for _, stmt := range s.d.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s migrate: %w", s.d.name, err)
		}
	}
	return nil
}

func (s *SQL) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *SQL) Close() error                   { return s.db.Close() }

func (s *SQL) ListLocations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT location FROM readings ORDER BY location`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var loc string
		if err := rows.Scan(&loc); err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

func (s *SQL) ReadingsFor(ctx context.Context, location string, month int) ([]model.Reading, error) {
	query := fmt.Sprintf(`SELECT location, %s, humidity FROM readings WHERE location=$1 AND %s=$2 ORDER BY day`, s.d.dayCol, s.d.monthExpr)
	rows, err := s.db.QueryContext(ctx, s.q(query), location, month)
	if err != nil {
		return nil, err
	}
	return scanReadings(rows)
}

func (s *SQL) AllReadings(ctx context.Context) ([]model.Reading, error) {
	query := fmt.Sprintf(`SELECT location, %s, humidity FROM readings ORDER BY day, location`, s.d.dayCol)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return scanReadings(rows)
}

func scanReadings(rows *sql.Rows) ([]model.Reading, error) {
	defer rows.Close()
	out := []model.Reading{}
	for rows.Next() {
		var (
			r   model.Reading
			day string
		)
		if err := rows.Scan(&r.Location, &day, &r.Humidity); err != nil {
			return nil, err
		}
		t, err := time.Parse(model.DateLayout, day)
		if err != nil {
			return nil, fmt.Errorf("reading %s: bad day %q: %w", r.Location, day, err)
		}
		r.Date = t
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQL) AverageHumidity(ctx context.Context, month int) ([]model.MonthlyAverage, error) {
	query := fmt.Sprintf(`SELECT location, AVG(humidity), COUNT(*) FROM readings WHERE %s=$1 GROUP BY location ORDER BY location`, s.d.monthExpr)
	rows, err := s.db.QueryContext(ctx, s.q(query), month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.MonthlyAverage{}
	for rows.Next() {
		a := model.MonthlyAverage{Month: month}
		if err := rows.Scan(&a.Location, &a.Average, &a.Count); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// InsertReadings upserts readings by (location, day) in one transaction.
func (s *SQL) InsertReadings(ctx context.Context, readings []model.Reading) (int, error) {
	for _, r := range readings {
		if err := validateReading(r); err != nil {
			return 0, err
		}
	}
	if len(readings) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx, s.q(`INSERT INTO readings (location, day, humidity) VALUES ($1,$2,$3)
        ON CONFLICT (location, day) DO UPDATE SET humidity = EXCLUDED.humidity`))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for _, r := range readings {
		if _, err := stmt.ExecContext(ctx, r.Location, s.d.dayArg(r.Date), r.Humidity); err != nil {
			return 0, fmt.Errorf("insert %s %s: %w", r.Location, r.Day(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(readings), nil
}

func (s *SQL) GetSearchParams(ctx context.Context) (model.SearchParams, error) {
	var (
		p   model.SearchParams
		raw string
	)
	err := s.db.QueryRowContext(ctx, `SELECT params FROM optimizer_config WHERE id=1`).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, ErrNotFound
		}
		return p, err
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, fmt.Errorf("decode optimizer config: %w", err)
	}
	return p, nil
}

func (s *SQL) SaveSearchParams(ctx context.Context, p model.SearchParams) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO optimizer_config (id, params) VALUES (1, $1)
        ON CONFLICT (id) DO UPDATE SET params = EXCLUDED.params`), string(b))
	return err
}

var placeholderRe = regexp.MustCompile(`\$\d+`)

// questionMarks rewrites $1..$n placeholders to '?' for drivers that bind by position.
func questionMarks(query string) string {
	return placeholderRe.ReplaceAllString(query, "?")
}
