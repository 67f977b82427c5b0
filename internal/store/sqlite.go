package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/gapscout/internal/geo"
	"github.com/sells-group/gapscout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS area_profiles (
	zip           TEXT PRIMARY KEY,
	city          TEXT NOT NULL,
	run_id        TEXT NOT NULL,
	closure_rate  REAL NOT NULL,
	total_reviews INTEGER NOT NULL,
	centroid      BLOB,
	profile       TEXT NOT NULL,
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_area_profiles_city ON area_profiles(city);
CREATE INDEX IF NOT EXISTS idx_area_profiles_run_id ON area_profiles(run_id);
`

// Migrate creates the profile table.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveProfiles deletes every stored profile and inserts the new set in one
// transaction.
func (s *SQLiteStore) SaveProfiles(ctx context.Context, runID string, profiles []model.AreaProfile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM area_profiles`); err != nil {
		return eris.Wrap(err, "sqlite: clear profiles")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO area_profiles (zip, city, run_id, closure_rate, total_reviews, centroid, profile)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for i := range profiles {
		row, err := profileRow(runID, profiles[i])
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return eris.Wrapf(err, "sqlite: insert profile %s", profiles[i].Zip)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit profiles")
	}
	return nil
}

// LoadProfiles returns every stored profile ordered by area code.
func (s *SQLiteStore) LoadProfiles(ctx context.Context) ([]model.AreaProfile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT profile FROM area_profiles ORDER BY zip`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load profiles")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.AreaProfile
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan profile")
		}
		p, err := decodeProfile([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate profiles")
}

// GetProfile returns the profile for one area code.
func (s *SQLiteStore) GetProfile(ctx context.Context, zip string) (*model.AreaProfile, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT profile FROM area_profiles WHERE zip = ?`, zip).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: profile %s", zip)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get profile %s", zip)
	}
	p, err := decodeProfile([]byte(raw))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// profileColumns is the column order produced by profileRow.
var profileColumns = []string{"zip", "city", "run_id", "closure_rate", "total_reviews", "centroid", "profile"}

// profileRow flattens a profile into the column order of profileColumns.
// The centroid is stored as EWKB next to the full JSON document.
func profileRow(runID string, p model.AreaProfile) ([]any, error) {
	doc, err := json.Marshal(p)
	if err != nil {
		return nil, eris.Wrapf(err, "store: marshal profile %s", p.Zip)
	}
	centroid, err := geo.EncodeEWKB(geo.NewPoint(p.Latitude, p.Longitude))
	if err != nil {
		return nil, eris.Wrapf(err, "store: encode centroid %s", p.Zip)
	}
	return []any{p.Zip, p.City, runID, p.ClosureRate, p.TotalReviews, centroid, string(doc)}, nil
}

func decodeProfile(raw []byte) (model.AreaProfile, error) {
	var p model.AreaProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, eris.Wrap(err, "store: unmarshal profile")
	}
	return p, nil
}
