package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gapscout/internal/db"
	"github.com/sells-group/gapscout/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	if minConns > maxConns {
		minConns = maxConns
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const profileTable = "area_profiles"

const postgresMigration = `
CREATE TABLE IF NOT EXISTS area_profiles (
	zip           TEXT PRIMARY KEY,
	city          TEXT NOT NULL,
	run_id        TEXT NOT NULL,
	closure_rate  DOUBLE PRECISION NOT NULL,
	total_reviews INTEGER NOT NULL,
	centroid      BYTEA,
	profile       JSONB NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_area_profiles_city ON area_profiles(city);
CREATE INDEX IF NOT EXISTS idx_area_profiles_run_id ON area_profiles(run_id);
`

// Migrate creates the profile table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
		return nil
	}
	s.pool.Close()
	return nil
}

// SaveProfiles upserts the new set keyed by area code and prunes rows left
// over from earlier runs, all in one transaction.
func (s *PostgresStore) SaveProfiles(ctx context.Context, runID string, profiles []model.AreaProfile) error {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(profiles))
	for i := range profiles {
		row, err := profileRow(runID, profiles[i])
		if err != nil {
			return err
		}
		rows = append(rows, append(row, now))
	}

	res, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        profileTable,
		Columns:      append(append([]string(nil), profileColumns...), "updated_at"),
		ConflictKeys: []string{"zip"},
		PruneColumn:  "run_id",
		PruneValue:   runID,
	}, rows)
	if err != nil {
		return eris.Wrap(err, "postgres: save profiles")
	}

	zap.L().Debug("postgres: profiles saved",
		zap.String("run_id", runID),
		zap.Int64("upserted", res.Upserted),
		zap.Int64("pruned", res.Pruned),
	)
	return nil
}

// LoadProfiles returns every stored profile ordered by area code.
func (s *PostgresStore) LoadProfiles(ctx context.Context) ([]model.AreaProfile, error) {
	rows, err := s.pool.Query(ctx, `SELECT profile FROM area_profiles ORDER BY zip`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load profiles")
	}
	defer rows.Close()

	var out []model.AreaProfile
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan profile")
		}
		p, err := decodeProfile(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate profiles")
}

// GetProfile returns the profile for one area code.
func (s *PostgresStore) GetProfile(ctx context.Context, zip string) (*model.AreaProfile, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT profile FROM area_profiles WHERE zip = $1`, zip).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: profile %s", zip)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get profile %s", zip)
	}
	p, err := decodeProfile(raw)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
