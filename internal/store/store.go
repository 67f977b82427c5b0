// Package store persists area profiles and serves them as a read-only
// snapshot to the query pipeline.
package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gapscout/internal/config"
	"github.com/sells-group/gapscout/internal/model"
)

// ErrNotFound is returned when an area code has no profile.
var ErrNotFound = eris.New("store: not found")

// Store defines persistence for the materialized area profiles. Every batch
// run replaces the stored set wholesale.
type Store interface {
	// SaveProfiles replaces all stored profiles with the given set.
	SaveProfiles(ctx context.Context, runID string, profiles []model.AreaProfile) error
	// LoadProfiles returns every stored profile sorted by area code.
	LoadProfiles(ctx context.Context) ([]model.AreaProfile, error)
	// GetProfile returns one profile or ErrNotFound.
	GetProfile(ctx context.Context, zip string) (*model.AreaProfile, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the store selected by cfg.Driver and runs its migration.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch strings.ToLower(cfg.Driver) {
	case "json", "":
		st = NewJSON(cfg.Path)
	case "sqlite":
		st, err = NewSQLite(cfg.Path)
	case "postgres":
		st, err = NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns})
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// findProfile returns the profile with the given area code.
func findProfile(profiles []model.AreaProfile, zip string) (*model.AreaProfile, error) {
	for i := range profiles {
		if profiles[i].Zip == zip {
			p := profiles[i]
			return &p, nil
		}
	}
	return nil, eris.Wrapf(ErrNotFound, "store: profile %s", zip)
}
