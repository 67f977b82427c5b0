package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gapscout/internal/market"
	"github.com/sells-group/gapscout/internal/metrics"
	"github.com/sells-group/gapscout/internal/model"
	"github.com/sells-group/gapscout/internal/recommend"
	"github.com/sells-group/gapscout/internal/store"
	"github.com/sells-group/gapscout/internal/survival"
	"github.com/sells-group/gapscout/internal/tables"
)

// queryEnv holds everything the query commands and the server read from.
type queryEnv struct {
	Store    store.Store
	Tables   *tables.Tables
	Snapshot *store.Snapshot
	Assessor *survival.Assessor
	Engine   *recommend.Engine
	Explorer *market.Explorer
}

// Close releases the profile store.
func (qe *queryEnv) Close() {
	if qe.Store != nil {
		_ = qe.Store.Close()
	}
}

// loadTables returns the YAML override when configured, else the built-in
// tables.
func loadTables() (*tables.Tables, error) {
	if cfg.Tables.Path == "" {
		return tables.Default(), nil
	}
	t, err := tables.Load(cfg.Tables.Path)
	if err != nil {
		return nil, eris.Wrap(err, "load tables")
	}
	return t, nil
}

// loadLocalBusinesses reads the business snapshot used for area detail. A
// missing file is not an error; detail responses then omit local listings.
func loadLocalBusinesses() []model.Business {
	path := cfg.Input.BusinessesPath
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	bs, err := store.LoadBusinesses(path)
	if err != nil {
		zap.L().Warn("business snapshot not loaded", zap.String("path", path), zap.Error(err))
		return nil
	}
	return bs
}

// initQuery opens the store, loads the snapshot and wires the survival
// predictor, recommendation engine and market explorer. Callers should defer
// env.Close().
func initQuery(ctx context.Context, withBusinesses bool) (*queryEnv, error) {
	t, err := loadTables()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}

	var businesses []model.Business
	if withBusinesses {
		businesses = loadLocalBusinesses()
	}
	snap, err := store.LoadSnapshot(ctx, st, businesses)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	metrics.SnapshotProfiles.Set(float64(snap.Len()))

	predictor, err := survival.New(cfg.Survival)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "init survival predictor")
	}
	assessor := survival.NewAssessor(predictor, survival.ThresholdsFrom(cfg.Survival, predictor), t)

	opts := []recommend.EngineOption{
		recommend.WithConcurrency(cfg.Survival.Concurrency),
		recommend.WithSurvivalBudget(cfg.Survival.PrefetchBudget,
			time.Duration(cfg.Survival.PrefetchTimeoutMS)*time.Millisecond),
	}
	if survival.InfoOf(predictor).Loaded {
		opts = append(opts, recommend.WithAssessor(assessor))
	}

	zap.L().Info("snapshot loaded",
		zap.Int("profiles", snap.Len()),
		zap.Bool("businesses", snap.HasBusinesses()),
		zap.String("predictor", survival.InfoOf(predictor).Provider),
	)

	return &queryEnv{
		Store:    st,
		Tables:   t,
		Snapshot: snap,
		Assessor: assessor,
		Engine:   recommend.NewEngine(snap, t, cfg.Recommend, opts...),
		Explorer: market.NewExplorer(snap, t),
	}, nil
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "encode output")
	}
	return nil
}

// outputWriter returns stdout for "" or "-", else a created file.
func outputWriter(stdout io.Writer, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "create %s", path)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
