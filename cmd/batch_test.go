package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gapscout/internal/config"
	"github.com/sells-group/gapscout/internal/gap"
	"github.com/sells-group/gapscout/internal/recommend"
	"github.com/sells-group/gapscout/internal/report"
	"github.com/sells-group/gapscout/internal/store"
)

// writeSnapshot writes an NDJSON business snapshot: four Italian places in
// Cherry Hill and three Mexican places in Marlton, about 10 km apart.
func writeSnapshot(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	for i := 0; i < 4; i++ {
		fmt.Fprintf(&b, `{"business_id":"ch-%d","name":"Trattoria %d","postal_code":"08002","city":"Cherry Hill","latitude":39.93,"longitude":-75.02,"categories":"Restaurants, Italian","stars":4.0,"review_count":%d,"is_open":1,"attributes":{"RestaurantsPriceRange2":"2"}}`+"\n", i, i, 100+i)
	}
	for i := 0; i < 3; i++ {
		fmt.Fprintf(&b, `{"business_id":"ml-%d","name":"Cantina %d","postal_code":"08053","city":"Marlton","latitude":39.89,"longitude":-74.92,"categories":"Restaurants, Mexican","stars":3.5,"review_count":%d,"is_open":1,"attributes":{"RestaurantsPriceRange2":"2","BYOB":true}}`+"\n", i, i, 200+i)
	}
	path := filepath.Join(dir, "businesses.ndjson")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

// useTestConfig points the global config at a temp JSON store.
func useTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prev := cfg
	cfg = &config.Config{
		Store:     config.StoreConfig{Driver: "json", Path: filepath.Join(dir, "profiles.json")},
		Input:     config.InputConfig{BusinessesPath: writeSnapshot(t, dir)},
		Gap:       gap.DefaultConfig(),
		Recommend: recommend.DefaultConfig(),
		Survival: config.SurvivalConfig{
			Provider:      "none",
			Concurrency:   2,
			HighThreshold: 0.75,
			Threshold:     0.55,
			LowThreshold:  0.40,
		},
	}
	t.Cleanup(func() { cfg = prev })
	return dir
}

func runCommand(t *testing.T, cmd *cobra.Command) string {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	t.Cleanup(func() { cmd.SetOut(nil) })
	require.NoError(t, cmd.RunE(cmd, nil))
	return out.String()
}

func TestBatch_BuildsAndSavesProfiles(t *testing.T) {
	useTestConfig(t)

	out := runCommand(t, batchCmd)
	var stats gap.BuildStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 7, stats.Businesses)
	assert.Equal(t, 2, stats.Areas)
	assert.Equal(t, 2, stats.WithGaps)
	assert.NotEmpty(t, stats.RunID)

	st, err := store.Open(context.Background(), cfg.Store)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	p, err := st.GetProfile(context.Background(), "08053")
	require.NoError(t, err)
	assert.Equal(t, "Marlton", p.City)
	assert.Equal(t, 1, p.NumNeighbors)
	require.NotEmpty(t, p.CuisineGaps)
	assert.Equal(t, "Italian", p.CuisineGaps[0].Cuisine)
	assert.InDelta(t, 4.0, p.CuisineGaps[0].GapScore, 1e-9)
}

func TestBatch_DryRunSkipsStore(t *testing.T) {
	useTestConfig(t)
	batchDryRun = true
	t.Cleanup(func() { batchDryRun = false })

	runCommand(t, batchCmd)
	_, err := os.Stat(cfg.Store.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestInitQuery_AfterBatch(t *testing.T) {
	useTestConfig(t)
	runCommand(t, batchCmd)

	env, err := initQuery(context.Background(), true)
	require.NoError(t, err)
	defer env.Close()

	assert.Equal(t, 2, env.Snapshot.Len())
	assert.True(t, env.Snapshot.HasBusinesses())
	assert.False(t, env.Assessor == nil)

	d, err := env.Explorer.Detail("08002")
	require.NoError(t, err)
	assert.Len(t, d.LocalRestaurants, 4)
	assert.Equal(t, "Trattoria 3", d.LocalRestaurants[0].Name)

	resp, err := env.Engine.Recommend(context.Background(), recommend.Query{Cuisine: "Italian"})
	require.NoError(t, err)
	assert.False(t, resp.SurvivalAvailable)
	var zips []string
	for _, r := range resp.Recommendations {
		zips = append(zips, r.Zip)
	}
	assert.Contains(t, zips, "08053")
}

func TestReport_CSVAndXLSX(t *testing.T) {
	dir := useTestConfig(t)
	runCommand(t, batchCmd)

	recommendFlags.cuisine = "Italian"
	t.Cleanup(func() {
		recommendFlags.cuisine = ""
		reportFormat, reportOut = "xlsx", ""
	})

	reportFormat = "csv"
	out := runCommand(t, reportCmd)
	assert.Contains(t, out, "08053")

	reportFormat = "xlsx"
	reportOut = filepath.Join(dir, "report.xlsx")
	runCommand(t, reportCmd)
	rows, err := report.ReadSheet(reportOut, "Recommendations")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(rows), 2)
}

func TestReport_XLSXNeedsOut(t *testing.T) {
	useTestConfig(t)
	reportFormat, reportOut = "xlsx", ""
	reportCmd.SetContext(context.Background())
	assert.Error(t, reportCmd.RunE(reportCmd, nil))
}
