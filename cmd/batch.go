package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gapscout/internal/gap"
	"github.com/sells-group/gapscout/internal/metrics"
	"github.com/sells-group/gapscout/internal/model"
	"github.com/sells-group/gapscout/internal/store"
)

var (
	batchInput  string
	batchDryRun bool
)

var batchCmd = &cobra.Command{
	Use:         "batch",
	Short:       "Build area gap profiles from the business snapshot",
	Long:        "Groups businesses by area, links neighboring areas, scores cuisine and attribute gaps and replaces the stored profile set.",
	Annotations: map[string]string{modeAnnotation: "batch"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		path := batchInput
		if path == "" {
			path = cfg.Input.BusinessesPath
		}
		businesses, err := store.LoadBusinesses(path)
		if err != nil {
			return err
		}

		t, err := loadTables()
		if err != nil {
			return err
		}

		profiles, stats, err := gap.NewBuilder(cfg.Gap, t).Build(ctx, businesses)
		if err != nil {
			return err
		}
		metrics.ProfilesBuilt.Set(float64(len(profiles)))

		if !batchDryRun {
			if err := saveProfiles(ctx, stats.RunID, profiles); err != nil {
				return err
			}
		}
		return writeJSON(cmd.OutOrStdout(), stats)
	},
}

// saveProfiles replaces the stored profile set with the output of one run.
func saveProfiles(ctx context.Context, runID string, profiles []model.AreaProfile) error {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return eris.Wrap(err, "open store")
	}
	defer st.Close() //nolint:errcheck

	if err := st.SaveProfiles(ctx, runID, profiles); err != nil {
		return eris.Wrap(err, "save profiles")
	}
	zap.L().Info("profiles saved",
		zap.String("run_id", runID),
		zap.String("driver", cfg.Store.Driver),
		zap.Int("profiles", len(profiles)),
	)
	return nil
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "business snapshot path (default from config)")
	batchCmd.Flags().BoolVar(&batchDryRun, "dry-run", false, "build profiles without saving them")
	rootCmd.AddCommand(batchCmd)
}
