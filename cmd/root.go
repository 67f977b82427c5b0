package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gapscout/internal/config"
)

var cfg *config.Config

// modeAnnotation selects the config.Validate mode of a command.
const modeAnnotation = "mode"

var rootCmd = &cobra.Command{
	Use:   "gapscout",
	Short: "Restaurant concept gap analysis",
	Long:  "Builds per-area supply and demand gap profiles from a business snapshot and ranks areas for a restaurant concept.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		mode := cmd.Annotations[modeAnnotation]
		if mode == "" {
			mode = "query"
		}
		return cfg.Validate(mode)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
