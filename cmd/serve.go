package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/gapscout/internal/api"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:         "serve",
	Short:       "Serve recommendations and market exploration over HTTP",
	Annotations: map[string]string{modeAnnotation: "serve"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initQuery(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := api.NewServer(api.Deps{
			Snapshot:    env.Snapshot,
			Engine:      env.Engine,
			Explorer:    env.Explorer,
			Assessor:    env.Assessor,
			CORSOrigins: cfg.Server.CORSOrigins,
		})
		if err := srv.ListenAndServe(ctx, fmt.Sprintf(":%d", port)); err != nil {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
