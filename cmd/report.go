package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gapscout/internal/report"
)

var (
	reportFormat string
	reportOut    string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export a recommendation run as xlsx, csv or json",
	Long:  "Runs the same query as recommend (same flags) and writes the result as a workbook, a CSV sheet or JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if reportFormat == "xlsx" && (reportOut == "" || reportOut == "-") {
			return eris.New("report: --out is required for xlsx")
		}

		env, err := initQuery(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		resp, err := env.Engine.Recommend(cmd.Context(), recommendQuery(cmd))
		if err != nil {
			return err
		}

		if reportFormat == "xlsx" {
			if err := report.SaveXLSX(reportOut, resp); err != nil {
				return err
			}
			zap.L().Info("report written", zap.String("path", reportOut), zap.Int("rows", resp.Count))
			return nil
		}

		w, err := outputWriter(cmd.OutOrStdout(), reportOut)
		if err != nil {
			return err
		}
		switch reportFormat {
		case "csv":
			err = report.WriteCSV(w, resp)
		case "json":
			err = writeJSON(w, resp)
		default:
			err = eris.Errorf("report: unknown format %q", reportFormat)
		}
		if cerr := w.Close(); err == nil && cerr != nil {
			err = eris.Wrap(cerr, "report: close output")
		}
		return err
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "xlsx", "xlsx, csv or json")
	reportCmd.Flags().StringVar(&reportOut, "out", "", "output path (stdout for csv and json when empty)")
	reportCmd.Flags().AddFlagSet(recommendCmd.Flags())
	rootCmd.AddCommand(reportCmd)
}
