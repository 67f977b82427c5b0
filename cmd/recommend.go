package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/gapscout/internal/model"
	"github.com/sells-group/gapscout/internal/recommend"
)

var recommendFlags struct {
	cuisine       string
	attributes    []string
	maxRisk       string
	acceptedRisks []string
	maxPrice      float64
	minMarketSize int
	limit         int
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank areas for a restaurant concept",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initQuery(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		resp, err := env.Engine.Recommend(cmd.Context(), recommendQuery(cmd))
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), resp)
	},
}

// recommendQuery builds a Query from the command flags. --max-price is
// applied only when set.
func recommendQuery(cmd *cobra.Command) recommend.Query {
	f := recommendFlags
	q := recommend.Query{
		Cuisine:       f.cuisine,
		Attributes:    f.attributes,
		MaxRisk:       model.RiskLevel(strings.ToLower(f.maxRisk)),
		MinMarketSize: f.minMarketSize,
		Limit:         f.limit,
	}
	for _, r := range f.acceptedRisks {
		q.AcceptedRisks = append(q.AcceptedRisks, model.RiskLevel(strings.ToLower(r)))
	}
	if cmd.Flags().Changed("max-price") {
		p := f.maxPrice
		q.MaxPriceTier = &p
	}
	return q
}

func init() {
	f := recommendCmd.Flags()
	f.StringVar(&recommendFlags.cuisine, "cuisine", "", "cuisine of the concept")
	f.StringSliceVar(&recommendFlags.attributes, "attribute", nil, "required service attribute (repeatable)")
	f.StringVar(&recommendFlags.maxRisk, "max-risk", "", "highest accepted risk level: low, medium or high")
	f.StringSliceVar(&recommendFlags.acceptedRisks, "accept-risk", nil, "accepted risk level (repeatable, overrides --max-risk)")
	f.Float64Var(&recommendFlags.maxPrice, "max-price", 0, "maximum average price tier (1-4)")
	f.IntVar(&recommendFlags.minMarketSize, "min-market-size", 0, "minimum total reviews in the area")
	f.IntVar(&recommendFlags.limit, "limit", 0, "number of recommendations (default from config)")
	rootCmd.AddCommand(recommendCmd)
}
