package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/gapscout/internal/market"
	"github.com/sells-group/gapscout/internal/model"
)

var areaCmd = &cobra.Command{
	Use:   "area <zip>",
	Short: "Show the market profile of one area",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initQuery(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer env.Close()

		d, err := env.Explorer.Detail(args[0])
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), d)
	},
}

var oppFlags struct {
	cuisine       string
	minGapScore   float64
	minMarketSize int
	maxRisk       string
	sort          string
	limit         int
}

var opportunitiesCmd = &cobra.Command{
	Use:   "opportunities",
	Short: "List areas ranked by opportunity score",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initQuery(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Explorer.Opportunities(market.OpportunityQuery{
			Cuisine:       oppFlags.cuisine,
			MinGapScore:   oppFlags.minGapScore,
			MinMarketSize: oppFlags.minMarketSize,
			MaxRisk:       model.RiskLevel(strings.ToLower(oppFlags.maxRisk)),
			Sort:          oppFlags.sort,
			Limit:         oppFlags.limit,
		})
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), res)
	},
}

var weakFlags = market.DefaultWeakspotQuery()

var weakspotsCmd = &cobra.Command{
	Use:   "weakspots",
	Short: "List high-closure areas where incumbents struggle",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initQuery(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Explorer.Weakspots(weakFlags)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	o := opportunitiesCmd.Flags()
	o.StringVar(&oppFlags.cuisine, "cuisine", "", "only areas with a gap for this cuisine")
	o.Float64Var(&oppFlags.minGapScore, "min-gap-score", 0, "minimum gap score")
	o.IntVar(&oppFlags.minMarketSize, "min-market-size", 0, "minimum total reviews in the area")
	o.StringVar(&oppFlags.maxRisk, "max-risk", "", "highest accepted risk level")
	o.StringVar(&oppFlags.sort, "sort", market.SortOpportunity, "opportunity_score, market_size, stars or closure_risk")
	o.IntVar(&oppFlags.limit, "limit", 20, "number of results")

	w := weakspotsCmd.Flags()
	w.StringVar(&weakFlags.Cuisine, "cuisine", "", "cuisine whose incumbents to inspect")
	w.Float64Var(&weakFlags.MinClosureRate, "min-closure-rate", weakFlags.MinClosureRate, "minimum closure rate")
	w.IntVar(&weakFlags.MinExisting, "min-existing", weakFlags.MinExisting, "minimum existing restaurants of the cuisine")
	w.Float64Var(&weakFlags.MinAvgStars, "min-avg-stars", weakFlags.MinAvgStars, "minimum average stars")
	w.Float64Var(&weakFlags.MaxAvgStars, "max-avg-stars", weakFlags.MaxAvgStars, "maximum average stars")
	w.IntVar(&weakFlags.Limit, "limit", weakFlags.Limit, "number of results")

	rootCmd.AddCommand(areaCmd, opportunitiesCmd, weakspotsCmd)
}
