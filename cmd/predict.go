package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/gapscout/internal/store"
	"github.com/sells-group/gapscout/internal/survival"
)

var predictFlags struct {
	zip           string
	cuisine       string
	priceTier     float64
	expectedStars float64
	noiseLevel    string
	flags         map[string]int
}

// conceptFlags are the binary concept attributes accepted as --flag name=0|1.
var conceptFlags = map[string]func(c *survival.Concept, v *int){
	"has_delivery":        func(c *survival.Concept, v *int) { c.HasDelivery = v },
	"has_takeout":         func(c *survival.Concept, v *int) { c.HasTakeout = v },
	"has_outdoor_seating": func(c *survival.Concept, v *int) { c.HasOutdoorSeating = v },
	"good_for_kids":       func(c *survival.Concept, v *int) { c.GoodForKids = v },
	"has_reservations":    func(c *survival.Concept, v *int) { c.HasReservations = v },
	"has_wifi":            func(c *survival.Concept, v *int) { c.HasWiFi = v },
	"has_alcohol":         func(c *survival.Concept, v *int) { c.HasAlcohol = v },
	"has_tv":              func(c *survival.Concept, v *int) { c.HasTV = v },
	"good_for_groups":     func(c *survival.Concept, v *int) { c.GoodForGroups = v },
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Estimate the survival probability of a concept in one area",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := predictConcept(cmd)
		if err != nil {
			return err
		}

		env, err := initQuery(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer env.Close()

		p, ok := env.Snapshot.Get(predictFlags.zip)
		if !ok {
			return eris.Wrapf(store.ErrNotFound, "area %s", predictFlags.zip)
		}
		a, err := env.Assessor.Assess(cmd.Context(), c, p)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), a)
	},
}

// predictConcept builds a Concept from the flags. Unset optional flags stay
// nil so cuisine defaults apply.
func predictConcept(cmd *cobra.Command) (survival.Concept, error) {
	f := predictFlags
	c := survival.Concept{Cuisine: f.cuisine, NoiseLevel: f.noiseLevel}
	if cmd.Flags().Changed("price-tier") {
		v := f.priceTier
		c.PriceTier = &v
	}
	if cmd.Flags().Changed("expected-stars") {
		v := f.expectedStars
		c.ExpectedStars = &v
	}
	for name, v := range f.flags {
		set, ok := conceptFlags[name]
		if !ok {
			return c, eris.Errorf("unknown concept flag %q", name)
		}
		set(&c, &v)
	}
	return c, nil
}

func init() {
	f := predictCmd.Flags()
	f.StringVar(&predictFlags.zip, "zip", "", "area code")
	f.StringVar(&predictFlags.cuisine, "cuisine", "", "cuisine of the concept")
	f.Float64Var(&predictFlags.priceTier, "price-tier", 0, "price tier (1-4)")
	f.Float64Var(&predictFlags.expectedStars, "expected-stars", 0, "expected rating (1-5)")
	f.StringVar(&predictFlags.noiseLevel, "noise-level", "", "quiet, average, loud or very_loud")
	f.StringToIntVar(&predictFlags.flags, "flag", nil, "concept attribute override, e.g. has_delivery=1")
	_ = predictCmd.MarkFlagRequired("zip")
	_ = predictCmd.MarkFlagRequired("cuisine")
	rootCmd.AddCommand(predictCmd)
}
