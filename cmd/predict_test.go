package main

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gapscout/internal/store"
	"github.com/sells-group/gapscout/internal/survival"
)

// freshPredictCmd returns a command carrying the predict flags without
// touching the registered command's flag state.
func freshPredictCmd(t *testing.T) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "predict"}
	c.Flags().Float64Var(&predictFlags.priceTier, "price-tier", 0, "")
	c.Flags().Float64Var(&predictFlags.expectedStars, "expected-stars", 0, "")
	t.Cleanup(func() {
		predictFlags.priceTier, predictFlags.expectedStars = 0, 0
		predictFlags.cuisine, predictFlags.zip, predictFlags.flags = "", "", nil
	})
	return c
}

func TestPredictConcept(t *testing.T) {
	c := freshPredictCmd(t)
	require.NoError(t, c.Flags().Set("price-tier", "3"))
	predictFlags.cuisine = "Thai"
	predictFlags.flags = map[string]int{"has_delivery": 1, "good_for_kids": 0}

	concept, err := predictConcept(c)
	require.NoError(t, err)
	assert.Equal(t, "Thai", concept.Cuisine)
	require.NotNil(t, concept.PriceTier)
	assert.Equal(t, 3.0, *concept.PriceTier)
	assert.Nil(t, concept.ExpectedStars)
	require.NotNil(t, concept.HasDelivery)
	assert.Equal(t, 1, *concept.HasDelivery)
	require.NotNil(t, concept.GoodForKids)
	assert.Equal(t, 0, *concept.GoodForKids)
	assert.Nil(t, concept.HasTakeout)
}

func TestPredictConcept_UnknownFlag(t *testing.T) {
	c := freshPredictCmd(t)
	predictFlags.cuisine = "Thai"
	predictFlags.flags = map[string]int{"has_valet": 1}

	_, err := predictConcept(c)
	assert.ErrorContains(t, err, "has_valet")
}

func TestPredict_NoModelIsUnavailable(t *testing.T) {
	useTestConfig(t)
	runCommand(t, batchCmd)
	freshPredictCmd(t)
	predictFlags.zip, predictFlags.cuisine = "08053", "Italian"

	predictCmd.SetContext(context.Background())
	err := predictCmd.RunE(predictCmd, nil)
	assert.True(t, eris.Is(err, survival.ErrUnavailable), "got %v", err)
}

func TestPredict_UnknownArea(t *testing.T) {
	useTestConfig(t)
	runCommand(t, batchCmd)
	freshPredictCmd(t)
	predictFlags.zip, predictFlags.cuisine = "99999", "Italian"

	predictCmd.SetContext(context.Background())
	err := predictCmd.RunE(predictCmd, nil)
	assert.True(t, eris.Is(err, store.ErrNotFound), "got %v", err)
}
