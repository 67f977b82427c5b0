package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rate float64
		want RiskLevel
	}{
		{0, RiskLow},
		{0.19, RiskLow},
		{0.20, RiskMedium},
		{0.3499, RiskMedium},
		{0.35, RiskHigh},
		{0.42, RiskHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskOf(tt.rate), "closure rate %v", tt.rate)
	}
}

func TestRisksUpTo(t *testing.T) {
	assert.Equal(t, []RiskLevel{RiskLow}, RisksUpTo(RiskLow))
	assert.Equal(t, []RiskLevel{RiskLow, RiskMedium}, RisksUpTo(RiskMedium))
	assert.Len(t, RisksUpTo(RiskHigh), 3)
}

func TestAreaProfile_Helpers(t *testing.T) {
	p := AreaProfile{
		CuisineGaps: []CuisineGap{{Cuisine: "Japanese", GapScore: 5.33}},
		AttributeGaps: []AttributeGap{
			{Attribute: "BYOB", Gap: 0.27},
			{Attribute: "Delivery", Gap: 0.1},
		},
	}

	top, ok := p.TopGap()
	assert.True(t, ok)
	assert.Equal(t, "Japanese", top.Cuisine)
	assert.True(t, p.HasAttributeGap("BYOB"))
	assert.False(t, p.HasAttributeGap("Late Night"))
	assert.Equal(t, []string{"BYOB", "Delivery"}, p.AttributeLabels())

	_, ok = AreaProfile{}.TopGap()
	assert.False(t, ok)
}
