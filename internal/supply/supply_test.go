package supply

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gapscout/internal/model"
	"github.com/sells-group/gapscout/internal/tables"
)

func ptr(v float64) *float64 { return &v }

func biz(categories string, open bool, stars float64, attrs model.Attributes) model.Business {
	b := model.Business{Categories: categories, Attributes: attrs}
	if open {
		b.IsOpen = 1
	}
	if stars > 0 {
		b.Stars = ptr(stars)
	}
	return b
}

func TestCuisinesOf(t *testing.T) {
	a := NewAggregator(tables.Default())

	assert.Equal(t, []string{"Japanese", "Sushi"}, a.CuisinesOf("Restaurants, Sushi Bars, japanese"))
	assert.Equal(t, []string{"Italian", "Pizza"}, a.CuisinesOf("Pizza, Italian"))
	assert.Empty(t, a.CuisinesOf("Nail Salons"))
	assert.Empty(t, a.CuisinesOf(""))
}

func TestCuisineCounts_OpenOnly(t *testing.T) {
	a := NewAggregator(tables.Default())
	bs := []model.Business{
		biz("Italian, Pizza", true, 4, nil),
		biz("Italian", true, 3, nil),
		biz("Italian", false, 5, nil),
		biz("Thai", false, 4, nil),
	}

	counts := a.CuisineCounts(bs)
	assert.Equal(t, map[string]int{"Italian": 2, "Pizza": 1}, counts)
}

func TestCuisineRatings_IncludesClosed(t *testing.T) {
	a := NewAggregator(tables.Default())
	tests := []struct {
		name string
		bs   []model.Business
		want map[string]float64
	}{
		{
			name: "closed businesses count",
			bs: []model.Business{
				biz("Italian, Pizza", true, 4, nil),
				biz("Italian", true, 3, nil),
				biz("Italian", false, 5, nil),
				biz("Thai", false, 4, nil),
			},
			want: map[string]float64{"Italian": 4, "Pizza": 4, "Thai": 4},
		},
		{
			name: "unrated businesses skipped",
			bs: []model.Business{
				biz("Thai", false, 0, nil),
				biz("Thai", true, 3.5, nil),
				biz("Korean", true, 0, nil),
			},
			want: map[string]float64{"Thai": 3.5},
		},
		{
			name: "rounded to three decimals",
			bs: []model.Business{
				biz("Thai", true, 4, nil),
				biz("Thai", false, 4, nil),
				biz("Thai", false, 3, nil),
			},
			want: map[string]float64{"Thai": 3.667},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.CuisineRatings(tt.bs)
			require.Len(t, got, len(tt.want))
			for c, v := range tt.want {
				assert.InDelta(t, v, got[c], 0.0001, c)
			}
		})
	}
}

func TestAttributeRate(t *testing.T) {
	tb := tables.Default()
	a := NewAggregator(tb)
	byob, _ := tb.Attribute("BYOB")
	wifi, _ := tb.Attribute("Free WiFi")
	delivery, _ := tb.Attribute("Delivery")

	bs := []model.Business{
		biz("Italian", true, 4, model.Attributes{"BYOB": "True", "WiFi": "u'free'"}),
		biz("Italian", false, 4, model.Attributes{"BYOBCorkage": "'yes_corkage'", "WiFi": "u'no'"}),
		biz("Thai", true, 4, model.Attributes{"BYOB": "False", "WiFi": "'paid'", "RestaurantsDelivery": "None"}),
		biz("Thai", true, 4, nil),
	}

	// closed businesses count toward attribute rates
	assert.InDelta(t, 0.5, a.AttributeRate(bs, byob), 0.0001)
	assert.InDelta(t, 0.5, a.AttributeRate(bs, wifi), 0.0001)
	assert.InDelta(t, 0.0, a.AttributeRate(bs, delivery), 0.0001)
	assert.Equal(t, 0.0, a.AttributeRate(nil, byob))
}

func TestSortedCuisines(t *testing.T) {
	assert.Equal(t, []string{"Italian", "Pizza", "Thai"}, SortedCuisines(map[string]int{"Thai": 1, "Pizza": 1, "Italian": 5}))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 5.33, Round(24/4.5, 2))
	assert.Equal(t, 0.4286, Round(3.0/7.0, 4))
}
