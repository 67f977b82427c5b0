package recommend

import (
	"strconv"
	"strings"

	"github.com/sells-group/gapscout/internal/model"
	"github.com/sells-group/gapscout/internal/tables"
	"github.com/sells-group/gapscout/internal/validate"
)

// Query is a concept search.
type Query struct {
	Cuisine string `json:"cuisine,omitempty" validate:"max=64"`
	// Attributes are required service attributes, by label or parameter name.
	Attributes []string `json:"attributes,omitempty" validate:"max=16,dive,required"`
	// MaxRisk accepts every risk level up to and including it.
	MaxRisk model.RiskLevel `json:"max_risk,omitempty" validate:"omitempty,oneof=low medium high"`
	// AcceptedRisks, when set, takes precedence over MaxRisk.
	AcceptedRisks []model.RiskLevel `json:"accepted_risks,omitempty" validate:"dive,oneof=low medium high"`
	MaxPriceTier  *float64          `json:"max_price_tier,omitempty" validate:"omitempty,gte=1,lte=4"`
	MinMarketSize int               `json:"min_market_size,omitempty" validate:"gte=0"`
	Limit         int               `json:"limit,omitempty" validate:"gte=0,lte=30"`
}

// resolved is a validated query with tables lookups applied.
type resolved struct {
	Query
	cuisine    string // vocabulary label, or the trimmed input when unknown
	family     []string
	attributes []tables.AttributeDef
	accepted   map[model.RiskLevel]bool
	limit      int
}

func (r resolved) hasCuisine() bool { return r.cuisine != "" }

// resolve validates q and looks up its cuisine family and attributes.
func resolve(q Query, t *tables.Tables, defaultLimit, maxLimit int) (resolved, error) {
	if err := validate.Struct(q); err != nil {
		return resolved{}, err
	}
	r := resolved{Query: q, accepted: make(map[model.RiskLevel]bool), limit: q.Limit}

	if c := strings.TrimSpace(q.Cuisine); c != "" {
		r.cuisine = c
		if label, ok := t.Cuisine(c); ok {
			r.cuisine = label
		}
		r.family = t.Family(r.cuisine)
	}

	seen := make(map[string]bool)
	for _, name := range q.Attributes {
		def, ok := t.Attribute(name)
		if !ok {
			return resolved{}, validate.Invalid("attributes", "unknown attribute "+name)
		}
		if seen[def.Label] {
			continue
		}
		seen[def.Label] = true
		r.attributes = append(r.attributes, def)
	}

	switch {
	case len(q.AcceptedRisks) > 0:
		for _, l := range q.AcceptedRisks {
			r.accepted[l] = true
		}
	case q.MaxRisk != "":
		for _, l := range model.RisksUpTo(q.MaxRisk) {
			r.accepted[l] = true
		}
	default:
		for _, l := range model.RisksUpTo(model.RiskHigh) {
			r.accepted[l] = true
		}
	}

	if r.limit == 0 {
		r.limit = defaultLimit
	}
	if maxLimit > 0 && r.limit > maxLimit {
		return resolved{}, validate.Invalid("limit", "limit must be at most "+strconv.Itoa(maxLimit))
	}
	return r, nil
}
