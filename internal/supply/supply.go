// Package supply counts local cuisine supply and service-attribute
// penetration over a group of businesses.
package supply

import (
	"sort"
	"strings"

	"github.com/sells-group/gapscout/internal/model"
	"github.com/sells-group/gapscout/internal/tables"
)

// Aggregator computes supply statistics against a fixed cuisine vocabulary.
type Aggregator struct {
	tables   *tables.Tables
	keywords []keyword
}

type keyword struct {
	label  string
	folded string
}

// NewAggregator builds an Aggregator over the tables' cuisine vocabulary.
func NewAggregator(t *tables.Tables) *Aggregator {
	a := &Aggregator{tables: t, keywords: make([]keyword, 0, len(t.Cuisines))}
	for _, c := range t.Cuisines {
		a.keywords = append(a.keywords, keyword{label: c, folded: tables.Key(c)})
	}
	return a
}

// CuisinesOf returns the vocabulary cuisines contained case-insensitively in
// a comma-separated category string, in vocabulary order.
func (a *Aggregator) CuisinesOf(categories string) []string {
	if categories == "" {
		return nil
	}
	folded := tables.Key(categories)
	var out []string
	for _, k := range a.keywords {
		if strings.Contains(folded, k.folded) {
			out = append(out, k.label)
		}
	}
	return out
}

// CuisineCounts counts open businesses per cuisine. A business may count
// toward several cuisines.
func (a *Aggregator) CuisineCounts(businesses []model.Business) map[string]int {
	counts := make(map[string]int)
	for _, b := range businesses {
		if !b.Open() {
			continue
		}
		for _, c := range a.CuisinesOf(b.Categories) {
			counts[c]++
		}
	}
	return counts
}

// CuisineRatings returns the mean star rating of rated businesses per
// cuisine, open or closed, rounded to 3 decimals.
func (a *Aggregator) CuisineRatings(businesses []model.Business) map[string]float64 {
	sums := make(map[string]float64)
	ns := make(map[string]int)
	for _, b := range businesses {
		stars, ok := b.Rating()
		if !ok {
			continue
		}
		for _, c := range a.CuisinesOf(b.Categories) {
			sums[c] += stars
			ns[c]++
		}
	}
	out := make(map[string]float64, len(sums))
	for c, s := range sums {
		out[c] = Round(s/float64(ns[c]), 3)
	}
	return out
}

// AttributeRate returns the fraction of businesses, open or closed, that
// offer the attribute. Empty input yields 0.
func (a *Aggregator) AttributeRate(businesses []model.Business, attr tables.AttributeDef) float64 {
	if len(businesses) == 0 {
		return 0
	}
	hits := 0
	for _, b := range businesses {
		if a.Offers(b.Attributes, attr) {
			hits++
		}
	}
	return float64(hits) / float64(len(businesses))
}

// Offers reports whether any of the attribute's snapshot keys is truthy.
func (a *Aggregator) Offers(attrs model.Attributes, attr tables.AttributeDef) bool {
	for _, k := range attr.Keys {
		v, ok := attrs[k]
		if !ok {
			continue
		}
		s := normalize(v)
		switch s {
		case "true", "1", "yes", "free", "paid":
			return true
		}
		if a.tables.Permissive(k) && s != "no" && s != "none" && s != "" {
			return true
		}
	}
	return false
}

func normalize(v string) string {
	s := strings.TrimSpace(strings.ToLower(v))
	s = strings.ReplaceAll(s, "u'", "")
	return strings.ReplaceAll(s, "'", "")
}

// SortedCuisines returns the keys of a count map ordered by count descending,
// then by name.
func SortedCuisines(counts map[string]int) []string {
	out := make([]string, 0, len(counts))
	for c := range counts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}
