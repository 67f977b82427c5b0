// Package tables holds the typed lookup tables shared by the batch pass and
// the query pipeline: cuisine vocabulary, attribute keys, synonym families,
// region caps and cuisine concept defaults.
package tables

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
)

// AttributeDef maps a service-attribute label to the snapshot keys that
// indicate it.
type AttributeDef struct {
	Label string   `yaml:"label"`
	Param string   `yaml:"param"` // query parameter name, e.g. "byob"
	Keys  []string `yaml:"keys"`
}

// ConceptDefaults are the concept attributes assumed for a cuisine when a
// survival request leaves them unset.
type ConceptDefaults struct {
	PriceTier  float64        `yaml:"price_tier"`
	NoiseLevel string         `yaml:"noise_level"`
	Flags      map[string]int `yaml:"flags"`
}

// Tables is the full set of lookup tables. Build it with Default or Load and
// treat it as read-only afterwards.
type Tables struct {
	Cuisines         []string                   `yaml:"cuisines"`
	Attributes       []AttributeDef             `yaml:"attributes"`
	PermissiveKeys   []string                   `yaml:"permissive_keys"`
	SynonymGroups    [][]string                 `yaml:"synonym_groups"`
	RegionCaps       map[string]int             `yaml:"region_caps"`
	DefaultRegionCap int                        `yaml:"default_region_cap"`
	CityRegions      map[string]string          `yaml:"city_regions"`
	CuisineDefaults  map[string]ConceptDefaults `yaml:"cuisine_defaults"`

	cuisineByKey   map[string]string
	attrByKey      map[string]AttributeDef
	permissive     map[string]bool
	families       map[string][]string
	regionCapByKey map[string]int
	cityRegion     map[string]string
}

// Key case-folds and trims s for table lookups. A Caser is stateful, so each
// call builds its own.
func Key(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Validate checks the tables for internal consistency.
func (t *Tables) Validate() error {
	var errs []string
	if len(t.Cuisines) == 0 {
		errs = append(errs, "cuisines must not be empty")
	}
	if len(t.Attributes) == 0 {
		errs = append(errs, "attributes must not be empty")
	}
	for _, a := range t.Attributes {
		if a.Label == "" || len(a.Keys) == 0 {
			errs = append(errs, "attribute entries need a label and at least one key")
			break
		}
	}
	if t.DefaultRegionCap < 1 {
		errs = append(errs, "default_region_cap must be >= 1")
	}
	for region, c := range t.RegionCaps {
		if c < 0 {
			errs = append(errs, "region cap for "+region+" must be >= 0")
		}
	}
	known := make(map[string]bool, len(t.Cuisines))
	for _, c := range t.Cuisines {
		known[Key(c)] = true
	}
	for _, group := range t.SynonymGroups {
		for _, c := range group {
			if !known[Key(c)] {
				errs = append(errs, "synonym group references unknown cuisine "+c)
			}
		}
	}
	if len(errs) > 0 {
		return eris.Errorf("tables: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// prepare builds the case-folded lookup indexes. It must run after any change
// to the exported fields.
func (t *Tables) prepare() {
	t.cuisineByKey = make(map[string]string, len(t.Cuisines))
	for _, c := range t.Cuisines {
		t.cuisineByKey[Key(c)] = c
	}

	t.attrByKey = make(map[string]AttributeDef, len(t.Attributes)*2)
	for _, a := range t.Attributes {
		t.attrByKey[Key(a.Label)] = a
		if a.Param != "" {
			t.attrByKey[Key(a.Param)] = a
		}
	}

	t.permissive = make(map[string]bool, len(t.PermissiveKeys))
	for _, k := range t.PermissiveKeys {
		t.permissive[k] = true
	}

	t.families = make(map[string][]string)
	for _, group := range t.SynonymGroups {
		for _, member := range group {
			k := Key(member)
			for _, other := range group {
				if Key(other) != k {
					t.families[k] = appendUnique(t.families[k], t.canonical(other))
				}
			}
		}
	}
	for k := range t.families {
		sort.Strings(t.families[k])
	}

	t.regionCapByKey = make(map[string]int, len(t.RegionCaps))
	for region, c := range t.RegionCaps {
		t.regionCapByKey[Key(region)] = c
	}

	t.cityRegion = make(map[string]string, len(t.CityRegions))
	for city, region := range t.CityRegions {
		t.cityRegion[Key(city)] = region
	}
}

func (t *Tables) canonical(c string) string {
	if v, ok := t.cuisineByKey[Key(c)]; ok {
		return v
	}
	return strings.TrimSpace(c)
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

// Cuisine resolves a cuisine name case-insensitively to its vocabulary label.
func (t *Tables) Cuisine(name string) (string, bool) {
	v, ok := t.cuisineByKey[Key(name)]
	return v, ok
}

// Related returns the cuisines in the synonym family of name, excluding name
// itself, sorted by label.
func (t *Tables) Related(name string) []string {
	return append([]string(nil), t.families[Key(name)]...)
}

// Family returns name followed by its related cuisines.
func (t *Tables) Family(name string) []string {
	return append([]string{t.canonical(name)}, t.Related(name)...)
}

// Attribute resolves an attribute by label or query parameter name.
func (t *Tables) Attribute(name string) (AttributeDef, bool) {
	a, ok := t.attrByKey[Key(name)]
	return a, ok
}

// AttributeLabels returns the attribute labels in table order.
func (t *Tables) AttributeLabels() []string {
	out := make([]string, 0, len(t.Attributes))
	for _, a := range t.Attributes {
		out = append(out, a.Label)
	}
	return out
}

// Permissive reports whether any non-negative value of the snapshot key counts
// as present.
func (t *Tables) Permissive(key string) bool {
	return t.permissive[key]
}

// RegionOf returns the region (county equivalent) of a city, falling back to
// the three-digit prefix of the area code.
func (t *Tables) RegionOf(city, area string) string {
	if r, ok := t.cityRegion[Key(city)]; ok {
		return r
	}
	if len(area) >= 3 {
		return area[:3]
	}
	return area
}

// CapFor returns the selection cap for a region and whether it was set
// explicitly.
func (t *Tables) CapFor(region string) (int, bool) {
	if c, ok := t.regionCapByKey[Key(region)]; ok {
		return c, true
	}
	return t.DefaultRegionCap, false
}

// DefaultsFor returns the concept defaults of a cuisine. Unknown cuisines get
// an empty flag set with price tier 2 and average noise.
func (t *Tables) DefaultsFor(cuisine string) ConceptDefaults {
	for name, d := range t.CuisineDefaults {
		if Key(name) == Key(cuisine) {
			return d
		}
	}
	return ConceptDefaults{PriceTier: 2, NoiseLevel: "average", Flags: map[string]int{}}
}
