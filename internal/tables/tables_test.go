package tables

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Valid(t *testing.T) {
	tb := Default()
	require.NoError(t, tb.Validate())
	assert.Len(t, tb.Cuisines, 32)
	assert.Equal(t, []string{
		"BYOB", "Delivery", "Outdoor Seating", "Kid-Friendly", "Late Night", "Free WiFi", "Reservations",
	}, tb.AttributeLabels())
}

func TestCuisine_CaseInsensitive(t *testing.T) {
	tb := Default()
	c, ok := tb.Cuisine("  middle eastern ")
	assert.True(t, ok)
	assert.Equal(t, "Middle Eastern", c)

	_, ok = tb.Cuisine("Martian")
	assert.False(t, ok)
}

func TestFamily(t *testing.T) {
	tb := Default()
	assert.Equal(t, []string{"Japanese", "Korean"}, tb.Related("sushi"))
	assert.Equal(t, []string{"Sushi", "Japanese", "Korean"}, tb.Family("Sushi"))
	assert.Equal(t, []string{"Italian"}, tb.Related("Pizza"))
	assert.Equal(t, []string{"Pizza"}, tb.Related("Italian"))
	assert.Empty(t, tb.Related("Vegan"))
	assert.Equal(t, []string{"Vegan"}, tb.Family("vegan"))
}

func TestAttribute_ByLabelOrParam(t *testing.T) {
	tb := Default()
	a, ok := tb.Attribute("kid_friendly")
	require.True(t, ok)
	assert.Equal(t, "Kid-Friendly", a.Label)

	a, ok = tb.Attribute("outdoor seating")
	require.True(t, ok)
	assert.Equal(t, []string{"OutdoorSeating"}, a.Keys)

	assert.True(t, tb.Permissive("WiFi"))
	assert.False(t, tb.Permissive("BYOB"))
}

func TestRegionOfAndCaps(t *testing.T) {
	tb := Default()
	assert.Equal(t, "Camden County", tb.RegionOf("cherry hill", "08002"))
	assert.Equal(t, "081", tb.RegionOf("Nowhere", "08110"))

	c, explicit := tb.CapFor("Camden County")
	assert.True(t, explicit)
	assert.Equal(t, 1, c)

	c, explicit = tb.CapFor("081")
	assert.False(t, explicit)
	assert.Equal(t, 2, c)
}

func TestDefaultsFor(t *testing.T) {
	tb := Default()
	assert.Equal(t, 1, tb.DefaultsFor("pizza").Flags["has_delivery"])

	d := tb.DefaultsFor("Ethiopian")
	assert.Equal(t, 2.0, d.PriceTier)
	assert.Empty(t, d.Flags)
}

func TestLoad(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		tb, err := Load("")
		require.NoError(t, err)
		assert.Len(t, tb.Cuisines, 32)
	})

	t.Run("overrides merge", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tables.yaml")
		content := `tables:
  region_caps:
    Camden County: 0
    Mercer County: 1
  city_regions:
    Lambertville: Hunterdon County
  synonym_groups:
    - [Sushi, Japanese]
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		tb, err := Load(path)
		require.NoError(t, err)

		c, _ := tb.CapFor("camden county")
		assert.Equal(t, 0, c)
		c, _ = tb.CapFor("Hudson County")
		assert.Equal(t, 2, c, "unmentioned caps keep their default")
		c, explicit := tb.CapFor("Mercer County")
		assert.True(t, explicit)
		assert.Equal(t, 1, c)

		assert.Equal(t, "Hunterdon County", tb.RegionOf("Lambertville", "08530"))
		assert.Equal(t, []string{"Japanese"}, tb.Related("Sushi"))
		assert.Empty(t, tb.Related("Pizza"), "synonym groups are replaced")
	})

	t.Run("unknown cuisine in family", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tables.yaml")
		require.NoError(t, os.WriteFile(path, []byte("tables:\n  synonym_groups:\n    - [Sushi, Ramen]\n"), 0o600))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Ramen")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
