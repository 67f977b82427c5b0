package report

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/gapscout/internal/model"
	"github.com/sells-group/gapscout/internal/recommend"
)

func sampleResponse() *recommend.Response {
	prob := 0.8123
	price := 2.0
	return &recommend.Response{
		QueryID:           "q-1",
		Query:             recommend.Query{Cuisine: "Japanese", Attributes: []string{"byob"}, MaxPriceTier: &price},
		Candidates:        5,
		Count:             2,
		SurvivalAvailable: true,
		Recommendations: []recommend.CityRecommendation{
			{
				City: "Marlton", Region: "Burlington County", Zip: "08053", Score: 71.4,
				MatchType: recommend.MatchExact, Issues: []string{}, PrimaryConcept: "Japanese",
				Risk: model.RiskLow, ClosureRate: 0.14, AvgStars: 3.8, TotalReviews: 900, AvgPriceTier: 2,
				Evidence: recommend.Evidence{
					Cuisine: "Japanese", GapScore: 5.33, CompetitionSignal: "1 existing competitor(s)",
					NeighborDemand: 24, MarketSize: "900 reviews", AttributeOpportunities: []string{"BYOB"},
					SurvivalProbability: &prob, SurvivalTier: "high",
				},
				SubAreas: []recommend.SubArea{
					{Zip: "08053", Score: 71.4, MatchType: recommend.MatchExact, GapScore: 5.33, ClosureRate: 0.14, TotalReviews: 900},
				},
			},
			{
				City: "Hoboken", Region: "Hudson County", Zip: "07030", Score: 40.2,
				MatchType: recommend.MatchRelaxed, Issues: []string{"Missing attribute gap: BYOB", "No listed gap for Japanese; estimated from local supply"},
				PrimaryConcept: "Japanese", Risk: model.RiskMedium, ClosureRate: 0.25, TotalReviews: 3000,
				Evidence: recommend.Evidence{CompetitionSignal: "3 existing competitor(s)", AttributeOpportunities: []string{}},
				SubAreas: []recommend.SubArea{
					{Zip: "07030", Score: 40.2, MatchType: recommend.MatchRelaxed},
					{Zip: "07031", Score: 35.0, MatchType: recommend.MatchRelaxed},
				},
			},
		},
	}
}

func TestSaveXLSX_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, SaveXLSX(path, sampleResponse()))

	rows, err := ReadSheet(path, SheetRecommendations)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, recommendationHeader, rows[0])
	assert.Equal(t, []string{"1", "Marlton", "Burlington County", "08053", "71.4"}, rows[1][:5])
	assert.Equal(t, "0.8123", rows[1][16])
	assert.Equal(t, "", rows[2][16], "missing survival probability stays blank")
	assert.Equal(t, "Missing attribute gap: BYOB; No listed gap for Japanese; estimated from local supply", rows[2][18])

	subs, err := ReadSheet(path, SheetSubAreas)
	require.NoError(t, err)
	require.Len(t, subs, 4)
	assert.Equal(t, []string{"Hoboken", "07031"}, subs[3][:2])

	query, err := ReadSheet(path, SheetQuery)
	require.NoError(t, err)
	assert.Equal(t, []string{"Query ID", "q-1"}, query[0])
	assert.Equal(t, []string{"Max Price Tier", "2"}, query[5])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleResponse()))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 3)
	assert.Equal(t, SheetRecommendations, f.Sheets[0].Name)
}

func TestWorkbook_NilResponse(t *testing.T) {
	_, err := Workbook(nil)
	assert.Error(t, err)
	assert.Error(t, WriteCSV(&bytes.Buffer{}, nil))
}

func TestReadSheet_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, SaveXLSX(path, sampleResponse()))

	_, err := ReadSheet(path, "Nope")
	assert.Error(t, err)

	_, err = ReadSheet(filepath.Join(t.TempDir(), "missing.xlsx"), SheetQuery)
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResponse()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Hoboken", records[2][1])
	assert.Equal(t, "relaxed", records[2][5])
}
