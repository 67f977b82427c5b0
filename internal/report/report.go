// Package report exports recommendation responses as XLSX workbooks or CSV.
package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/gapscout/internal/recommend"
)

// Sheet names of the workbook.
const (
	SheetRecommendations = "Recommendations"
	SheetSubAreas        = "Sub-areas"
	SheetQuery           = "Query"
)

var recommendationHeader = []string{
	"Rank", "City", "Region", "Zip", "Match Score", "Match Type", "Primary Concept", "Risk",
	"Closure Rate", "Avg Stars", "Total Reviews", "Avg Price Tier", "Cuisine Gap Score",
	"Competition", "Neighbor Demand", "Attribute Opportunities", "Survival Probability",
	"Survival Tier", "Issues",
}

var subAreaHeader = []string{"City", "Zip", "Match Score", "Match Type", "Cuisine Gap Score", "Closure Rate", "Total Reviews"}

// recommendationRow flattens one recommendation.
func recommendationRow(rank int, r recommend.CityRecommendation) []string {
	prob := ""
	if r.Evidence.SurvivalProbability != nil {
		prob = fmtFloat(*r.Evidence.SurvivalProbability)
	}
	return []string{
		strconv.Itoa(rank),
		r.City,
		r.Region,
		r.Zip,
		fmtFloat(r.Score),
		string(r.MatchType),
		r.PrimaryConcept,
		string(r.Risk),
		fmtFloat(r.ClosureRate),
		fmtFloat(r.AvgStars),
		strconv.Itoa(r.TotalReviews),
		fmtFloat(r.AvgPriceTier),
		fmtFloat(r.Evidence.GapScore),
		r.Evidence.CompetitionSignal,
		strconv.Itoa(r.Evidence.NeighborDemand),
		strings.Join(r.Evidence.AttributeOpportunities, ", "),
		prob,
		r.Evidence.SurvivalTier,
		strings.Join(r.Issues, "; "),
	}
}

func subAreaRows(r recommend.CityRecommendation) [][]string {
	rows := make([][]string, 0, len(r.SubAreas))
	for _, s := range r.SubAreas {
		rows = append(rows, []string{
			r.City,
			s.Zip,
			fmtFloat(s.Score),
			string(s.MatchType),
			fmtFloat(s.GapScore),
			fmtFloat(s.ClosureRate),
			strconv.Itoa(s.TotalReviews),
		})
	}
	return rows
}

func queryRows(resp *recommend.Response) [][]string {
	q := resp.Query
	price := ""
	if q.MaxPriceTier != nil {
		price = fmtFloat(*q.MaxPriceTier)
	}
	risks := make([]string, 0, len(q.AcceptedRisks))
	for _, r := range q.AcceptedRisks {
		risks = append(risks, string(r))
	}
	return [][]string{
		{"Query ID", resp.QueryID},
		{"Cuisine", q.Cuisine},
		{"Attributes", strings.Join(q.Attributes, ", ")},
		{"Max Risk", string(q.MaxRisk)},
		{"Accepted Risks", strings.Join(risks, ", ")},
		{"Max Price Tier", price},
		{"Min Market Size", strconv.Itoa(q.MinMarketSize)},
		{"Candidates", strconv.Itoa(resp.Candidates)},
		{"Returned", strconv.Itoa(resp.Count)},
		{"Survival Available", strconv.FormatBool(resp.SurvivalAvailable)},
	}
}

// Workbook builds the XLSX workbook of resp.
func Workbook(resp *recommend.Response) (*xlsx.File, error) {
	if resp == nil {
		return nil, eris.New("report: nil response")
	}
	f := xlsx.NewFile()

	recs, err := f.AddSheet(SheetRecommendations)
	if err != nil {
		return nil, eris.Wrap(err, "report: add recommendations sheet")
	}
	addRow(recs, recommendationHeader)
	for i, r := range resp.Recommendations {
		addRow(recs, recommendationRow(i+1, r))
	}

	subs, err := f.AddSheet(SheetSubAreas)
	if err != nil {
		return nil, eris.Wrap(err, "report: add sub-areas sheet")
	}
	addRow(subs, subAreaHeader)
	for _, r := range resp.Recommendations {
		for _, row := range subAreaRows(r) {
			addRow(subs, row)
		}
	}

	query, err := f.AddSheet(SheetQuery)
	if err != nil {
		return nil, eris.Wrap(err, "report: add query sheet")
	}
	for _, row := range queryRows(resp) {
		addRow(query, row)
	}
	return f, nil
}

// WriteXLSX writes the workbook of resp to w.
func WriteXLSX(w io.Writer, resp *recommend.Response) error {
	f, err := Workbook(resp)
	if err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "report: write xlsx")
	}
	return nil
}

// SaveXLSX writes the workbook of resp to path.
func SaveXLSX(path string, resp *recommend.Response) error {
	f, err := Workbook(resp)
	if err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save xlsx %s", path)
	}
	return nil
}

// WriteCSV writes the recommendations sheet of resp as CSV.
func WriteCSV(w io.Writer, resp *recommend.Response) error {
	if resp == nil {
		return eris.New("report: nil response")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(recommendationHeader); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}
	for i, r := range resp.Recommendations {
		if err := cw.Write(recommendationRow(i+1, r)); err != nil {
			return eris.Wrap(err, "report: write csv row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "report: flush csv")
	}
	return nil
}

// ReadSheet reads every row of a named sheet from an XLSX file.
func ReadSheet(path, name string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "report: open xlsx")
	}
	sheet, ok := f.Sheet[name]
	if !ok {
		return nil, eris.Errorf("report: sheet %q not found", name)
	}
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
