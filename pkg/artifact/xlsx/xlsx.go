// Package xlsx renders the downloadable spreadsheet report.
package xlsx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"
	"golang.org/x/xerrors"

	"github.com/codeinsight-reports/vulnerability-report/pkg/artifact/html"
	"github.com/codeinsight-reports/vulnerability-report/pkg/artifact/palette"
	"github.com/codeinsight-reports/vulnerability-report/pkg/codeinsight"
	"github.com/codeinsight-reports/vulnerability-report/pkg/report"
	"github.com/codeinsight-reports/vulnerability-report/pkg/vulnerability"
)

const (
	SummarySheet = "Vulnerability Summary"
	DetailsSheet = "Vulnerability Details"
	DataSheet    = "Summary Data"

	defaultSheet = "Sheet1"

	// Rows of the Summary Data sheet holding the chart series.
	categoryHeaderRow  = 7
	applicationDataRow = 8
	firstProjectRow    = 9

	chartWidth         = 700
	summaryChartHeight = 150
	projectRowHeight   = 30

	linkTypeExternal = "External"
)

// Columns of the Summary Data sheet, one per severity.
var dataColumns = map[vulnerability.Metric]string{
	vulnerability.Critical: "B",
	vulnerability.High:     "C",
	vulnerability.Medium:   "D",
	vulnerability.Low:      "E",
	vulnerability.None:     "F",
}

type styles struct {
	header      int
	cell        int
	description int
	link        int
	bold        int
	bands       map[vulnerability.Metric]int
}

// Build creates the workbook for the gathered data. The caller saves and closes it.
func Build(data report.Data) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := build(f, data); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func build(f *excelize.File, data report.Data) error {
	if err := f.SetSheetName(defaultSheet, SummarySheet); err != nil {
		return xerrors.Errorf("renaming default sheet: %w", err)
	}
	for _, sheet := range []string{DetailsSheet, DataSheet} {
		if _, err := f.NewSheet(sheet); err != nil {
			return xerrors.Errorf("creating sheet %s: %w", sheet, err)
		}
	}

	s, err := newStyles(f)
	if err != nil {
		return err
	}

	if err = writeSummaryData(f, data); err != nil {
		return xerrors.Errorf("writing summary data: %w", err)
	}
	if err = writeSummary(f, s, data); err != nil {
		return xerrors.Errorf("writing summary: %w", err)
	}
	if err = writeDetails(f, s, data); err != nil {
		return xerrors.Errorf("writing vulnerability details: %w", err)
	}

	f.SetActiveSheet(0)
	return nil
}

func newStyles(f *excelize.File) (styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	centered := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}

	definitions := map[string]*excelize.Style{
		"header": {
			Font:      &excelize.Font{Bold: true, Size: 12, Color: palette.White},
			Fill:      solid(palette.Brand),
			Alignment: centered,
		},
		"cell": {
			Font:      &excelize.Font{Size: 10},
			Alignment: centered,
			Border:    border,
		},
		"description": {
			Font:      &excelize.Font{Size: 10},
			Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center", WrapText: true},
			Border:    border,
		},
		"link": {
			Font:      &excelize.Font{Size: 10, Color: "0000FF", Underline: "single"},
			Alignment: centered,
			Border:    border,
		},
		"bold": {
			Font:      &excelize.Font{Bold: true, Size: 12},
			Alignment: &excelize.Alignment{Vertical: "center"},
		},
	}

	ids := make(map[string]int, len(definitions))
	for name, style := range definitions {
		id, err := f.NewStyle(style)
		if err != nil {
			return styles{}, xerrors.Errorf("creating %s style: %w", name, err)
		}
		ids[name] = id
	}

	s := styles{
		header:      ids["header"],
		cell:        ids["cell"],
		description: ids["description"],
		link:        ids["link"],
		bold:        ids["bold"],
		bands:       make(map[vulnerability.Metric]int),
	}
	for _, metric := range []vulnerability.Metric{vulnerability.Critical, vulnerability.High, vulnerability.Medium, vulnerability.Low} {
		font := &excelize.Font{Size: 10}
		if metric == vulnerability.Critical || metric == vulnerability.High {
			font.Color = palette.White
		}
		id, err := f.NewStyle(&excelize.Style{
			Font:      font,
			Fill:      solid(palette.Color(metric)),
			Alignment: centered,
			Border:    border,
		})
		if err != nil {
			return styles{}, xerrors.Errorf("creating severity style: %w", err)
		}
		s.bands[metric] = id
	}
	return s, nil
}

func solid(color string) excelize.Fill {
	return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
}

func writeSummaryData(f *excelize.File, data report.Data) error {
	if err := f.MergeCell(DataSheet, "B1", "F1"); err != nil {
		return err
	}
	if err := f.SetCellValue(DataSheet, "B1", "Report Generated: "+data.ReportTimeStamp); err != nil {
		return err
	}
	if err := f.MergeCell(DataSheet, "B2", "F2"); err != nil {
		return err
	}
	if err := f.SetCellValue(DataSheet, "B2", "Report Version: "+data.ReportVersion); err != nil {
		return err
	}

	if err := f.SetCellValue(DataSheet, cell("A", applicationDataRow), "Application Summary"); err != nil {
		return err
	}
	for i, name := range data.ProjectSummary.ProjectNames {
		if err := f.SetCellValue(DataSheet, cell("A", firstProjectRow+i), name); err != nil {
			return err
		}
	}

	for _, metric := range chartMetrics(data) {
		column := dataColumns[metric]
		if err := f.SetCellValue(DataSheet, cell(column, categoryHeaderRow), palette.Label(metric)); err != nil {
			return err
		}
		if err := f.SetCellValue(DataSheet, cell(column, applicationDataRow), data.ApplicationSummary.Total(metric)); err != nil {
			return err
		}
		for i, value := range data.ProjectSummary.Values(metric) {
			if err := f.SetCellValue(DataSheet, cell(column, firstProjectRow+i), value); err != nil {
				return err
			}
		}
	}
	return f.SetColWidth(DataSheet, "A", "A", 30)
}

func writeSummary(f *excelize.File, s styles, data report.Data) error {
	showGridLines := false
	if err := f.SetSheetView(SummarySheet, 0, &excelize.ViewOptions{ShowGridLines: &showGridLines}); err != nil {
		return err
	}

	projectChartCell := "B2"
	if data.HasChildren() {
		projectChartCell = "AA9"

		if err := f.SetColWidth(SummarySheet, "A", "Z", 2); err != nil {
			return err
		}
		if err := f.MergeCell(SummarySheet, "B2", "M2"); err != nil {
			return err
		}
		if err := f.SetCellValue(SummarySheet, "B2", "Project Hierarchy"); err != nil {
			return err
		}
		if err := f.SetCellStyle(SummarySheet, "B2", "M2", s.header); err != nil {
			return err
		}

		// one row per project, indented by depth
		for i, node := range data.ProjectList {
			ref, err := excelize.CoordinatesToCellName(3+node.Depth, 4+i)
			if err != nil {
				return err
			}
			if err = f.SetCellValue(SummarySheet, ref, node.Name); err != nil {
				return err
			}
			if err = f.SetCellStyle(SummarySheet, ref, ref, s.bold); err != nil {
				return err
			}
		}

		if err := f.AddChart(SummarySheet, "AA2", newChart(data, "Application Vulnerability Summary",
			applicationDataRow, applicationDataRow, summaryChartHeight)); err != nil {
			return err
		}
	}

	title := "Project Level Vulnerability Summary"
	if data.HasChildren() {
		title = "Project Level Vulnerability Summaries"
	}
	lastProjectRow := firstProjectRow + len(data.ProjectList) - 1
	height := uint(summaryChartHeight + len(data.ProjectList)*projectRowHeight)
	return f.AddChart(SummarySheet, projectChartCell, newChart(data, title, firstProjectRow, lastProjectRow, height))
}

func newChart(data report.Data, title string, firstRow, lastRow int, height uint) *excelize.Chart {
	series := lo.Map(chartMetrics(data), func(metric vulnerability.Metric, _ int) excelize.ChartSeries {
		column := dataColumns[metric]
		return excelize.ChartSeries{
			Name:       sheetRef(column, categoryHeaderRow, categoryHeaderRow),
			Categories: sheetRef("A", firstRow, lastRow),
			Values:     sheetRef(column, firstRow, lastRow),
			Fill:       solid(strings.TrimPrefix(palette.Color(metric), "#")),
		}
	})

	return &excelize.Chart{
		Type:      excelize.BarStacked,
		Series:    series,
		Title:     []excelize.RichTextRun{{Text: title}},
		Legend:    excelize.ChartLegend{Position: "bottom"},
		Dimension: excelize.ChartDimension{Width: chartWidth, Height: height},
		YAxis:     excelize.ChartAxis{ReverseOrder: true},
	}
}

// chartMetrics are the severity metrics with a column on the Summary Data sheet.
func chartMetrics(data report.Data) []vulnerability.Metric {
	return lo.Filter(data.ProjectSummary.Metrics, func(metric vulnerability.Metric, _ int) bool {
		_, ok := dataColumns[metric]
		return ok
	})
}

func writeDetails(f *excelize.File, s styles, data report.Data) error {
	version := data.Options.CVSSVersion
	scoreHeader, vectorHeader := "CVSS v3.x SCORE", "CVSS v3.x VECTOR"
	if version == vulnerability.CVSS2 {
		scoreHeader, vectorHeader = "CVSS v2 SCORE", "CVSS v2 VECTOR"
	}
	headers := []interface{}{"VULNERABILITY", "COMPONENT", scoreHeader, "SEVERITY", vectorHeader,
		"SOURCE", "PUBLISHED", "LAST MODIFIED", "DESCRIPTION"}
	widths := []float64{25, 50, 15, 15, 30, 15, 15, 15, 60}
	if data.Options.IncludeAssociatedFiles {
		headers = append(headers, "ASSOCIATED FILES")
		widths = append(widths, 60)
	}

	for i, width := range widths {
		column, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err = f.SetColWidth(DetailsSheet, column, column, width); err != nil {
			return err
		}
	}
	lastColumn, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}

	if err = f.SetSheetRow(DetailsSheet, "A1", &headers); err != nil {
		return err
	}
	if err = f.SetCellStyle(DetailsSheet, "A1", lastColumn+"1", s.header); err != nil {
		return err
	}

	for i, v := range data.VulnerabilityDetails {
		if err = writeDetailsRow(f, s, version, data.Options.IncludeAssociatedFiles, i+2, v); err != nil {
			return xerrors.Errorf("writing %s: %w", v.Name, err)
		}
	}

	lastRow := len(data.VulnerabilityDetails) + 1
	return f.AutoFilter(DetailsSheet, fmt.Sprintf("A1:%s%d", lastColumn, lastRow), []excelize.AutoFilterOptions{})
}

func writeDetailsRow(f *excelize.File, s styles, version vulnerability.CVSSVersion, includeFiles bool,
	row int, v *vulnerability.AggregatedVulnerability) error {
	components := html.SortedComponents(v.AffectedComponents)
	descriptions := lo.Map(components, func(c vulnerability.Component, _ int) string {
		return fmt.Sprintf("%s - %s (%s)", c.ComponentName, c.ComponentVersionName, c.ProjectName)
	})

	values := []struct {
		column string
		value  interface{}
		link   string
		style  int
	}{
		{column: "A", value: v.Name, link: v.URL, style: s.link},
		{column: "B", value: strings.Join(descriptions, "\n"), style: s.link},
		{column: "C", value: scoreValue(v.Score), style: scoreStyle(s, version, v.Score)},
		{column: "D", value: v.Severity, style: s.cell},
		{column: "E", value: v.Vector, link: v.VectorLink, style: s.cell},
		{column: "F", value: v.Source, style: s.cell},
		{column: "G", value: v.PublishedDate, style: s.cell},
		{column: "H", value: v.ModifiedDate, style: s.cell},
		{column: "I", value: v.Description, style: s.description},
	}
	if len(components) > 0 {
		values[1].link = components[0].InventoryItemLink
	}
	if v.VectorLink != "" {
		values[4].style = s.link
	}
	if includeFiles {
		files := lo.FlatMap(components, func(c vulnerability.Component, _ int) []string {
			return c.FilePaths
		})
		values = append(values, struct {
			column string
			value  interface{}
			link   string
			style  int
		}{column: "J", value: strings.Join(files, "\n"), style: s.description})
	}

	for _, c := range values {
		ref := cell(c.column, row)
		if err := f.SetCellValue(DetailsSheet, ref, c.value); err != nil {
			return err
		}
		if c.link != "" {
			if err := f.SetCellHyperLink(DetailsSheet, ref, c.link, linkTypeExternal); err != nil {
				return err
			}
		}
		if err := f.SetCellStyle(DetailsSheet, ref, ref, c.style); err != nil {
			return err
		}
	}
	return nil
}

// scoreValue writes numeric scores as numbers so that they sort and filter as such.
func scoreValue(score codeinsight.Score) interface{} {
	if value, err := strconv.ParseFloat(string(score), 64); err == nil {
		return value
	}
	return string(score)
}

func scoreStyle(s styles, version vulnerability.CVSSVersion, score codeinsight.Score) int {
	if band, ok := palette.ScoreBand(version, score); ok {
		return s.bands[band]
	}
	return s.cell
}

func cell(column string, row int) string {
	return column + strconv.Itoa(row)
}

func sheetRef(column string, firstRow, lastRow int) string {
	return fmt.Sprintf("'%s'!$%s$%d:$%s$%d", DataSheet, column, firstRow, column, lastRow)
}
