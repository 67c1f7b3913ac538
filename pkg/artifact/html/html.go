// Package html renders the viewable report.
package html

import (
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"sort"
	"strconv"

	"github.com/Masterminds/sprig/v3"
	"github.com/samber/lo"
	"golang.org/x/xerrors"

	"github.com/codeinsight-reports/vulnerability-report/pkg/artifact/palette"
	"github.com/codeinsight-reports/vulnerability-report/pkg/codeinsight"
	"github.com/codeinsight-reports/vulnerability-report/pkg/report"
	"github.com/codeinsight-reports/vulnerability-report/pkg/vulnerability"
)

const (
	reportTemplateName = "report.html.tmpl"
	errorTemplateName  = "error.html.tmpl"

	minCanvasHeight  = 180
	canvasRowHeight  = 30
	unavailableScore = "-"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("").
	Funcs(sprig.FuncMap()).
	Funcs(template.FuncMap{
		"scoreText": scoreText,
		"brandColor": func() string {
			return palette.Brand
		},
	}).
	ParseFS(templateFS, "templates/*.html.tmpl"))

type reportView struct {
	report.Data
	ScoreHeader      string
	VectorHeader     string
	Vulnerabilities  []vulnerabilityView
	CanvasHeight     int
	ApplicationChart template.JS
	ProjectChart     template.JS
	ProjectTree      template.JS
}

type vulnerabilityView struct {
	*vulnerability.AggregatedVulnerability
	Components []vulnerability.Component
	Files      []string
}

type dataset struct {
	Label           string `json:"label"`
	Data            []int  `json:"data"`
	BackgroundColor string `json:"backgroundColor"`
}

type chart struct {
	Labels   []string  `json:"labels,omitempty"`
	Datasets []dataset `json:"datasets"`
}

type treeNode struct {
	ID     string            `json:"id"`
	Parent string            `json:"parent"`
	Text   string            `json:"text"`
	AAttr  map[string]string `json:"a_attr"`
}

// Render writes the HTML report for the gathered data.
func Render(w io.Writer, data report.Data) error {
	view, err := newReportView(data)
	if err != nil {
		return err
	}
	if err = templates.ExecuteTemplate(w, reportTemplateName, view); err != nil {
		return xerrors.Errorf("executing report template: %w", err)
	}
	return nil
}

// RenderError writes the HTML page explaining why no report could be generated.
func RenderError(w io.Writer, data report.ErrorData) error {
	if err := templates.ExecuteTemplate(w, errorTemplateName, data); err != nil {
		return xerrors.Errorf("executing error template: %w", err)
	}
	return nil
}

func newReportView(data report.Data) (reportView, error) {
	version := data.Options.CVSSVersion
	view := reportView{
		Data:         data,
		ScoreHeader:  "CVSS v" + string(version),
		VectorHeader: "CVSS v" + string(version) + " VECTOR",
		CanvasHeight: lo.Max([]int{len(data.ProjectList) * canvasRowHeight, minCanvasHeight}),
	}
	if version == vulnerability.CVSS2 {
		view.VectorHeader = "CVSS v2 VECTOR"
	}

	view.Vulnerabilities = lo.Map(data.VulnerabilityDetails, func(v *vulnerability.AggregatedVulnerability, _ int) vulnerabilityView {
		components := SortedComponents(v.AffectedComponents)
		return vulnerabilityView{
			AggregatedVulnerability: v,
			Components:              components,
			Files: lo.FlatMap(components, func(c vulnerability.Component, _ int) []string {
				return c.FilePaths
			}),
		}
	})

	var err error
	if view.ApplicationChart, err = marshalJS(chart{
		Datasets: lo.Map(data.ApplicationSummary.Metrics, func(m vulnerability.Metric, _ int) dataset {
			return dataset{
				Label:           palette.Label(m),
				Data:            []int{data.ApplicationSummary.Total(m)},
				BackgroundColor: palette.Color(m),
			}
		}),
	}); err != nil {
		return view, err
	}

	if view.ProjectChart, err = marshalJS(chart{
		Labels: data.ProjectSummary.ProjectNames,
		Datasets: lo.Map(data.ProjectSummary.Metrics, func(m vulnerability.Metric, _ int) dataset {
			return dataset{
				Label:           palette.Label(m),
				Data:            data.ProjectSummary.Values(m),
				BackgroundColor: palette.Color(m),
			}
		}),
	}); err != nil {
		return view, err
	}

	tree := make([]treeNode, len(data.ProjectList))
	for i, node := range data.ProjectList {
		tree[i] = treeNode{
			ID:     strconv.Itoa(node.ID),
			Parent: node.Parent,
			Text:   node.Name,
			AAttr:  map[string]string{"href": node.Link},
		}
	}
	if view.ProjectTree, err = marshalJS(tree); err != nil {
		return view, err
	}

	return view, nil
}

// SortedComponents orders the affected components by name then version.
func SortedComponents(components []vulnerability.Component) []vulnerability.Component {
	sorted := make([]vulnerability.Component, len(components))
	copy(sorted, components)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ComponentName != sorted[j].ComponentName {
			return sorted[i].ComponentName < sorted[j].ComponentName
		}
		return sorted[i].ComponentVersionName < sorted[j].ComponentVersionName
	})
	return sorted
}

func scoreText(score codeinsight.Score) string {
	if score == "" || score == codeinsight.NotAvailable {
		return unavailableScore
	}
	return string(score)
}

// marshalJS relies on encoding/json escaping <, > and & so the output is safe inside a script element.
func marshalJS(v interface{}) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", xerrors.Errorf("marshalling chart data: %w", err)
	}
	return template.JS(b), nil
}
