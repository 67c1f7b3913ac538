// Package rollup turns per project severity counters into chart ready series.
package rollup

import (
	"encoding/json"
	"sort"

	"github.com/samber/lo"

	"github.com/codeinsight-reports/vulnerability-report/pkg/hierarchy"
	"github.com/codeinsight-reports/vulnerability-report/pkg/vulnerability"
)

// ProjectSummary holds one series per metric, each aligned with ProjectNames.
type ProjectSummary struct {
	ProjectNames           []string
	Metrics                []vulnerability.Metric
	Series                 map[vulnerability.Metric][]int
	CVSSVersion            vulnerability.CVSSVersion
	IncludeAssociatedFiles bool
}

// Values returns the series of a metric. Unknown metrics yield zeros.
func (s ProjectSummary) Values(metric vulnerability.Metric) []int {
	if values, ok := s.Series[metric]; ok {
		return values
	}
	return make([]int, len(s.ProjectNames))
}

func (s ProjectSummary) MarshalJSON() ([]byte, error) {
	flat := map[string]interface{}{
		"projectNames":           s.ProjectNames,
		"cvssVersion":            s.CVSSVersion,
		"includeAssociatedFiles": s.IncludeAssociatedFiles,
	}
	for _, metric := range s.Metrics {
		flat[string(metric)] = s.Values(metric)
	}
	return json.Marshal(flat)
}

// ApplicationSummary is the sum of every project series.
type ApplicationSummary struct {
	Metrics                []vulnerability.Metric
	Totals                 map[vulnerability.Metric]int
	CVSSVersion            vulnerability.CVSSVersion
	IncludeAssociatedFiles bool
}

func (s ApplicationSummary) Total(metric vulnerability.Metric) int {
	return s.Totals[metric]
}

// Sum is the number of counted vulnerabilities over all metrics.
func (s ApplicationSummary) Sum() int {
	return lo.Sum(lo.Values(s.Totals))
}

func (s ApplicationSummary) MarshalJSON() ([]byte, error) {
	flat := map[string]interface{}{
		"cvssVersion":            s.CVSSVersion,
		"includeAssociatedFiles": s.IncludeAssociatedFiles,
	}
	for _, metric := range s.Metrics {
		flat[string(metric)] = s.Total(metric)
	}
	return json.Marshal(flat)
}

// Build lays out the counters in project order. Every metric of the CVSS
// version gets a series, as does any other metric found in the counters;
// projects missing a metric contribute 0.
func Build(counters map[int]vulnerability.Counters, projects []hierarchy.Node,
	version vulnerability.CVSSVersion, includeAssociatedFiles bool) (ProjectSummary, ApplicationSummary) {
	metrics := observedMetrics(counters, version)

	project := ProjectSummary{
		ProjectNames: lo.Map(projects, func(node hierarchy.Node, _ int) string {
			return node.Name
		}),
		Metrics:                metrics,
		Series:                 make(map[vulnerability.Metric][]int, len(metrics)),
		CVSSVersion:            version,
		IncludeAssociatedFiles: includeAssociatedFiles,
	}
	application := ApplicationSummary{
		Metrics:                metrics,
		Totals:                 make(map[vulnerability.Metric]int, len(metrics)),
		CVSSVersion:            version,
		IncludeAssociatedFiles: includeAssociatedFiles,
	}

	for _, metric := range metrics {
		series := make([]int, len(projects))
		for i, node := range projects {
			series[i] = counters[node.ID][metric]
		}
		project.Series[metric] = series
		application.Totals[metric] = lo.Sum(series)
	}

	return project, application
}

func observedMetrics(counters map[int]vulnerability.Counters, version vulnerability.CVSSVersion) []vulnerability.Metric {
	metrics := vulnerability.Metrics(version)
	known := lo.SliceToMap(metrics, func(m vulnerability.Metric) (vulnerability.Metric, struct{}) {
		return m, struct{}{}
	})

	var extra []vulnerability.Metric
	for _, c := range counters {
		for metric := range c {
			if _, ok := known[metric]; ok {
				continue
			}
			known[metric] = struct{}{}
			extra = append(extra, metric)
		}
	}
	sort.Slice(extra, func(i, j int) bool {
		return extra[i] < extra[j]
	})
	return append(metrics, extra...)
}
