// Package palette holds the severity labels and colours shared by the report renderers.
package palette

import (
	"strconv"

	"github.com/codeinsight-reports/vulnerability-report/pkg/codeinsight"
	"github.com/codeinsight-reports/vulnerability-report/pkg/vulnerability"
)

const (
	Brand = "#323E48"
	White = "#FFFFFF"
)

var colors = map[vulnerability.Metric]string{
	vulnerability.Critical: "#400000",
	vulnerability.High:     "#C00000",
	vulnerability.Medium:   "#FFA500",
	vulnerability.Low:      "#FFFF00",
	vulnerability.None:     "#D3D3D3",
}

var labels = map[vulnerability.Metric]string{
	vulnerability.Critical: "Critical",
	vulnerability.High:     "High",
	vulnerability.Medium:   "Medium",
	vulnerability.Low:      "Low",
	vulnerability.None:     "N/A",
}

// Color returns the chart colour of a severity metric.
func Color(metric vulnerability.Metric) string {
	if c, ok := colors[metric]; ok {
		return c
	}
	return colors[vulnerability.None]
}

func Label(metric vulnerability.Metric) string {
	if l, ok := labels[metric]; ok {
		return l
	}
	return string(metric)
}

// ScoreBand returns the severity band a numeric score falls in. Scores that
// are not numbers, or are zero, have no band.
func ScoreBand(version vulnerability.CVSSVersion, score codeinsight.Score) (vulnerability.Metric, bool) {
	value, err := strconv.ParseFloat(string(score), 64)
	if err != nil {
		return "", false
	}
	switch {
	case version != vulnerability.CVSS2 && value >= 9.0:
		return vulnerability.Critical, true
	case value >= 7.0:
		return vulnerability.High, true
	case value >= 4.0:
		return vulnerability.Medium, true
	case value >= 0.1:
		return vulnerability.Low, true
	}
	return "", false
}
