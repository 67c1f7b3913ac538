package html

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/codeinsight-reports/vulnerability-report/pkg/codeinsight"
	"github.com/codeinsight-reports/vulnerability-report/pkg/hierarchy"
	"github.com/codeinsight-reports/vulnerability-report/pkg/inventory"
	"github.com/codeinsight-reports/vulnerability-report/pkg/report"
	"github.com/codeinsight-reports/vulnerability-report/pkg/report/options"
	"github.com/codeinsight-reports/vulnerability-report/pkg/rollup"
	"github.com/codeinsight-reports/vulnerability-report/pkg/vulnerability"
)

func newData(t *testing.T, withChildren, includeFiles bool) report.Data {
	t.Helper()

	nodes := []hierarchy.Node{
		{ID: 100, Name: "Web Shop", Parent: hierarchy.RootParent, Link: "https://sca.example.com/p/100"},
	}
	if withChildren {
		nodes = append(nodes, hierarchy.Node{ID: 101, Name: "Payments", Parent: "100", Link: "https://sca.example.com/p/101", Depth: 1})
	}

	aggregator := vulnerability.NewAggregator(vulnerability.CVSS3)
	aggregator.Add(nodes[0], []inventory.Item{
		{
			ID:                   2,
			ComponentName:        "zlib",
			ComponentVersionName: "1.2.11",
			Link:                 "https://sca.example.com/i/2",
			FilePaths:            []string{"lib/libz.so"},
			Vulnerabilities: []codeinsight.Vulnerability{{
				Name:           "CVE-2016-2105",
				Description:    "Overflow in <EVP_EncodeUpdate>",
				URL:            "https://nvd.nist.gov/vuln/detail/CVE-2016-2105",
				Source:         "NVD",
				CvssV3Severity: "HIGH",
				CvssV3Score:    "7.5",
				CvssV3Vector:   "CVSS:3.0/AV:N/AC:L/PR:N/UI:N/S:U/C:N/I:N/A:H",
			}},
		},
		{
			ID:                   1,
			ComponentName:        "openssl",
			ComponentVersionName: "1.0.2",
			Link:                 "https://sca.example.com/i/1",
			Vulnerabilities: []codeinsight.Vulnerability{
				{Name: "CVE-2016-2105", CvssV3Severity: "HIGH", CvssV3Score: "7.5"},
				{Name: "CVE-2020-0001", CvssV3Severity: "N/A", CvssV3Score: "N/A", CvssV3Vector: "N/A"},
			},
		},
	})

	opts := options.Options{
		IncludeChildProjects:   withChildren,
		CVSSVersion:            vulnerability.CVSS3,
		IncludeAssociatedFiles: includeFiles,
	}
	projectSummary, applicationSummary := rollup.Build(aggregator.Counters(), nodes, opts.CVSSVersion, includeFiles)

	return report.Data{
		ReportName:           "Vulnerability Report",
		ReportVersion:        "1.0.0",
		ProjectName:          "Web Shop",
		ProjectID:            100,
		GeneratedAt:          time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC),
		ReportTimeStamp:      "March 05, 2024 at 14:07:09",
		VulnerabilityDetails: vulnerability.SortByScore(aggregator.Index()),
		ProjectList:          nodes,
		ProjectSummary:       projectSummary,
		ApplicationSummary:   applicationSummary,
		Options:              opts,
	}
}

func TestRender(t *testing.T) {
	t.Run("Should render single project report", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, newData(t, false, false)))
		out := buf.String()

		assert.Contains(t, out, "<title>VULNERABILITY REPORT</title>")
		assert.Contains(t, out, "Web Shop Summary")
		assert.NotContains(t, out, "Project Hierarchy")
		assert.Contains(t, out, `<a href="https://nvd.nist.gov/vuln/detail/CVE-2016-2105" target="_blank">CVE-2016-2105</a>`)
		assert.Contains(t, out, "openssl - 1.0.2")
		assert.Contains(t, out, `<span class="btn btn-high">7.5</span>`)
		assert.Contains(t, out, `data-order="-"`)
		assert.Contains(t, out, `href="https://nvd.nist.gov/vuln-metrics/cvss/v3-calculator?name=CVE-2016-2105"`)
		assert.Contains(t, out, "Overflow in &lt;EVP_EncodeUpdate&gt;")
		assert.Contains(t, out, "CVSS v3.x VECTOR")
		assert.Contains(t, out, `"label":"Critical"`)
		assert.Contains(t, out, "Report Version: 1.0.0")
		assert.NotContains(t, out, "ASSOCIATED FILES")
	})

	t.Run("Should sort components by name then version", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, newData(t, false, false)))
		out := buf.String()

		openssl := bytes.Index(buf.Bytes(), []byte("openssl - 1.0.2"))
		zlib := bytes.Index(buf.Bytes(), []byte("zlib - 1.2.11"))
		require.True(t, openssl > 0 && zlib > 0, out)
		assert.Less(t, openssl, zlib)
	})

	t.Run("Should render hierarchy and files when enabled", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, newData(t, true, true)))
		out := buf.String()

		assert.Contains(t, out, "Application Summary")
		assert.Contains(t, out, "Project Hierarchy")
		assert.Contains(t, out, `"parent":"#"`)
		assert.Contains(t, out, `"labels":["Web Shop","Payments"]`)
		assert.Contains(t, out, "ASSOCIATED FILES")
		assert.Contains(t, out, "lib/libz.so<br>")
	})
}

func TestRenderError(t *testing.T) {
	var buf bytes.Buffer
	data := report.NewErrorData(report.Request{ProjectID: 100, ReportName: "Vulnerability Report"}, "1.0.0",
		time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC),
		[]error{xerrors.New(`invalid value "<4.0>" for report option cvssVersion`)})

	require.NoError(t, RenderError(&buf, data))
	out := buf.String()

	assert.Contains(t, out, "The report could not be generated for project 100")
	assert.Contains(t, out, "&lt;4.0&gt;")
	assert.Contains(t, out, "Generated on March 05, 2024 at 14:07:09")
}

func TestSortedComponents(t *testing.T) {
	components := []vulnerability.Component{
		{ComponentName: "zlib", ComponentVersionName: "1.2"},
		{ComponentName: "openssl", ComponentVersionName: "3.0"},
		{ComponentName: "openssl", ComponentVersionName: "1.1"},
	}

	sorted := SortedComponents(components)

	assert.Equal(t, []vulnerability.Component{
		{ComponentName: "openssl", ComponentVersionName: "1.1"},
		{ComponentName: "openssl", ComponentVersionName: "3.0"},
		{ComponentName: "zlib", ComponentVersionName: "1.2"},
	}, sorted)
	assert.Equal(t, "zlib", components[0].ComponentName)
}
