package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/codeinsight-reports/vulnerability-report/pkg/codeinsight"
	"github.com/codeinsight-reports/vulnerability-report/pkg/hierarchy"
	"github.com/codeinsight-reports/vulnerability-report/pkg/report/options"
	"github.com/codeinsight-reports/vulnerability-report/pkg/rollup"
	"github.com/codeinsight-reports/vulnerability-report/pkg/vulnerability"
)

const (
	fileNameTimeStampLayout = "20060102-150405"
	reportTimeStampLayout   = "January 02, 2006 at 15:04:05"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Request identifies the report run requested by Code Insight.
type Request struct {
	ProjectID  int
	ReportID   int
	ReportName string
	Options    options.Options
}

// Data is everything the renderers need to produce the report artifacts.
type Data struct {
	ReportName        string
	ReportVersion     string
	ProjectName       string
	ProjectID         int
	GeneratedAt       time.Time
	FileNameTimeStamp string
	ReportTimeStamp   string
	FileNameBase      string

	// VulnerabilityDetails is ordered by descending score.
	VulnerabilityDetails []*vulnerability.AggregatedVulnerability
	ProjectList          []hierarchy.Node
	ProjectSummary       rollup.ProjectSummary
	ApplicationSummary   rollup.ApplicationSummary
	ProjectHierarchy     codeinsight.ChildProjectHierarchy
	Options              options.Options
}

// HasChildren tells whether the report covers more than the requested project.
func (d Data) HasChildren() bool {
	return len(d.ProjectList) > 1
}

// ErrorData describes a run that was rejected before any data was gathered.
type ErrorData struct {
	ReportName      string
	ReportVersion   string
	ProjectID       int
	GeneratedAt     time.Time
	ReportTimeStamp string
	FileNameBase    string
	Errors          []string
}

// NewErrorData collects the messages of the errors that prevented the run.
func NewErrorData(request Request, version string, now time.Time, errs []error) ErrorData {
	messages := make([]string, len(errs))
	for i, err := range errs {
		messages[i] = err.Error()
	}
	return ErrorData{
		ReportName:      request.ReportName,
		ReportVersion:   version,
		ProjectID:       request.ProjectID,
		GeneratedAt:     now,
		ReportTimeStamp: now.Format(reportTimeStampLayout),
		FileNameBase: fmt.Sprintf("%d-%s-error-%s",
			request.ProjectID, underscored(request.ReportName), now.Format(fileNameTimeStampLayout)),
		Errors: messages,
	}
}

// FileNameBase names the report files after the project, the report and the time of the run.
func FileNameBase(projectName string, projectID int, withChildren bool, reportName string, now time.Time) string {
	parts := []string{
		nonAlphanumeric.ReplaceAllString(projectName, "-"),
		fmt.Sprint(projectID),
	}
	if withChildren {
		parts = append(parts, "with-children")
	}
	parts = append(parts, underscored(reportName), now.Format(fileNameTimeStampLayout))
	return strings.Join(parts, "-")
}

func underscored(reportName string) string {
	return strings.ReplaceAll(reportName, " ", "_")
}
