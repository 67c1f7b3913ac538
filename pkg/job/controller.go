package job

import (
	"context"
	"log/slog"

	"golang.org/x/xerrors"

	"github.com/codeinsight-reports/vulnerability-report/pkg/archive"
	"github.com/codeinsight-reports/vulnerability-report/pkg/artifact"
	"github.com/codeinsight-reports/vulnerability-report/pkg/codeinsight"
	"github.com/codeinsight-reports/vulnerability-report/pkg/etc"
	"github.com/codeinsight-reports/vulnerability-report/pkg/metrics"
	"github.com/codeinsight-reports/vulnerability-report/pkg/report"
)

// Controller runs a report request end to end: gather, render, package and upload.
type Controller interface {
	Run(ctx context.Context, runID string, request report.Request, optionErrs []error) (Result, error)
}

type controller struct {
	config   etc.Config
	version  string
	client   codeinsight.Client
	gatherer report.Gatherer
	creator  artifact.Creator
	packager archive.Packager
	recorder *metrics.Recorder
	clock    report.Clock
}

func NewController(config etc.Config, version string, client codeinsight.Client, gatherer report.Gatherer,
	creator artifact.Creator, packager archive.Packager, recorder *metrics.Recorder, clock report.Clock) Controller {
	return &controller{
		config:   config,
		version:  version,
		client:   client,
		gatherer: gatherer,
		creator:  creator,
		packager: packager,
		recorder: recorder,
		clock:    clock,
	}
}

// Run produces the error report instead of the vulnerability report when
// optionErrs is not empty. Metrics are pushed whatever the outcome.
func (c *controller) Run(ctx context.Context, runID string, request report.Request, optionErrs []error) (result Result, err error) {
	started := c.clock.Now()
	result = Result{RunID: runID, Status: Pending}

	defer func() {
		if err != nil {
			result.Status = Failed
			slog.Error("Report run failed", slog.String("err", err.Error()))
		}
		if perr := c.recorder.Push(ctx, c.config.Metrics, request.ReportName); perr != nil {
			slog.Warn("Error while pushing metrics", slog.String("err", perr.Error()))
		}
	}()

	var reports artifact.Reports
	if len(optionErrs) > 0 {
		reports, err = c.reject(request, optionErrs, &result)
	} else {
		reports, err = c.generate(ctx, request, &result)
	}
	if err != nil {
		return
	}

	c.status(&result, Uploading)
	if result.Archive, err = c.packager.Package(reports, request.ReportName); err != nil {
		return result, xerrors.Errorf("packaging report: %w", err)
	}
	if err = c.client.UploadProjectReport(ctx, request.ProjectID, request.ReportID, result.Archive); err != nil {
		return result, xerrors.Errorf("uploading report: %w", err)
	}
	if !c.config.Report.KeepArtifacts {
		archive.Remove(result.Archive)
	}

	if result.Status == Rejected {
		slog.Warn("Uploaded error report", slog.Int("errors", len(result.Errors)))
		return
	}

	c.recorder.RecordCompletion(started, c.clock.Now())
	c.status(&result, Finished)
	return
}

func (c *controller) generate(ctx context.Context, request report.Request, result *Result) (reports artifact.Reports, err error) {
	c.status(result, Gathering)
	data, err := c.gatherer.Gather(ctx, request)
	if err != nil {
		return reports, xerrors.Errorf("gathering report data: %w", err)
	}

	c.status(result, Rendering)
	if reports, err = c.creator.Create(data); err != nil {
		return reports, xerrors.Errorf("creating report artifacts: %w", err)
	}
	return
}

func (c *controller) reject(request report.Request, optionErrs []error, result *Result) (reports artifact.Reports, err error) {
	data := report.NewErrorData(request, c.version, c.clock.Now(), optionErrs)
	result.Errors = data.Errors
	for _, msg := range data.Errors {
		slog.Warn("Invalid report option", slog.String("err", msg))
	}

	c.status(result, Rendering)
	if reports, err = c.creator.CreateError(data); err != nil {
		return reports, xerrors.Errorf("creating error report: %w", err)
	}
	result.Status = Rejected
	return
}

func (c *controller) status(result *Result, status Status) {
	if result.Status == Rejected {
		return
	}
	result.Status = status
	slog.Debug("Report run status", slog.String("status", status.String()))
}
