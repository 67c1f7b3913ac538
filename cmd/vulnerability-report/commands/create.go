package commands

import (
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"github.com/codeinsight-reports/vulnerability-report/pkg/archive"
	"github.com/codeinsight-reports/vulnerability-report/pkg/artifact"
	"github.com/codeinsight-reports/vulnerability-report/pkg/codeinsight"
	"github.com/codeinsight-reports/vulnerability-report/pkg/etc"
	"github.com/codeinsight-reports/vulnerability-report/pkg/job"
	"github.com/codeinsight-reports/vulnerability-report/pkg/metrics"
	"github.com/codeinsight-reports/vulnerability-report/pkg/report"
	"github.com/codeinsight-reports/vulnerability-report/pkg/report/options"
)

func addCreateFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Int("projectID", 0, "id of the project the report is created for")
	flags.Int("reportID", 0, "id the report is registered with")
	flags.String("authToken", "", "Code Insight authorization token [$CODEINSIGHT_AUTH_TOKEN]")
	flags.String("reportOptions", "", "report options as a JSON object")

	_ = cmd.MarkFlagRequired("projectID")
	_ = cmd.MarkFlagRequired("reportID")
}

func runCreate(cmd *cobra.Command, info etc.BuildInfo) error {
	config, runID, err := loadConfig(cmd, info)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("authToken") {
		config.CodeInsight.AuthToken, _ = flags.GetString("authToken")
	}
	if err = etc.Check(config); err != nil {
		return xerrors.Errorf("checking config: %w", err)
	}
	if config.CodeInsight.AuthToken == "" {
		return xerrors.New("code insight auth token must not be blank")
	}

	projectID, _ := flags.GetInt("projectID")
	reportID, _ := flags.GetInt("reportID")
	rawOptions, _ := flags.GetString("reportOptions")

	opts, optionErrs := options.Parse(rawOptions)
	request := report.Request{
		ProjectID:  projectID,
		ReportID:   reportID,
		ReportName: config.Report.Name,
		Options:    opts,
	}
	slog.Info("Creating report",
		slog.String("report_name", request.ReportName),
		slog.Int("project_id", request.ProjectID),
		slog.Int("report_id", request.ReportID),
	)

	ctx, stop := runContext(cmd)
	defer stop()

	clock := &report.SystemClock{}
	client := codeinsight.NewClient(config.CodeInsight, config.CodeInsight.AuthToken)
	recorder := metrics.NewRecorder()
	controller := job.NewController(config, info.Version, client,
		report.NewGatherer(client, config.CodeInsight.BaseURL, info.Version, clock, recorder),
		artifact.NewCreator(config.Report.OutputDir),
		archive.NewPackager(config.Report.OutputDir),
		recorder, clock)

	result, err := controller.Run(ctx, runID, request, optionErrs)
	if err != nil {
		return err
	}

	slog.Info("Completed report", slog.String("status", result.Status.String()))
	return nil
}
