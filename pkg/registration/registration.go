// Package registration adds and removes the report from the Code Insight report list.
package registration

import (
	"context"
	"log/slog"

	"github.com/samber/lo"
	"golang.org/x/xerrors"

	"github.com/codeinsight-reports/vulnerability-report/pkg/codeinsight"
)

// Register appends the report after the most recently registered one and
// returns its id. The report order is one more than the order of the report
// with the highest id.
func Register(ctx context.Context, client codeinsight.Client, name, path string) (int, error) {
	reports, err := client.ListReports(ctx)
	if err != nil {
		return 0, xerrors.Errorf("retrieving registered reports: %w", err)
	}

	order := 1
	if len(reports) > 0 {
		latest := lo.MaxBy(reports, func(a, b codeinsight.Report) bool {
			return a.ID > b.ID
		})
		order = latest.Order + 1
	}

	slog.Info("Registering report", slog.String("name", name), slog.Int("order", order))
	id, err := client.RegisterReport(ctx, codeinsight.RegisterReportRequest{
		Name:                name,
		Path:                path,
		Order:               order,
		EnableProjectPicker: false,
	})
	if err != nil {
		return 0, err
	}

	slog.Info("Registered report", slog.String("name", name), slog.Int("report_id", id))
	return id, nil
}

// Unregister deletes every registered report with the given name.
func Unregister(ctx context.Context, client codeinsight.Client, name string) error {
	reports, err := client.ListReports(ctx)
	if err != nil {
		return xerrors.Errorf("retrieving registered reports: %w", err)
	}

	matching := lo.Filter(reports, func(r codeinsight.Report, _ int) bool {
		return r.Name == name
	})
	if len(matching) == 0 {
		return xerrors.Errorf("report %s is not registered", name)
	}

	for _, r := range matching {
		if err = client.UnregisterReport(ctx, r.ID); err != nil {
			return err
		}
		slog.Info("Unregistered report", slog.String("name", name), slog.Int("report_id", r.ID))
	}
	return nil
}
