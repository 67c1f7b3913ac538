package report

import (
	"context"
	"log/slog"

	"golang.org/x/xerrors"

	"github.com/codeinsight-reports/vulnerability-report/pkg/codeinsight"
	"github.com/codeinsight-reports/vulnerability-report/pkg/hierarchy"
	"github.com/codeinsight-reports/vulnerability-report/pkg/inventory"
	"github.com/codeinsight-reports/vulnerability-report/pkg/metrics"
	"github.com/codeinsight-reports/vulnerability-report/pkg/rollup"
	"github.com/codeinsight-reports/vulnerability-report/pkg/vulnerability"
)

// Gatherer wraps the Gather method.
// Gather walks the project hierarchy and aggregates the vulnerabilities of every project.
type Gatherer interface {
	Gather(ctx context.Context, request Request) (Data, error)
}

type gatherer struct {
	client   codeinsight.Client
	baseURL  string
	version  string
	clock    Clock
	recorder *metrics.Recorder
}

// NewGatherer constructs a Gatherer with the given Clock.
func NewGatherer(client codeinsight.Client, baseURL, version string, clock Clock, recorder *metrics.Recorder) Gatherer {
	return &gatherer{
		client:   client,
		baseURL:  baseURL,
		version:  version,
		clock:    clock,
		recorder: recorder,
	}
}

// Gather visits the projects one at a time in hierarchy order. Any fetch
// error aborts the run without returning partial data.
func (g *gatherer) Gather(ctx context.Context, request Request) (Data, error) {
	opts := request.Options

	h, err := hierarchy.NewWalker(g.client, g.baseURL, opts.IncludeChildProjects).Build(ctx, request.ProjectID)
	if err != nil {
		return Data{}, xerrors.Errorf("building project hierarchy: %w", err)
	}
	slog.Info("Built project hierarchy",
		slog.Int("project_id", request.ProjectID),
		slog.Int("projects", len(h.Nodes)),
	)

	normalizer := inventory.NewNormalizer(g.client, g.baseURL, opts.IncludeAssociatedFiles)
	aggregator := vulnerability.NewAggregator(opts.CVSSVersion)

	for _, node := range h.Nodes {
		items, err := normalizer.Normalize(ctx, node.ID)
		if err != nil {
			return Data{}, xerrors.Errorf("collecting project %s: %w", node.Name, err)
		}
		aggregator.Add(node, items)
		slog.Debug("Aggregated project inventory",
			slog.Int("project_id", node.ID),
			slog.String("project_name", node.Name),
			slog.Int("inventory_items", len(items)),
		)
	}

	projectSummary, applicationSummary := rollup.Build(aggregator.Counters(), h.Nodes,
		opts.CVSSVersion, opts.IncludeAssociatedFiles)

	stats := aggregator.Stats()
	g.recorder.RecordAggregation(stats)
	g.recorder.RecordTotals(applicationSummary.Totals)
	slog.Info("Aggregated vulnerabilities",
		slog.Int("vulnerabilities", aggregator.Index().Len()),
		slog.Int("sightings", stats.Sightings),
		slog.Int("ignored", stats.Ignored),
		slog.Int("unknown_severity", stats.UnknownSeverity),
	)

	now := g.clock.Now()
	root := h.Root()
	return Data{
		ReportName:           request.ReportName,
		ReportVersion:        g.version,
		ProjectName:          root.Name,
		ProjectID:            root.ID,
		GeneratedAt:          now,
		FileNameTimeStamp:    now.Format(fileNameTimeStampLayout),
		ReportTimeStamp:      now.Format(reportTimeStampLayout),
		FileNameBase:         FileNameBase(root.Name, root.ID, h.HasChildren(), request.ReportName, now),
		VulnerabilityDetails: vulnerability.SortByScore(aggregator.Index()),
		ProjectList:          h.Nodes,
		ProjectSummary:       projectSummary,
		ApplicationSummary:   applicationSummary,
		ProjectHierarchy:     h.Tree,
		Options:              opts,
	}, nil
}
