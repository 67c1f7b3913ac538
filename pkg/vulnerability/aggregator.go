package vulnerability

import (
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/codeinsight-reports/vulnerability-report/pkg/codeinsight"
	"github.com/codeinsight-reports/vulnerability-report/pkg/hierarchy"
	"github.com/codeinsight-reports/vulnerability-report/pkg/inventory"
)

// Aggregator merges the inventories of the projects of a hierarchy into a
// deduplicated vulnerability index and per project severity counters.
// Projects must be added in traversal order: the first project that reports a
// vulnerability owns its metadata.
type Aggregator struct {
	version  CVSSVersion
	index    *Index
	counters map[int]Counters
	stats    Stats
}

func NewAggregator(version CVSSVersion) *Aggregator {
	return &Aggregator{
		version:  version,
		index:    newIndex(),
		counters: make(map[int]Counters),
	}
}

// Add aggregates the already filtered inventory items of a project.
func (a *Aggregator) Add(project hierarchy.Node, items []inventory.Item) {
	counters, ok := a.counters[project.ID]
	if !ok {
		counters = lo.SliceToMap(Metrics(a.version), func(m Metric) (Metric, int) {
			return m, 0
		})
		a.counters[project.ID] = counters
		a.stats.Projects++
	}

	for _, item := range items {
		a.stats.InventoryItems++
		a.stats.Ignored += len(item.Ignored)

		if len(item.Vulnerabilities) == 0 {
			slog.Debug("No vulnerabilities",
				slog.Int("inventory_id", item.ID),
				slog.String("component", item.ComponentName),
				slog.String("version", item.ComponentVersionName),
			)
			continue
		}

		component := Component{
			InventoryID:          item.ID,
			ComponentName:        item.ComponentName,
			ComponentVersionName: item.ComponentVersionName,
			ProjectID:            project.ID,
			ProjectName:          project.Name,
			ProjectLink:          project.Link,
			InventoryItemLink:    item.Link,
			FilePaths:            item.FilePaths,
		}

		for _, raw := range item.Vulnerabilities {
			a.stats.Sightings++

			entry, known := a.index.Get(raw.Name)
			if !known {
				entry = a.newEntry(raw)
				a.index.put(entry)
			}
			entry.AffectedComponents = append(entry.AffectedComponents, component)

			if entry.AffectsProject(project.ID) {
				continue
			}
			entry.addProject(project.ID)
			a.count(counters, project, entry)
		}
	}
}

func (a *Aggregator) newEntry(raw codeinsight.Vulnerability) *AggregatedVulnerability {
	entry := &AggregatedVulnerability{
		Name:          raw.Name,
		Description:   raw.Description,
		Source:        raw.Source,
		URL:           raw.URL,
		PublishedDate: raw.PublishedDate,
		ModifiedDate:  raw.ModifiedDate,
		projects:      make(map[int]struct{}),
	}

	if a.version == CVSS2 {
		entry.Severity = raw.CvssV2Severity
		entry.Score = raw.CvssV2Score
		entry.Vector = raw.CvssV2Vector
	} else {
		entry.Severity = raw.CvssV3Severity
		entry.Score = raw.CvssV3Score
		entry.Vector = raw.CvssV3Vector
	}
	if entry.Score == "" {
		entry.Score = codeinsight.NotAvailable
	}

	if entry.Vector != "" && entry.Vector != codeinsight.NotAvailable {
		entry.VectorLink = a.version.calculatorURL() + raw.Name
	}
	return entry
}

func (a *Aggregator) count(counters Counters, project hierarchy.Node, entry *AggregatedVulnerability) {
	metric, ok := Bucket(a.version, entry.Severity)
	if !ok {
		a.stats.UnknownSeverity++
		slog.Warn("Unrecognized severity",
			slog.String("vulnerability", entry.Name),
			slog.String("severity", entry.Severity),
			slog.String("cvss_version", string(a.version)),
			slog.Int("project_id", project.ID),
		)
		return
	}
	counters[metric]++
}

// Bucket maps a severity label emitted by Code Insight to its counter.
func Bucket(version CVSSVersion, severity string) (Metric, bool) {
	switch strings.ToUpper(strings.TrimSpace(severity)) {
	case "CRITICAL":
		if version == CVSS2 {
			return "", false
		}
		return Critical, true
	case "HIGH":
		return High, true
	case "MEDIUM":
		return Medium, true
	case "LOW":
		return Low, true
	case codeinsight.NotAvailable, "NONE":
		return None, true
	}
	return "", false
}

func (a *Aggregator) Index() *Index {
	return a.index
}

// Counters returns the severity counters keyed by project ID. Every added
// project has an entry for each metric of the CVSS version, zero included.
func (a *Aggregator) Counters() map[int]Counters {
	return a.counters
}

func (a *Aggregator) Stats() Stats {
	return a.stats
}

func (a *Aggregator) Version() CVSSVersion {
	return a.version
}
