package vulnerability

import (
	"github.com/codeinsight-reports/vulnerability-report/pkg/codeinsight"
)

// CVSSVersion selects which severity, score and vector of a vulnerability are reported.
type CVSSVersion string

const (
	CVSS2 CVSSVersion = "2.0"
	CVSS3 CVSSVersion = "3.x"
)

func (v CVSSVersion) calculatorURL() string {
	if v == CVSS2 {
		return "https://nvd.nist.gov/vuln-metrics/cvss/v2-calculator?name="
	}
	return "https://nvd.nist.gov/vuln-metrics/cvss/v3-calculator?name="
}

// Metric is the name of a per project severity counter.
type Metric string

const (
	Critical Metric = "numCriticalVulnerabilities"
	High     Metric = "numHighVulnerabilities"
	Medium   Metric = "numMediumVulnerabilities"
	Low      Metric = "numLowVulnerabilities"
	None     Metric = "numNoneVulnerabilities"
)

// Metrics returns the counters reported for the given CVSS version, most severe first.
// CVSS 2.0 has no critical band.
func Metrics(version CVSSVersion) []Metric {
	if version == CVSS2 {
		return []Metric{High, Medium, Low, None}
	}
	return []Metric{Critical, High, Medium, Low, None}
}

// Counters holds the severity counters of one project.
type Counters map[Metric]int

// Component is one sighting of a vulnerability on an inventory item of a project.
type Component struct {
	InventoryID          int
	ComponentName        string
	ComponentVersionName string
	ProjectID            int
	ProjectName          string
	ProjectLink          string
	InventoryItemLink    string
	FilePaths            []string
}

// AggregatedVulnerability merges every sighting of a vulnerability across the
// project hierarchy. Metadata is taken from the first sighting.
type AggregatedVulnerability struct {
	Name          string
	Description   string
	Source        string
	URL           string
	Severity      string
	Score         codeinsight.Score
	Vector        string
	VectorLink    string
	PublishedDate string
	ModifiedDate  string

	AffectedComponents []Component
	// AffectedProjects lists project IDs in the order they were first seen.
	AffectedProjects []int

	projects map[int]struct{}
}

func (v *AggregatedVulnerability) AffectsProject(projectID int) bool {
	_, ok := v.projects[projectID]
	return ok
}

func (v *AggregatedVulnerability) addProject(projectID int) {
	v.projects[projectID] = struct{}{}
	v.AffectedProjects = append(v.AffectedProjects, projectID)
}

// Index is the set of aggregated vulnerabilities keyed by name, in first seen order.
type Index struct {
	names   []string
	entries map[string]*AggregatedVulnerability
}

func newIndex() *Index {
	return &Index{entries: make(map[string]*AggregatedVulnerability)}
}

func (i *Index) Get(name string) (*AggregatedVulnerability, bool) {
	v, ok := i.entries[name]
	return v, ok
}

func (i *Index) Len() int {
	return len(i.names)
}

func (i *Index) Names() []string {
	names := make([]string, len(i.names))
	copy(names, i.names)
	return names
}

// All returns the vulnerabilities in first seen order.
func (i *Index) All() []*AggregatedVulnerability {
	all := make([]*AggregatedVulnerability, len(i.names))
	for n, name := range i.names {
		all[n] = i.entries[name]
	}
	return all
}

func (i *Index) put(v *AggregatedVulnerability) {
	i.names = append(i.names, v.Name)
	i.entries[v.Name] = v
}

// Stats describes what the aggregator has seen so far.
type Stats struct {
	Projects        int
	InventoryItems  int
	Sightings       int
	Ignored         int
	UnknownSeverity int
}
