package vulnerability

import (
	"sort"

	"github.com/codeinsight-reports/vulnerability-report/pkg/codeinsight"
)

const lowestScoreKey = "-1"

// SortKey returns the key a score is ordered by. Keys are compared as
// strings, so "9.8" ranks above "10.0".
func SortKey(score codeinsight.Score) string {
	if score == "" || score == codeinsight.NotAvailable {
		return lowestScoreKey
	}
	return string(score)
}

// SortByScore orders the vulnerabilities by descending score key. Ties keep
// their first seen order.
func SortByScore(index *Index) []*AggregatedVulnerability {
	sorted := index.All()
	sort.SliceStable(sorted, func(i, j int) bool {
		return SortKey(sorted[i].Score) > SortKey(sorted[j].Score)
	})
	return sorted
}
