package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/codeinsight-reports/vulnerability-report/pkg/codeinsight"
	"github.com/codeinsight-reports/vulnerability-report/pkg/mock"
)

const baseURL = "https://sca.example.com"

func TestParseIgnoreList(t *testing.T) {
	testCases := []struct {
		name     string
		value    string
		expected IgnoreList
	}{
		{
			name:     "Should return empty list for blank value",
			value:    "  \n \n",
			expected: IgnoreList{},
		},
		{
			name:  "Should split lines and trim whitespace",
			value: "CVE-2020-0001\n  CVE-2020-0002  \r\n\nCVE-2020-0003",
			expected: IgnoreList{
				"CVE-2020-0001": {},
				"CVE-2020-0002": {},
				"CVE-2020-0003": {},
			},
		},
		{
			name:  "Should drop reason after pipe",
			value: "CVE-2020-0001 | not reachable\nCVE-2020-0002|false positive|see ticket",
			expected: IgnoreList{
				"CVE-2020-0001": {},
				"CVE-2020-0002": {},
			},
		},
		{
			name:     "Should skip lines with reason only",
			value:    "| no name given",
			expected: IgnoreList{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseIgnoreList(tc.value))
		})
	}
}

func TestExtractIgnoreList(t *testing.T) {
	t.Run("Should return empty list when custom field is missing", func(t *testing.T) {
		list := ExtractIgnoreList(codeinsight.InventoryItem{
			CustomFields: []codeinsight.CustomField{{FieldLabel: "Notes", Value: "CVE-2020-0001"}},
		})
		assert.Empty(t, list)
		assert.False(t, list.Contains("CVE-2020-0001"))
	})

	t.Run("Should parse custom field value", func(t *testing.T) {
		list := ExtractIgnoreList(codeinsight.InventoryItem{
			CustomFields: []codeinsight.CustomField{
				{FieldLabel: "Notes", Value: "irrelevant"},
				{FieldLabel: IgnoreListFieldLabel, Value: "CVE-2020-0001|not reachable"},
			},
		})
		assert.True(t, list.Contains("CVE-2020-0001"))
		assert.False(t, list.Contains("CVE-2020-0002"))
	})
}

func TestNormalize(t *testing.T) {
	raw := []codeinsight.InventoryItem{
		{
			ID:                   5001,
			ComponentName:        "openssl",
			ComponentVersionName: "1.0.2",
			FilePaths:            []string{"lib/libssl.so"},
			CustomFields: []codeinsight.CustomField{
				{FieldLabel: IgnoreListFieldLabel, Value: "CVE-2020-0001"},
			},
			Vulnerabilities: []codeinsight.Vulnerability{
				{Name: "CVE-2020-0001"},
				{Name: "CVE-2016-2105"},
			},
		},
		{
			ID:                   5002,
			ComponentName:        "curl",
			ComponentVersionName: "7.64.0",
			Vulnerabilities: []codeinsight.Vulnerability{
				{Name: "CVE-2020-0001"},
			},
		},
		{
			ID:                   5003,
			ComponentName:        "zlib",
			ComponentVersionName: "1.2.11",
		},
	}

	items, err := Normalize(100, baseURL, raw)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, Item{
		ID:                   5001,
		ComponentName:        "openssl",
		ComponentVersionName: "1.0.2",
		FilePaths:            []string{"lib/libssl.so"},
		Link:                 "https://sca.example.com/codeinsight/FNCI#myprojectdetails/?id=100&tab=projectInventory&pinv=5001",
		Vulnerabilities:      []codeinsight.Vulnerability{{Name: "CVE-2016-2105"}},
		Ignored:              []string{"CVE-2020-0001"},
	}, items[0])

	assert.Equal(t, []codeinsight.Vulnerability{{Name: "CVE-2020-0001"}}, items[1].Vulnerabilities)
	assert.Empty(t, items[1].Ignored)

	assert.Empty(t, items[2].Vulnerabilities)

	t.Run("Should reject items without id", func(t *testing.T) {
		_, err := Normalize(100, baseURL, []codeinsight.InventoryItem{{ComponentName: "zlib"}})
		assert.EqualError(t, err, "inventory item without id")
	})
}

func TestNormalizer_Normalize(t *testing.T) {
	testCases := []struct {
		name                 string
		includeFiles         bool
		clientExpectation    *mock.Expectation
		expectedItems        int
		expectedErrorMessage string
	}{
		{
			name:         "Should request file paths when enabled",
			includeFiles: true,
			clientExpectation: &mock.Expectation{
				Method: "GetProjectInventory",
				Args: []interface{}{mock.Anything, 100, codeinsight.InventoryOptions{
					Published:    true,
					IncludeFiles: true,
				}},
				ReturnArgs: []interface{}{codeinsight.ProjectInventoryResponse{
					ProjectName:    "Application",
					InventoryItems: []codeinsight.InventoryItem{{ID: 1}, {ID: 2}},
				}, nil},
			},
			expectedItems: 2,
		},
		{
			name: "Should not request file paths when disabled",
			clientExpectation: &mock.Expectation{
				Method: "GetProjectInventory",
				Args: []interface{}{mock.Anything, 100, codeinsight.InventoryOptions{
					Published: true,
				}},
				ReturnArgs: []interface{}{codeinsight.ProjectInventoryResponse{
					ProjectName:    "Application",
					InventoryItems: []codeinsight.InventoryItem{},
				}, nil},
			},
		},
		{
			name: "Should return fetch error when inventoryItems is missing",
			clientExpectation: &mock.Expectation{
				Method: "GetProjectInventory",
				Args: []interface{}{mock.Anything, 100, codeinsight.InventoryOptions{
					Published: true,
				}},
				ReturnArgs: []interface{}{codeinsight.ProjectInventoryResponse{ProjectName: "Application"}, nil},
			},
			expectedErrorMessage: "fetching inventory of project 100: response without inventoryItems",
		},
		{
			name: "Should return fetch error when client fails",
			clientExpectation: &mock.Expectation{
				Method: "GetProjectInventory",
				Args: []interface{}{mock.Anything, 100, codeinsight.InventoryOptions{
					Published: true,
				}},
				ReturnArgs: []interface{}{codeinsight.ProjectInventoryResponse{}, xerrors.New("timeout")},
			},
			expectedErrorMessage: "fetching inventory of project 100: timeout",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := mock.NewClient()
			mock.ApplyExpectations(t, client, tc.clientExpectation)

			items, err := NewNormalizer(client, baseURL, tc.includeFiles).Normalize(context.Background(), 100)
			if tc.expectedErrorMessage != "" {
				var fetchErr *FetchError
				require.ErrorAs(t, err, &fetchErr)
				assert.Equal(t, 100, fetchErr.ProjectID)
				assert.EqualError(t, err, tc.expectedErrorMessage)
			} else {
				require.NoError(t, err)
				assert.Len(t, items, tc.expectedItems)
			}
			client.AssertExpectations(t)
		})
	}
}
