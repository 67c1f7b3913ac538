package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeinsight-reports/vulnerability-report/pkg/vulnerability"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name            string
		raw             string
		expectedOptions Options
		expectedErrors  []string
	}{
		{
			name:            "Should return defaults for blank options",
			raw:             "",
			expectedOptions: Default(),
		},
		{
			name:            "Should return defaults for empty object",
			raw:             "{}",
			expectedOptions: Options{IncludeChildProjects: true, CVSSVersion: vulnerability.CVSS3},
		},
		{
			name: "Should parse string values",
			raw:  `{"includeChildProjects": "false", "cvssVersion": "2.0", "includeAssociatedFiles": "True"}`,
			expectedOptions: Options{
				IncludeChildProjects:   false,
				CVSSVersion:            vulnerability.CVSS2,
				IncludeAssociatedFiles: true,
			},
		},
		{
			name: "Should parse boolean and numeric values",
			raw:  `{"includeChildProjects": false, "cvssVersion": 2.0, "includeAssociatedFiles": true}`,
			expectedOptions: Options{
				IncludeChildProjects:   false,
				CVSSVersion:            vulnerability.CVSS2,
				IncludeAssociatedFiles: true,
			},
		},
		{
			name:            "Should ignore unknown options",
			raw:             `{"colour": "blue"}`,
			expectedOptions: Default(),
		},
		{
			name: "Should collect every invalid option",
			raw:  `{"includeChildProjects": "maybe", "cvssVersion": "4.0"}`,
			expectedErrors: []string{
				`invalid value "maybe" for report option includeChildProjects, allowed values: true, false`,
				`invalid value "4.0" for report option cvssVersion, allowed values: 2.0, 3.x`,
			},
		},
		{
			name: "Should reject unsupported value types",
			raw:  `{"cvssVersion": ["3.x"]}`,
			expectedErrors: []string{
				"report option cvssVersion: unsupported value type []interface {}",
			},
		},
		{
			name: "Should reject malformed JSON",
			raw:  `{"cvssVersion": `,
			expectedErrors: []string{
				"parsing report options: unexpected end of JSON input",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			options, errs := Parse(tc.raw)
			if len(tc.expectedErrors) > 0 {
				require.Len(t, errs, len(tc.expectedErrors))
				for i, err := range errs {
					assert.EqualError(t, err, tc.expectedErrors[i])
				}
				assert.Equal(t, Options{}, options)
				return
			}
			assert.Empty(t, errs)
			assert.Equal(t, tc.expectedOptions, options)
		})
	}
}
