package commands

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeinsight-reports/vulnerability-report/pkg/etc"
)

func TestNewRootCommand(t *testing.T) {
	info := etc.BuildInfo{Version: "1.0.0"}

	t.Run("Should register subcommands", func(t *testing.T) {
		cmd := NewRootCommand(info)

		names := make([]string, 0)
		for _, c := range cmd.Commands() {
			names = append(names, c.Name())
		}
		assert.ElementsMatch(t, []string{"register", "unregister"}, names)
		assert.Equal(t, "1.0.0", cmd.Version)
	})

	t.Run("Should require project and report ids", func(t *testing.T) {
		cmd := NewRootCommand(info)
		cmd.SetArgs([]string{})

		err := cmd.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "projectID")
		assert.Contains(t, err.Error(), "reportID")
	})

	t.Run("Should accept report flags", func(t *testing.T) {
		cmd := NewRootCommand(info)
		require.NoError(t, cmd.ParseFlags([]string{
			"--projectID", "100",
			"--reportID", "7",
			"--authToken", "secret",
			"--reportOptions", `{"cvssVersion":"2.0"}`,
			"--baseURL", "https://sca.example.com",
		}))

		projectID, err := cmd.Flags().GetInt("projectID")
		require.NoError(t, err)
		assert.Equal(t, 100, projectID)
		raw, err := cmd.Flags().GetString("reportOptions")
		require.NoError(t, err)
		assert.Equal(t, `{"cvssVersion":"2.0"}`, raw)
	})
}

func TestLoadConfig(t *testing.T) {
	info := etc.BuildInfo{Version: "1.0.0"}
	missingEnvFile := filepath.Join(t.TempDir(), "missing.env")

	testCases := []struct {
		name            string
		env             string
		args            []string
		expectedBaseURL string
	}{
		{
			name:            "Should trim trailing slashes of environment base URL",
			env:             "https://sca.example.com//",
			expectedBaseURL: "https://sca.example.com",
		},
		{
			name:            "Should trim trailing slash of flag base URL",
			env:             "https://other.example.com",
			args:            []string{"--baseURL", "https://sca.example.com:8443/"},
			expectedBaseURL: "https://sca.example.com:8443",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("CODEINSIGHT_BASE_URL", tc.env)
			cmd := NewRootCommand(info)
			require.NoError(t, cmd.ParseFlags(append([]string{"--env-file", missingEnvFile}, tc.args...)))

			config, runID, err := loadConfig(cmd, info)
			require.NoError(t, err)
			assert.NotEmpty(t, runID)
			assert.Equal(t, tc.expectedBaseURL, config.CodeInsight.BaseURL)
		})
	}
}

func TestRunContext(t *testing.T) {
	cmd := NewRootCommand(etc.BuildInfo{})
	cmd.SetContext(context.Background())

	ctx, stop := runContext(cmd)
	defer stop()

	_, hasDeadline := ctx.Deadline()
	assert.False(t, hasDeadline)
	assert.NoError(t, ctx.Err())

	stop()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
