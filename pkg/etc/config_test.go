package etc

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Envs map[string]string

func TestGetLogLevel(t *testing.T) {
	testCases := []struct {
		Name             string
		Envs             Envs
		ExpectedLogLevel slog.Level
	}{
		{
			Name:             "Should return default log level when env is not set",
			ExpectedLogLevel: slog.LevelInfo,
		},
		{
			Name: "Should return default log level when env has invalid value",
			Envs: Envs{
				"REPORT_LOG_LEVEL": "unknown_level",
			},
			ExpectedLogLevel: slog.LevelInfo,
		},
		{
			Name: "Should return log level set as env",
			Envs: Envs{
				"REPORT_LOG_LEVEL": "debug",
			},
			ExpectedLogLevel: slog.LevelDebug,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			setenvs(t, tc.Envs)
			assert.Equal(t, tc.ExpectedLogLevel, GetLogLevel())
		})
	}
}

func TestGetLogFormat(t *testing.T) {
	setenvs(t, Envs{"REPORT_LOG_FORMAT": "TEXT"})
	assert.Equal(t, "text", GetLogFormat())

	setenvs(t, Envs{})
	assert.Equal(t, "json", GetLogFormat())
}

func TestGetConfig(t *testing.T) {
	testCases := []struct {
		Name           string
		Envs           Envs
		EnvFile        string
		ExpectedConfig Config
	}{
		{
			Name: "Should return default config",
			ExpectedConfig: Config{
				CodeInsight: CodeInsight{
					Timeout: parseDuration(t, "5m"),
				},
				Report: Report{
					Name:      "Vulnerability Report",
					Path:      "vulnerability-report/create_report.sh",
					OutputDir: ".",
				},
				Metrics: Metrics{
					Job: "codeinsight_vulnerability_report",
				},
			},
		},
		{
			Name: "Should overwrite default config with environment variables",
			Envs: Envs{
				"CODEINSIGHT_BASE_URL":    "https://sca.example.com:8443",
				"CODEINSIGHT_AUTH_TOKEN":  "user-token",
				"CODEINSIGHT_ADMIN_TOKEN": "admin-token",
				"CODEINSIGHT_TIMEOUT":     "30s",
				"REPORT_NAME":             "Custom Vulnerability Report",
				"REPORT_OUTPUT_DIR":       "/tmp/reports",
				"REPORT_KEEP_ARTIFACTS":   "true",
				"REPORT_PUSHGATEWAY_URL":  "http://pushgateway:9091",
			},
			ExpectedConfig: Config{
				CodeInsight: CodeInsight{
					BaseURL:    "https://sca.example.com:8443",
					AuthToken:  "user-token",
					AdminToken: "admin-token",
					Timeout:    parseDuration(t, "30s"),
				},
				Report: Report{
					Name:          "Custom Vulnerability Report",
					Path:          "vulnerability-report/create_report.sh",
					OutputDir:     "/tmp/reports",
					KeepArtifacts: true,
				},
				Metrics: Metrics{
					PushgatewayURL: "http://pushgateway:9091",
					Job:            "codeinsight_vulnerability_report",
				},
			},
		},
		{
			Name: "Should read values from env file without overriding the environment",
			Envs: Envs{
				"CODEINSIGHT_AUTH_TOKEN": "from-env",
			},
			EnvFile: "CODEINSIGHT_BASE_URL=http://localhost:8888\nCODEINSIGHT_AUTH_TOKEN=from-file\n",
			ExpectedConfig: Config{
				CodeInsight: CodeInsight{
					BaseURL:   "http://localhost:8888",
					AuthToken: "from-env",
					Timeout:   parseDuration(t, "5m"),
				},
				Report: Report{
					Name:      "Vulnerability Report",
					Path:      "vulnerability-report/create_report.sh",
					OutputDir: ".",
				},
				Metrics: Metrics{
					Job: "codeinsight_vulnerability_report",
				},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			setenvs(t, tc.Envs)

			envFiles := []string{filepath.Join(t.TempDir(), "missing.env")}
			if tc.EnvFile != "" {
				file := filepath.Join(t.TempDir(), "report.env")
				require.NoError(t, os.WriteFile(file, []byte(tc.EnvFile), 0600))
				envFiles = append(envFiles, file)
			}

			config, err := GetConfig(envFiles...)
			require.NoError(t, err)
			assert.Equal(t, tc.ExpectedConfig, config)
		})
	}
}

func setenvs(t *testing.T, envs Envs) {
	t.Helper()
	os.Clearenv()
	for k, v := range envs {
		err := os.Setenv(k, v)
		require.NoError(t, err)
	}
}

func parseDuration(t *testing.T, s string) time.Duration {
	t.Helper()
	duration, err := time.ParseDuration(s)
	require.NoError(t, err)
	return duration
}
