package etc

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"golang.org/x/xerrors"
)

type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

type Config struct {
	CodeInsight CodeInsight
	Report      Report
	Metrics     Metrics
}

type CodeInsight struct {
	BaseURL            string        `env:"CODEINSIGHT_BASE_URL"`
	AuthToken          string        `env:"CODEINSIGHT_AUTH_TOKEN"`
	AdminToken         string        `env:"CODEINSIGHT_ADMIN_TOKEN"`
	Timeout            time.Duration `env:"CODEINSIGHT_TIMEOUT" envDefault:"5m"`
	InsecureSkipVerify bool          `env:"CODEINSIGHT_INSECURE_SKIP_VERIFY" envDefault:"false"`
}

type Report struct {
	Name          string `env:"REPORT_NAME" envDefault:"Vulnerability Report"`
	Path          string `env:"REPORT_PATH" envDefault:"vulnerability-report/create_report.sh"`
	OutputDir     string `env:"REPORT_OUTPUT_DIR" envDefault:"."`
	KeepArtifacts bool   `env:"REPORT_KEEP_ARTIFACTS" envDefault:"false"`
}

type Metrics struct {
	PushgatewayURL string `env:"REPORT_PUSHGATEWAY_URL"`
	Job            string `env:"REPORT_PUSHGATEWAY_JOB" envDefault:"codeinsight_vulnerability_report"`
}

// GetLogLevel returns the level set in REPORT_LOG_LEVEL, or info when the
// variable is unset or holds an unknown level.
func GetLogLevel() slog.Level {
	if value, ok := os.LookupEnv("REPORT_LOG_LEVEL"); ok {
		var level slog.Level
		if err := level.UnmarshalText([]byte(value)); err != nil {
			return slog.LevelInfo
		}
		return level
	}
	return slog.LevelInfo
}

// GetLogFormat returns either "json" or "text".
func GetLogFormat() string {
	if strings.EqualFold(os.Getenv("REPORT_LOG_FORMAT"), "text") {
		return "text"
	}
	return "json"
}

// GetConfig loads the given dotenv files, skipping the ones that do not exist,
// and parses the environment into a Config. Variables already present in the
// environment take precedence over the files.
func GetConfig(envFiles ...string) (cfg Config, err error) {
	for _, file := range envFiles {
		if err = godotenv.Load(file); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				err = nil
				continue
			}
			return cfg, xerrors.Errorf("loading env file %s: %w", file, err)
		}
		slog.Debug("Loaded env file", slog.String("file", file))
	}

	err = env.Parse(&cfg)
	return
}
