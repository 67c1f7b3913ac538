package etc

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
)

// Check checks config values to fail fast in case of any problems
// that we might have due to invalid config.
func Check(config Config) (err error) {
	slog.Debug("Current process", slog.Int("pid", os.Getpid()))

	if config.CodeInsight.BaseURL == "" {
		return errors.New("code insight base URL must not be blank")
	}

	baseURL, err := url.ParseRequestURI(config.CodeInsight.BaseURL)
	if err != nil || baseURL.Host == "" {
		return fmt.Errorf("invalid code insight base URL: %s", config.CodeInsight.BaseURL)
	}

	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return fmt.Errorf("unsupported code insight base URL scheme: %s", baseURL.Scheme)
	}

	if config.CodeInsight.Timeout <= 0 {
		return errors.New("code insight timeout must be positive")
	}

	if config.Report.Name == "" {
		return errors.New("report name must not be blank")
	}

	if config.Report.OutputDir == "" {
		return errors.New("report output dir must not be blank")
	}

	if err = ensureDirExists(config.Report.OutputDir, "report output dir"); err != nil {
		return
	}

	if config.Metrics.PushgatewayURL != "" {
		if _, err = url.ParseRequestURI(config.Metrics.PushgatewayURL); err != nil {
			return fmt.Errorf("invalid pushgateway URL: %s", config.Metrics.PushgatewayURL)
		}
		if config.Metrics.Job == "" {
			return errors.New("pushgateway job must not be blank")
		}
	}

	return
}

func ensureDirExists(path, description string) (err error) {
	if !dirExists(path) {
		slog.Warn(fmt.Sprintf("%s does not exist", description), slog.String("path", path))
		slog.Debug(fmt.Sprintf("Creating %s", description), slog.String("path", path))
		if err = os.MkdirAll(path, 0755); err != nil {
			err = fmt.Errorf("creating %s: %w", description, err)
			return
		}
	}
	fi, err := os.Stat(path)
	if err != nil {
		return
	}

	slog.Debug(fmt.Sprintf("%s permissions", description), slog.String("mode", fi.Mode().String()))
	return
}

// dirExists checks if a dir exists before we
// try using it to prevent further errors.
func dirExists(name string) bool {
	info, err := os.Stat(name)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && info.IsDir()
}
