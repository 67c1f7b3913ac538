package main

import (
	"log/slog"
	"os"

	"github.com/codeinsight-reports/vulnerability-report/cmd/vulnerability-report/commands"
	"github.com/codeinsight-reports/vulnerability-report/pkg/etc"
)

var (
	// Default wise GoReleaser sets three ldflags:
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	info := etc.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	}

	if err := commands.NewRootCommand(info).Execute(); err != nil {
		slog.Error("Error", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
