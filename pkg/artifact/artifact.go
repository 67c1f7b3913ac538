// Package artifact writes the report files for a run.
package artifact

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/xerrors"

	"github.com/codeinsight-reports/vulnerability-report/pkg/artifact/html"
	"github.com/codeinsight-reports/vulnerability-report/pkg/artifact/xlsx"
	"github.com/codeinsight-reports/vulnerability-report/pkg/report"
)

const (
	extHTML = ".html"
	extXLSX = ".xlsx"
)

// Reports lists the files written for a run. Viewable is shown inline by
// Code Insight, AllFormats go into the downloadable archive.
type Reports struct {
	Viewable   string
	AllFormats []string
}

// Creator writes the report artifacts into a directory.
type Creator interface {
	Create(data report.Data) (Reports, error)
	CreateError(data report.ErrorData) (Reports, error)
}

type creator struct {
	outputDir string
}

func NewCreator(outputDir string) Creator {
	return &creator{
		outputDir: outputDir,
	}
}

func (c *creator) Create(data report.Data) (reports Reports, err error) {
	htmlPath := c.path(data.FileNameBase, extHTML)
	if err = writeFile(htmlPath, func(w io.Writer) error {
		return html.Render(w, data)
	}); err != nil {
		return reports, xerrors.Errorf("creating html report: %w", err)
	}

	xlsxPath := c.path(data.FileNameBase, extXLSX)
	if err = c.createWorkbook(xlsxPath, data); err != nil {
		_ = os.Remove(htmlPath)
		return reports, xerrors.Errorf("creating xlsx report: %w", err)
	}

	slog.Info("Created report artifacts",
		slog.String("html", htmlPath),
		slog.String("xlsx", xlsxPath),
	)
	return Reports{
		Viewable:   htmlPath,
		AllFormats: []string{htmlPath, xlsxPath},
	}, nil
}

func (c *creator) CreateError(data report.ErrorData) (reports Reports, err error) {
	htmlPath := c.path(data.FileNameBase, extHTML)
	if err = writeFile(htmlPath, func(w io.Writer) error {
		return html.RenderError(w, data)
	}); err != nil {
		return reports, xerrors.Errorf("creating error report: %w", err)
	}

	slog.Info("Created error report", slog.String("html", htmlPath))
	return Reports{
		Viewable:   htmlPath,
		AllFormats: []string{htmlPath},
	}, nil
}

func (c *creator) createWorkbook(path string, data report.Data) error {
	f, err := xlsx.Build(data)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	if err = f.SaveAs(path); err != nil {
		return xerrors.Errorf("saving workbook: %w", err)
	}
	return nil
}

func (c *creator) path(base, ext string) string {
	return filepath.Join(c.outputDir, base+ext)
}

func writeFile(path string, render func(w io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	return render(f)
}
