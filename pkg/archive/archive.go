// Package archive packages the report artifacts for upload to Code Insight.
package archive

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
	"github.com/opencontainers/go-digest"
	"golang.org/x/xerrors"

	"github.com/codeinsight-reports/vulnerability-report/pkg/artifact"
)

const uploadSuffix = "_upload"

// Packager builds the archive uploaded to Code Insight.
type Packager interface {
	// Package zips every format into <reportName>.zip, then zips that archive
	// together with the viewable file into <reportName>_upload.zip. The report
	// files and the intermediate archive are removed. It returns the path of
	// the upload archive.
	Package(reports artifact.Reports, reportName string) (string, error)
}

type packager struct {
	outputDir string
}

func NewPackager(outputDir string) Packager {
	return &packager{
		outputDir: outputDir,
	}
}

func (p *packager) Package(reports artifact.Reports, reportName string) (string, error) {
	allFormats := filepath.Join(p.outputDir, reportName+".zip")
	if err := write(allFormats, reports.AllFormats); err != nil {
		return "", xerrors.Errorf("creating downloadable archive: %w", err)
	}

	upload := filepath.Join(p.outputDir, reportName+uploadSuffix+".zip")
	if err := write(upload, []string{reports.Viewable, allFormats}); err != nil {
		return "", xerrors.Errorf("creating upload archive: %w", err)
	}

	for _, path := range append([]string{allFormats}, reports.AllFormats...) {
		if err := os.Remove(path); err != nil {
			return "", xerrors.Errorf("removing %s: %w", path, err)
		}
	}

	return upload, nil
}

// Remove deletes the upload archive once Code Insight has received it.
func Remove(path string) {
	if err := os.Remove(path); err != nil {
		slog.Warn("Error while removing upload archive",
			slog.String("path", path),
			slog.String("err", err.Error()),
		)
	}
}

func write(path string, files []string) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	zw := zip.NewWriter(out)
	for _, file := range files {
		if err = add(zw, file); err != nil {
			return xerrors.Errorf("adding %s: %w", file, err)
		}
	}
	if err = zw.Close(); err != nil {
		return err
	}

	return logDigest(path)
}

func add(zw *zip.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = in.Close()
	}()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}

func logDigest(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	d, err := digest.Canonical.FromReader(f)
	if err != nil {
		return xerrors.Errorf("computing digest: %w", err)
	}
	slog.Info("Created archive",
		slog.String("path", path),
		slog.String("digest", d.String()),
	)
	return nil
}
