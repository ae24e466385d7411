package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	apperrors "github.com/SAP-F-2025/performance-report-service/internal/errors"
)

// Publish writes an artifact into dir under name. Content goes to a hidden
// temporary file in the same directory which is renamed into place only after
// write succeeded, so readers never see a partial file. On failure the
// temporary file is removed and an ArtifactError is returned.
func Publish(dir, name string, write func(io.Writer) error) (path string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperrors.NewArtifactError(name, fmt.Errorf("create output directory: %w", err))
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", apperrors.NewArtifactError(name, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	buf := bufio.NewWriter(tmp)
	if err := write(buf); err != nil {
		return "", apperrors.NewArtifactError(name, err)
	}
	if err := buf.Flush(); err != nil {
		return "", apperrors.NewArtifactError(name, err)
	}
	if err := tmp.Sync(); err != nil {
		return "", apperrors.NewArtifactError(name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", apperrors.NewArtifactError(name, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", apperrors.NewArtifactError(name, err)
	}

	path = filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", apperrors.NewArtifactError(name, err)
	}
	return path, nil
}

// Unpublish removes artifacts that were published for a request that failed
// later on. Missing files are ignored.
func Unpublish(paths ...string) error {
	var errs []error
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
