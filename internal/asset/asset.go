// Package asset makes sure the benchmark input file is available locally,
// downloading it once and caching it by file name.
package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

// Fetcher downloads assets over HTTP.
type Fetcher struct {
	Client *http.Client
	Logger *slog.Logger
}

// NewFetcher returns a Fetcher using http.DefaultClient.
func NewFetcher(logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{Client: http.DefaultClient, Logger: logger}
}

// Ensure leaves path untouched when it already exists; otherwise it downloads
// url into a temporary file next to path and renames it into place, so an
// interrupted download never leaves a truncated asset behind.
// Reports whether a download happened.
func (f *Fetcher) Ensure(ctx context.Context, url, path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		f.Logger.Debug("asset cached", "path", path)
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("checking %s: %w", path, err)
	}

	f.Logger.Info("downloading test asset", "url", url, "path", path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("building request for %s: %w", url, err)
	}
	resp, err := f.client().Do(req)
	if err != nil {
		return false, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("fetching %s: unexpected status %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return false, fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	n, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return false, fmt.Errorf("installing %s: %w", path, err)
	}

	f.Logger.Debug("asset downloaded", "path", path, "bytes", n)
	return true, nil
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}
