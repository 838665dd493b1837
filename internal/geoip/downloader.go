// Package geoip handles downloading, updating, and reading MaxMind GeoLite2 databases
// used to tag query reports with the server country.
package geoip

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog/log"
)

// ErrDownload is returned when the database URL does not answer with 200 OK.
var ErrDownload = errors.New("geoip download failed")

// EnsureDB checks if the GeoIP database exists at the specified path and if it is recent enough.
// If the file is missing or older than maxAge, it downloads a new copy from the provided URL.
// A zero maxAge never refreshes an existing file.
func EnsureDB(ctx context.Context, client *http.Client, path, url string, maxAge time.Duration) error {
	info, err := os.Stat(path)

	switch {
	case err == nil:
		if maxAge <= 0 || time.Since(info.ModTime()) < maxAge {
			log.Debug().Str("path", path).Msg("GeoIP database is up to date")
			return nil
		}
		log.Info().Str("path", path).Msg("GeoIP database is outdated, updating...")
	case os.IsNotExist(err):
		log.Info().Str("path", path).Msg("GeoIP database missing, downloading...")
	default:
		return errors.Wrap(err, "stat geoip database")
	}

	if url == "" {
		return errors.Wrap(ErrDownload, "no download url")
	}

	return downloadFile(ctx, client, path, url)
}

// downloadFile downloads a file from a URL to a local path using a temporary file
// to ensure atomic writes.
func downloadFile(ctx context.Context, client *http.Client, path, url string) error {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "build geoip request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "download geoip database")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(ErrDownload, "status %d", resp.StatusCode)
	}

	tmpPath := path + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return errors.Wrap(err, "create temporary file")
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "write geoip database")
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.Wrap(err, "close temporary file")
	}

	return os.Rename(tmpPath, path)
}
