// Package downloader fetches remote source archives into the package
// directory.
package downloader

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Downloader fetches archives over HTTP.
type Downloader struct {
	destDir string
	client  *http.Client
	logger  *zap.Logger
}

// NewDownloader creates a downloader storing files in destDir.
// A nil logger disables logging.
func NewDownloader(destDir string, logger *zap.Logger) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{
		destDir: destDir,
		client:  &http.Client{},
		logger:  logger,
	}
}

// IsURL reports whether s is an http(s) URL rather than a local path.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Fetch downloads rawURL into the destination directory and returns the
// local path. An existing file of the same name is reused.
func (d *Downloader) Fetch(rawURL string) (string, error) {
	destPath, err := d.DestPath(rawURL)
	if err != nil {
		return "", err
	}

	// Check if already downloaded
	if _, err := os.Stat(destPath); err == nil {
		d.logger.Debug("archive already present", zap.String("path", destPath))
		return destPath, nil
	}

	if err := os.MkdirAll(d.destDir, 0755); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}

	d.logger.Debug("downloading archive", zap.String("url", rawURL))
	resp, err := d.client.Get(rawURL)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading %s: HTTP %d", rawURL, resp.StatusCode)
	}

	// Write to temp file first, then rename
	tmpPath := destPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}

	_, err = io.Copy(out, resp.Body)
	out.Close()
	if err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming file: %w", err)
	}

	return destPath, nil
}

// DestPath returns where the archive at rawURL is stored: the last path
// segment of the URL inside the destination directory.
func (d *Downloader) DestPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing archive URL: %w", err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("archive URL %s has no file name", rawURL)
	}
	return filepath.Join(d.destDir, name), nil
}
