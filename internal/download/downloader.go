// Package download fetches pre-trained model files over HTTP with bounded retries.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Downloader fetches model files with a fixed number of attempts per file
// and a fixed backoff between attempts. Retry bookkeeping lives here; the
// vocabulary store only observes the final files on disk.
type Downloader struct {
	client     *http.Client
	logger     *zap.Logger
	maxRetries int
	backoff    time.Duration
}

// NewDownloader creates a downloader. maxRetries <= 0 defaults to 3 attempts
// and backoff <= 0 to 2 seconds.
func NewDownloader(logger *zap.Logger, maxRetries int, backoff time.Duration) *Downloader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	return &Downloader{
		client:     &http.Client{Timeout: 10 * time.Minute},
		logger:     logger,
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

// Fetch downloads url to dest, writing through a temp file and renaming so a
// partial download never shows up at dest. Retries up to the configured
// attempt count with fixed backoff.
func (d *Downloader) Fetch(ctx context.Context, url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	var lastErr error
	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.backoff):
			}
		}
		if err := d.fetchOnce(ctx, url, dest); err != nil {
			lastErr = err
			d.logger.Warn("model download attempt failed",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", d.maxRetries),
				zap.Error(err),
			)
			continue
		}
		return nil
	}
	return fmt.Errorf("download %s after %d attempts: %w", url, d.maxRetries, lastErr)
}

func (d *Downloader) fetchOnce(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), dest)
}

// EnsureFile fetches url to dest only when dest does not exist yet.
// Returns true when a download happened.
func (d *Downloader) EnsureFile(ctx context.Context, url, dest string) (bool, error) {
	if _, err := os.Stat(dest); err == nil {
		d.logger.Debug("model file already present", zap.String("path", dest))
		return false, nil
	}
	start := time.Now()
	if err := d.Fetch(ctx, url, dest); err != nil {
		return false, err
	}
	d.logger.Info("model file downloaded",
		zap.String("url", url),
		zap.String("path", dest),
		zap.Duration("elapsed", time.Since(start)),
	)
	return true, nil
}
