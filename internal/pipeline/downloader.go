// Package pipeline orchestrates the stages of the corpus workflow:
// gathering resources, building the pattern model, extracting batches,
// tagging and statistics.
package pipeline

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lcvriend/toponym-extraction/internal/model"
	"github.com/lcvriend/toponym-extraction/internal/util"
	"github.com/lcvriend/toponym-extraction/internal/worker"
)

// Downloader fetches datasets politely: rate-limited per host, honoring
// robots.txt and crawl delays, skipping files already on disk.
type Downloader struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	robots    *util.RobotsChecker
	limiter   *worker.Limiter
}

// NewDownloader creates a downloader from the HTTP and rate limit
// configuration.
func NewDownloader(httpCfg model.HTTPConfig, rateCfg model.RateLimitConfig) *Downloader {
	client := &http.Client{
		Timeout: httpCfg.Timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(httpCfg.ProxyHTTP, httpCfg.ProxyHTTPS),
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			return nil
		},
	}
	return &Downloader{
		client:    client,
		userAgent: httpCfg.UserAgent,
		maxBytes:  httpCfg.MaxBodyBytes,
		robots:    util.NewRobotsChecker(client, httpCfg.UserAgent),
		limiter:   worker.NewLimiter(rateCfg.RequestsPerSecond, rateCfg.BurstSize),
	}
}

// Download fetches rawURL into dest. An existing dest is left alone so
// gathering is rerunnable without hitting the servers again.
func (d *Downloader) Download(ctx context.Context, rawURL, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return nil
	}

	allowed, err := d.robots.CanFetch(ctx, rawURL)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: %s disallowed by robots.txt", model.ErrFetchFailed, rawURL)
	}
	if delay := d.robots.CrawlDelay(ctx, rawURL); delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	if err := d.limiter.Wait(ctx, rawURL); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", model.ErrFetchFailed, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned %s", model.ErrFetchFailed, rawURL, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	// Write to a temp file first so an interrupted download never leaves
	// a half-written dataset behind.
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	body := io.Reader(resp.Body)
	if d.maxBytes > 0 {
		body = io.LimitReader(resp.Body, d.maxBytes)
	}
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return fmt.Errorf("download %s: %w", rawURL, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("move download into place: %w", err)
	}
	return nil
}

// Unzip extracts an archive next to itself. Entry paths are validated so
// a crafted archive cannot write outside the directory.
func Unzip(path, dir string) error {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer archive.Close()

	for _, f := range archive.File {
		dest := filepath.Join(dir, f.Name)
		if !strings.HasPrefix(dest, filepath.Clean(dir)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal entry path %q in %s", f.Name, path)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0755); err != nil {
				return fmt.Errorf("create %s: %w", dest, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Dir(dest), err)
		}
		if err := extractEntry(f, dest); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(f *zip.File, dest string) error {
	r, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer r.Close()

	w, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer w.Close()

	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return nil
}
