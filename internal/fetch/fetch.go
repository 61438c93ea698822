package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/specialistvlad/brewgridgo/internal/ctxlog"
	"github.com/specialistvlad/brewgridgo/internal/formula"
	"github.com/specialistvlad/brewgridgo/internal/registry"
)

// Config controls the cache location and retry budget.
type Config struct {
	CacheDir   string
	MaxRetries uint64
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Artifact is a local, verified copy of a source.
type Artifact struct {
	Path   string
	SHA256 string
	// Tree is set for VCS checkouts, which are directories and carry no checksum.
	Tree   bool
	Cached bool
	Source formula.Source
}

// Fetcher downloads and verifies sources.
type Fetcher struct {
	cfg      Config
	registry *registry.Registry
}

// New creates a Fetcher. Zero delays fall back to 500ms base and 30s cap.
func New(cfg Config, reg *registry.Registry) *Fetcher {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	return &Fetcher{cfg: cfg, registry: reg}
}

// archiveExtensions are matched against the URL path, longest first.
var archiveExtensions = []string{".tar.gz", ".tar.bz2", ".tar.xz", ".tgz", ".tbz2", ".txz", ".tar"}

func archiveExt(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	base := path.Base(p)
	for _, ext := range archiveExtensions {
		if strings.HasSuffix(base, ext) {
			return ext
		}
	}
	return ""
}

// CachePath returns where the artifact for f and src is stored.
func (f *Fetcher) CachePath(fm *formula.Formula, src formula.Source) string {
	if src.Head {
		return filepath.Join(f.cfg.CacheDir, fm.Name+"--head")
	}
	return filepath.Join(f.cfg.CacheDir, fm.Name+"--"+fm.Version+archiveExt(src.URL))
}

// Fetch produces a verified local artifact for src.
func (f *Fetcher) Fetch(ctx context.Context, fm *formula.Formula, src formula.Source) (*Artifact, error) {
	ctx, logger := ctxlog.With(ctx, "formula", fm.Name, "url", src.URL)

	if err := os.MkdirAll(f.cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	dest := f.CachePath(fm, src)

	if tree, ok := f.registry.Tree(src.Strategy); ok {
		return f.fetchTree(ctx, tree, src, dest)
	}
	d, ok := f.registry.Downloader(src.Strategy)
	if !ok {
		return nil, &FetchError{URL: src.URL, Err: fmt.Errorf("no fetch strategy registered for %q", src.Strategy)}
	}

	if _, err := os.Stat(dest); err == nil {
		sum, err := fileSHA256(dest)
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(sum, src.SHA256) {
			logger.Debug("Using cached artifact.", "path", dest)
			return &Artifact{Path: dest, SHA256: sum, Cached: true, Source: src}, nil
		}
		logger.Warn("Cached artifact has the wrong checksum, downloading again.", "path", dest, "sha256", sum)
		if err := os.Remove(dest); err != nil {
			return nil, fmt.Errorf("removing stale artifact: %w", err)
		}
	}

	attempts := 0
	err := retry.Do(ctx, f.backoff(), func(ctx context.Context) error {
		attempts++
		logger.Debug("Downloading artifact.", "attempt", attempts)
		err := f.download(ctx, d, src, dest)
		if err != nil && retryable(err) {
			logger.Warn("Download failed, will retry.", "attempt", attempts, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		var integrity *IntegrityError
		if errors.As(err, &integrity) {
			return nil, integrity
		}
		return nil, &FetchError{URL: src.URL, Attempts: attempts, Err: err}
	}

	logger.Info("Fetched artifact.", "path", dest, "attempts", attempts)
	return &Artifact{Path: dest, SHA256: strings.ToLower(src.SHA256), Source: src}, nil
}

func (f *Fetcher) backoff() retry.Backoff {
	b := retry.NewExponential(f.cfg.BaseDelay)
	b = retry.WithCappedDuration(f.cfg.MaxDelay, b)
	return retry.WithMaxRetries(f.cfg.MaxRetries, b)
}

// download streams one attempt into dest+".incomplete" and renames it into
// place only when the checksum matches.
func (f *Fetcher) download(ctx context.Context, d registry.Downloader, src formula.Source, dest string) error {
	partial := dest + ".incomplete"
	file, err := os.OpenFile(partial, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", partial, err)
	}

	h := sha256.New()
	err = d.Download(ctx, src, io.MultiWriter(file, h))
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(partial)
		return err
	}

	actual := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(actual, src.SHA256) {
		os.Remove(partial)
		return &IntegrityError{URL: src.URL, Expected: src.SHA256, Actual: actual}
	}
	if err := os.Rename(partial, dest); err != nil {
		os.Remove(partial)
		return fmt.Errorf("moving artifact into place: %w", err)
	}
	return nil
}

// fetchTree checks a VCS source out into a fresh directory.
func (f *Fetcher) fetchTree(ctx context.Context, tree registry.TreeFetcher, src formula.Source, dest string) (*Artifact, error) {
	logger := ctxlog.FromContext(ctx)
	attempts := 0
	err := retry.Do(ctx, f.backoff(), func(ctx context.Context) error {
		attempts++
		if err := os.RemoveAll(dest); err != nil {
			return err
		}
		err := tree.Checkout(ctx, src, dest)
		if err != nil && retryable(err) {
			logger.Warn("Checkout failed, will retry.", "attempt", attempts, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		os.RemoveAll(dest)
		return nil, &FetchError{URL: src.URL, Attempts: attempts, Err: err}
	}
	logger.Info("Checked out source tree.", "path", dest, "branch", src.Branch)
	return &Artifact{Path: dest, Tree: true, Source: src}, nil
}

// retryable classifies an attempt's error. Integrity failures, client
// errors and cancellation are permanent; anything else is assumed to be a
// transient network failure.
func retryable(err error) bool {
	var integrity *IntegrityError
	if errors.As(err, &integrity) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Temporary()
	}
	return true
}

func fileSHA256(p string) (string, error) {
	file, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer file.Close()
	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("hashing %s: %w", p, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
