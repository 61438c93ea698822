package github_release

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v74/github"
	"github.com/specialistvlad/brewgridgo/internal/ctxlog"
	"github.com/specialistvlad/brewgridgo/internal/fetch"
	"github.com/specialistvlad/brewgridgo/internal/formula"
	"github.com/specialistvlad/brewgridgo/internal/registry"
	"golang.org/x/oauth2"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Token authenticates against private repositories. Empty means anonymous.
	Token string
	// BaseURL overrides the GitHub API endpoint, mainly for tests.
	BaseURL string
}

// Downloader resolves release download URLs through the GitHub API so that
// assets of private repositories can be fetched with a token.
type Downloader struct {
	client *github.Client
	// follow fetches the storage URL GitHub redirects asset downloads to. It
	// carries no credentials.
	follow *http.Client
}

// NewDownloader creates a release downloader.
func NewDownloader(token, baseURL string) (*Downloader, error) {
	var tc *http.Client
	if token = strings.TrimSpace(token); token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		tc = oauth2.NewClient(context.Background(), ts)
	}
	client := github.NewClient(tc)
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL: %w", err)
		}
		client.BaseURL = u
	}
	return &Downloader{client: client, follow: &http.Client{}}, nil
}

// releaseRef identifies one asset of one release.
type releaseRef struct {
	Owner, Repo, Tag, Asset string
}

// parseReleaseURL accepts
// https://github.com/<owner>/<repo>/releases/download/<tag>/<asset>.
func parseReleaseURL(raw string) (releaseRef, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return releaseRef{}, err
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 6 || parts[2] != "releases" || parts[3] != "download" {
		return releaseRef{}, fmt.Errorf("not a GitHub release download URL: %s", raw)
	}
	return releaseRef{Owner: parts[0], Repo: parts[1], Tag: parts[4], Asset: parts[5]}, nil
}

// Download looks the asset up by release tag and name and streams it into w.
func (d *Downloader) Download(ctx context.Context, src formula.Source, w io.Writer) error {
	logger := ctxlog.FromContext(ctx)

	ref, err := parseReleaseURL(src.URL)
	if err != nil {
		return &fetch.StatusError{URL: src.URL, StatusCode: http.StatusBadRequest}
	}

	release, _, err := d.client.Repositories.GetReleaseByTag(ctx, ref.Owner, ref.Repo, ref.Tag)
	if err != nil {
		return d.classify(src.URL, err)
	}

	var assetID int64
	for _, asset := range release.Assets {
		if asset.GetName() == ref.Asset {
			assetID = asset.GetID()
			break
		}
	}
	if assetID == 0 {
		logger.Warn("Release has no matching asset.", "tag", ref.Tag, "asset", ref.Asset)
		return &fetch.StatusError{URL: src.URL, StatusCode: http.StatusNotFound}
	}

	rc, _, err := d.client.Repositories.DownloadReleaseAsset(ctx, ref.Owner, ref.Repo, assetID, d.follow)
	if err != nil {
		return d.classify(src.URL, err)
	}
	defer rc.Close()

	n, err := io.Copy(w, rc)
	if err != nil {
		return err
	}
	logger.Debug("Release asset downloaded.", "asset", ref.Asset, "bytes", n)
	return nil
}

// classify maps GitHub API failures onto fetch status errors so that client
// errors are not retried.
func (d *Downloader) classify(rawURL string, err error) error {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return fmt.Errorf("%w: %s", &fetch.StatusError{URL: rawURL, StatusCode: ghErr.Response.StatusCode}, ghErr.Message)
	}
	return err
}

// Register registers the private release strategy with the registry.
func (m *Module) Register(r *registry.Registry) {
	d, err := NewDownloader(m.Token, m.BaseURL)
	if err != nil {
		panic(err)
	}
	r.RegisterDownloader(formula.StrategyGitHubRelease, d)
}
