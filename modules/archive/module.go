package archive

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/specialistvlad/brewgridgo/internal/ctxlog"
	"github.com/specialistvlad/brewgridgo/internal/fetch"
	"github.com/specialistvlad/brewgridgo/internal/formula"
	"github.com/specialistvlad/brewgridgo/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Client overrides the HTTP client, mainly for tests.
	Client *resty.Client
}

// Downloader fetches plain archive URLs over HTTP(S).
type Downloader struct {
	client *resty.Client
}

// NewClient returns the resty client used for archive downloads. Retries are
// left to the fetcher.
func NewClient() *resty.Client {
	return resty.New().
		SetTransport(&http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}).
		SetHeader("User-Agent", "brewgridgo").
		SetRetryCount(0)
}

// Download streams the body of src.URL into w.
func (d *Downloader) Download(ctx context.Context, src formula.Source, w io.Writer) error {
	logger := ctxlog.FromContext(ctx)

	resp, err := d.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(src.URL)
	if err != nil {
		return err
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() >= http.StatusBadRequest {
		return &fetch.StatusError{URL: src.URL, StatusCode: resp.StatusCode()}
	}

	n, err := io.Copy(w, body)
	if err != nil {
		return err
	}
	logger.Debug("Archive downloaded.", "bytes", n)
	return nil
}

// Register registers the archive strategy with the registry.
func (m *Module) Register(r *registry.Registry) {
	client := m.Client
	if client == nil {
		client = NewClient()
	}
	r.RegisterDownloader(formula.StrategyArchive, &Downloader{client: client})
}
