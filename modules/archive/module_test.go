package archive

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/specialistvlad/brewgridgo/internal/fetch"
	"github.com/specialistvlad/brewgridgo/internal/formula"
	"github.com/specialistvlad/brewgridgo/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.tar.gz":
			assert.Equal(t, "brewgridgo", r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte("archive bytes"))
		case "/busy.tar.gz":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	reg := registry.New(&Module{})
	d, ok := reg.Downloader(formula.StrategyArchive)
	require.True(t, ok)

	testCases := []struct {
		name      string
		path      string
		want      string
		status    int
		temporary bool
	}{
		{name: "success", path: "/ok.tar.gz", want: "archive bytes"},
		{name: "not found", path: "/missing.tar.gz", status: http.StatusNotFound},
		{name: "unavailable", path: "/busy.tar.gz", status: http.StatusServiceUnavailable, temporary: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := d.Download(context.Background(), formula.Source{URL: srv.URL + tc.path}, &buf)
			if tc.status == 0 {
				require.NoError(t, err)
				assert.Equal(t, tc.want, buf.String())
				return
			}
			var status *fetch.StatusError
			require.ErrorAs(t, err, &status)
			assert.Equal(t, tc.status, status.StatusCode)
			assert.Equal(t, tc.temporary, status.Temporary())
			assert.Zero(t, buf.Len(), "error bodies must not reach the writer")
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	assert.Panics(t, func() {
		registry.New(&Module{}, &Module{})
	})
}
