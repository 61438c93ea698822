package integration_tests

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/specialistvlad/brewgridgo/internal/app"
	"github.com/specialistvlad/brewgridgo/internal/hcl"
	"github.com/specialistvlad/brewgridgo/internal/node"
	"github.com/specialistvlad/brewgridgo/internal/testutil"
	"github.com/stretchr/testify/require"
)

// grid serves one empty source tarball per formula and holds the formula
// definitions under test.
type grid struct {
	url     string
	archive []byte
	prefix  string
	files   map[string]string
}

func newGrid(t *testing.T) *grid {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "src/", Typeflag: tar.TypeDir, Mode: 0o755}))
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "src/README", Typeflag: tar.TypeReg, Mode: 0o644, Size: 3}))
	_, err := tw.Write([]byte("hi\n"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	g := &grid{archive: buf.Bytes(), prefix: t.TempDir(), files: map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(g.archive)
	}))
	t.Cleanup(srv.Close)
	g.url = srv.URL
	return g
}

// add defines a formula whose only install stage runs script with sh.
func (g *grid) add(name, script string, deps ...string) {
	sum := sha256.Sum256(g.archive)
	var b strings.Builder
	b.WriteString(`formula "` + name + `" {
  version = "1.0"

  source {
    url    = "` + g.url + `/` + name + `-${version}.tar.gz"
    sha256 = "` + hex.EncodeToString(sum[:]) + `"
  }
`)
	for _, d := range deps {
		b.WriteString(`
  depends_on "` + d + `" {}
`)
	}
	b.WriteString(`
  install {
    stage "run" {
      args = ["/bin/sh", "-c", <<-EOT
        ` + script + `
      EOT
      ]
    }
  }
}
`)
	g.files[name+".hcl"] = b.String()
}

func (g *grid) install(t *testing.T, workers int, names ...string) (map[string]node.Status, error) {
	t.Helper()
	cfg, err := app.NewConfig(app.Config{
		FormulaPath: testutil.WriteFiles(t, g.files),
		Prefix:      g.prefix,
		LogFormat:   "text",
		LogLevel:    "debug",
		Workers:     workers,
	})
	require.NoError(t, err)

	logs := &testutil.SafeBuffer{}
	testutil.DumpLogs(t, logs)
	a, err := app.NewApp(&strings.Builder{}, logs, cfg, hcl.NewLoader(), hcl.NewEvaluator())
	require.NoError(t, err)

	outcomes, err := a.Install(context.Background(), app.Request{Names: names})
	statuses := make(map[string]node.Status, len(outcomes))
	for _, o := range outcomes {
		statuses[o.Name] = o.Status
	}
	return statuses, err
}
