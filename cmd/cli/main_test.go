package main

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/brewgridgo/internal/cli"
	"github.com/specialistvlad/brewgridgo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const formulas = `
formula "zlib" {
  version = "1.3"

  source {
    url    = "https://zlib.net/zlib-${version}.tar.gz"
    sha256 = "9a93b2b7dfdac77ceba5a558a580e74667dd6fede4585b91eefb60f03b72df23"
  }

  caveats = "zlib is keg-only."
}

formula "minizip" {
  version = "1.3"

  source {
    url    = "https://zlib.net/zlib-${version}.tar.gz"
    sha256 = "9a93b2b7dfdac77ceba5a558a580e74667dd6fede4585b91eefb60f03b72df23"
  }

  option "with-bzip2" {
    description = "Support bzip2 archives"
  }

  deprecated_option "enable-bzip2" {
    replaced_by = "with-bzip2"
  }

  depends_on "zlib" {}

  service {
    run = ["${opt_bin}/miniunzip", "-h"]
  }
}
`

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("BREWGRID_CONFIG", "")
	dir := testutil.WriteFiles(t, map[string]string{"zlib.hcl": formulas})
	prefix := t.TempDir()
	base := []string{"--formula-path", dir, "--prefix", prefix}
	out := &bytes.Buffer{}
	logs := &testutil.SafeBuffer{}
	err := run(context.Background(), out, logs, append(args, base...))
	return out.String(), err
}

func TestRun_Help(t *testing.T) {
	out := &bytes.Buffer{}
	err := run(context.Background(), out, &bytes.Buffer{}, []string{"--help"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Usage:")
	assert.Contains(t, out.String(), "install")
}

func TestRun_ParseError(t *testing.T) {
	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"caveats", "--this-is-not-a-valid-flag"})
	require.Error(t, err)
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestRun_Plan(t *testing.T) {
	t.Setenv("BREWGRID_CONFIG", "")
	dir := testutil.WriteFiles(t, map[string]string{"zlib.hcl": formulas})
	out := &bytes.Buffer{}
	err := run(context.Background(), out, &bytes.Buffer{}, []string{
		"plan", "minizip", "--enable-bzip2",
		"--formula-path", dir, "--prefix", t.TempDir(),
	})
	require.NoError(t, err)
	assert.Equal(t, "1. zlib 1.3\n2. minizip 1.3 [with-bzip2] <- zlib (run)\n", out.String())
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
	}{
		{name: "missing settings file", args: []string{"plan", "zlib", "--config", "/nonexistent/none.toml"}, wantCode: 2, wantErr: "none.toml"},
		{name: "test takes one formula", args: []string{"test"}, wantCode: 2, wantErr: "exactly one formula"},
		{name: "invalid service format", args: []string{"service", "minizip", "--format", "upstart"}, wantCode: 2, wantErr: "invalid format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := runCLI(t, tc.args...)
			require.Error(t, err)
			var exitErr *cli.ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, tc.wantCode, exitErr.Code)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestRun_CaveatsAndService(t *testing.T) {
	t.Setenv("BREWGRID_CONFIG", "")
	dir := testutil.WriteFiles(t, map[string]string{"zlib.hcl": formulas})
	prefix := t.TempDir()
	common := []string{"--formula-path", dir, "--prefix", prefix}

	out := &bytes.Buffer{}
	require.NoError(t, run(context.Background(), out, &bytes.Buffer{}, append([]string{"caveats", "zlib"}, common...)))
	assert.Contains(t, out.String(), "Caveats for zlib")
	assert.Contains(t, out.String(), "zlib is keg-only.")

	out.Reset()
	require.NoError(t, run(context.Background(), out, &bytes.Buffer{}, append([]string{"service", "minizip", "--format", "systemd"}, common...)))
	assert.Contains(t, out.String(), "ExecStart="+filepath.Join(prefix, "opt", "minizip", "bin", "miniunzip")+" -h")
}

func TestRun_UnknownOption(t *testing.T) {
	_, err := runCLI(t, "plan", "minizip", "--with-lzma")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "with-lzma")
}

func TestRun_InstallFailureShowsStageOutput(t *testing.T) {
	t.Setenv("BREWGRID_CONFIG", "")

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "zlib-1.3/", Typeflag: tar.TypeDir, Mode: 0o755}))
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	archive := buf.Bytes()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	t.Cleanup(srv.Close)
	sum := sha256.Sum256(archive)

	dir := testutil.WriteFiles(t, map[string]string{"zlib.hcl": `
formula "zlib" {
  version = "1.3"

  source {
    url    = "` + srv.URL + `/zlib-${version}.tar.gz"
    sha256 = "` + hex.EncodeToString(sum[:]) + `"
  }

  install {
    stage "headers" {
      args = ["/bin/sh", "-c", "echo 'zlib.h: No such file or directory' >&2; exit 3"]
    }
  }
}
`})

	out := &bytes.Buffer{}
	errOut := &testutil.SafeBuffer{}
	err := run(context.Background(), out, errOut, []string{
		"install", "zlib", "--log-level", "error",
		"--formula-path", dir, "--prefix", t.TempDir(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage 'headers' with exit code 3")
	assert.Contains(t, out.String(), "zlib: build-failed")
	assert.Contains(t, errOut.String(), "Output of zlib")
	assert.Contains(t, errOut.String(), "zlib.h: No such file or directory")
}
