package integration_tests

import (
	"strings"
	"testing"

	"github.com/specialistvlad/brewgridgo/internal/app"
	"github.com/specialistvlad/brewgridgo/internal/hcl"
	"github.com/specialistvlad/brewgridgo/internal/testutil"
	"github.com/stretchr/testify/require"
)

const checksum = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

// formulaHCL renders a minimal formula with a single archive source.
func formulaHCL(name string, deps ...string) string {
	var b strings.Builder
	b.WriteString(`formula "` + name + `" {
  version = "1.0"

  source {
    url    = "https://example.invalid/` + name + `-${version}.tar.gz"
    sha256 = "` + checksum + `"
  }
`)
	for _, d := range deps {
		b.WriteString(`
  depends_on "` + d + `" {}
`)
	}
	b.WriteString("}\n")
	return b.String()
}

func newApp(t *testing.T, files map[string]string, opts ...app.Option) (*app.App, error) {
	t.Helper()
	cfg, err := app.NewConfig(app.Config{
		FormulaPath: testutil.WriteFiles(t, files),
		Prefix:      t.TempDir(),
		LogFormat:   "text",
		LogLevel:    "debug",
		Workers:     2,
	})
	require.NoError(t, err)

	logs := &testutil.SafeBuffer{}
	testutil.DumpLogs(t, logs)
	return app.NewApp(&strings.Builder{}, logs, cfg, hcl.NewLoader(), hcl.NewEvaluator(), opts...)
}
