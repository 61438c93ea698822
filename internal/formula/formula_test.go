package formula_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/specialistvlad/brewgridgo/internal/config"
	"github.com/specialistvlad/brewgridgo/internal/formula"
	"github.com/specialistvlad/brewgridgo/internal/hcl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sumA = strings.Repeat("a", 64)
	sumB = strings.Repeat("b", 64)
	sumC = strings.Repeat("c", 64)
)

func validDef() *config.FormulaDefinition {
	return &config.FormulaDefinition{
		Name:    "zstd",
		Version: "1.5.6",
		Sources: []*config.SourceDefinition{
			{URL: "https://example.com/zstd.tar.gz", SHA256: sumA},
		},
	}
}

func TestNew_Valid(t *testing.T) {
	f, err := formula.New(validDef())
	require.NoError(t, err)
	assert.Equal(t, "zstd", f.Name)
	require.Len(t, f.Sources, 1)
	assert.Equal(t, formula.StrategyArchive, f.Sources[0].Source.Strategy)
}

func TestNew_Malformed(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(d *config.FormulaDefinition)
		problem string
	}{
		{"missing version", func(d *config.FormulaDefinition) { d.Version = "" }, "version is required"},
		{"missing name", func(d *config.FormulaDefinition) { d.Name = "" }, "name is required"},
		{"missing checksum", func(d *config.FormulaDefinition) { d.Sources[0].SHA256 = "" }, "sha256 checksum is required"},
		{"malformed checksum", func(d *config.FormulaDefinition) { d.Sources[0].SHA256 = "abc" }, "malformed sha256"},
		{"no source", func(d *config.FormulaDefinition) { d.Sources = nil }, "at least one source"},
		{"conflicting platform blocks", func(d *config.FormulaDefinition) {
			d.Sources = append(d.Sources,
				&config.SourceDefinition{OS: "darwin", URL: "u1", SHA256: sumB},
				&config.SourceDefinition{OS: "darwin", URL: "u2", SHA256: sumC},
			)
		}, "conflicting source blocks for platform darwin/*"},
		{"unknown strategy", func(d *config.FormulaDefinition) { d.Sources[0].Strategy = "ftp" }, `unknown strategy "ftp"`},
		{"git source without head", func(d *config.FormulaDefinition) { d.Sources[0].Strategy = "git" }, "only valid for head"},
		{"duplicate option", func(d *config.FormulaDefinition) {
			d.Options = []*config.OptionDefinition{{Name: "with-cassert"}, {Name: "cassert"}}
		}, `option "cassert" declared more than once`},
		{"duplicate dependency", func(d *config.FormulaDefinition) {
			d.Dependencies = []*config.DependencyDefinition{{Name: "lz4"}, {Name: "lz4", Phase: "build"}}
		}, `dependency "lz4" declared more than once`},
		{"unknown phase", func(d *config.FormulaDefinition) {
			d.Dependencies = []*config.DependencyDefinition{{Name: "lz4", Phase: "test"}}
		}, `unknown phase "test"`},
		{"self dependency", func(d *config.FormulaDefinition) {
			d.Dependencies = []*config.DependencyDefinition{{Name: "zstd"}}
		}, "cannot depend on itself"},
		{"dangling deprecated option", func(d *config.FormulaDefinition) {
			d.DeprecatedOptions = []*config.DeprecatedOptionDefinition{{Name: "enable-x", ReplacedBy: "with-x"}}
		}, "replaced by undeclared option"},
		{"stage without command", func(d *config.FormulaDefinition) {
			d.Install = &config.InstallDefinition{Stages: []*config.StageDefinition{{Name: "make"}}}
		}, `stage "make": exactly one of command or args`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			def := validDef()
			tc.mutate(def)

			_, err := formula.New(def)
			require.Error(t, err)

			var malformed *formula.MalformedSpecError
			require.True(t, errors.As(err, &malformed), "expected MalformedSpecError, got %T", err)
			assert.Contains(t, malformed.Error(), tc.problem)
		})
	}
}

func TestNew_ReportsAllProblems(t *testing.T) {
	def := validDef()
	def.Version = ""
	def.Sources[0].SHA256 = ""

	_, err := formula.New(def)
	var malformed *formula.MalformedSpecError
	require.ErrorAs(t, err, &malformed)
	assert.Len(t, malformed.Problems, 2)
}

func TestSelectSource(t *testing.T) {
	def := validDef()
	def.Sources = []*config.SourceDefinition{
		{URL: "generic", SHA256: sumA},
		{Arch: "arm64", URL: "arm", SHA256: sumB},
		{OS: "darwin", URL: "mac", SHA256: sumC},
		{OS: "darwin", Arch: "arm64", URL: "mac-arm", SHA256: sumA, Strategy: "github_private_release"},
	}
	def.Head = &config.HeadDefinition{URL: "https://git.example.com/zstd.git", Branch: "dev"}
	f, err := formula.New(def)
	require.NoError(t, err)

	testCases := []struct {
		platform formula.Platform
		wantURL  string
	}{
		{formula.Platform{OS: "darwin", Arch: "arm64"}, "mac-arm"},
		{formula.Platform{OS: "darwin", Arch: "amd64"}, "mac"},
		{formula.Platform{OS: "linux", Arch: "arm64"}, "arm"},
		{formula.Platform{OS: "linux", Arch: "amd64"}, "generic"},
	}
	for _, tc := range testCases {
		t.Run(tc.platform.String(), func(t *testing.T) {
			src, err := f.SelectSource(tc.platform, false)
			require.NoError(t, err)
			assert.Equal(t, tc.wantURL, src.URL)
		})
	}

	t.Run("private release strategy carried", func(t *testing.T) {
		src, err := f.SelectSource(formula.Platform{OS: "darwin", Arch: "arm64"}, false)
		require.NoError(t, err)
		assert.Equal(t, formula.StrategyGitHubRelease, src.Strategy)
	})

	t.Run("head", func(t *testing.T) {
		src, err := f.SelectSource(formula.Platform{OS: "linux", Arch: "amd64"}, true)
		require.NoError(t, err)
		assert.True(t, src.Head)
		assert.Equal(t, formula.StrategyGit, src.Strategy)
		assert.Equal(t, "dev", src.Branch)
		assert.Empty(t, src.SHA256)
	})
}

func TestSelectSource_NoMatch(t *testing.T) {
	def := validDef()
	def.Sources[0].OS = "darwin"
	f, err := formula.New(def)
	require.NoError(t, err)

	_, err = f.SelectSource(formula.Platform{OS: "linux", Arch: "amd64"}, false)
	var noSource *formula.NoSourceForPlatformError
	require.ErrorAs(t, err, &noSource)
	assert.Equal(t, "zstd", noSource.Formula)

	_, err = f.SelectSource(formula.Platform{OS: "darwin", Arch: "amd64"}, true)
	require.ErrorAs(t, err, &noSource)
	assert.True(t, noSource.Head)
}

func TestResolveOptions(t *testing.T) {
	def := validDef()
	def.Options = []*config.OptionDefinition{
		{Name: "with-cassert", Description: "Enable assertion checks"},
		{Name: "without-docs"},
	}
	def.DeprecatedOptions = []*config.DeprecatedOptionDefinition{{Name: "enable-cassert", ReplacedBy: "with-cassert"}}
	def.Dependencies = []*config.DependencyDefinition{{Name: "llvm", Phase: "optional"}}
	f, err := formula.New(def)
	require.NoError(t, err)

	t.Run("defaults", func(t *testing.T) {
		opts, err := f.ResolveOptions(nil, false)
		require.NoError(t, err)
		assert.False(t, opts.With("cassert"))
		assert.True(t, opts.With("docs"), "without- options default on")
		assert.False(t, opts.With("llvm"), "optional dependencies add an implicit option")
		assert.Equal(t, []string{"docs"}, opts.EnabledNames())
	})

	t.Run("flags", func(t *testing.T) {
		opts, err := f.ResolveOptions([]string{"--with-cassert", "without-docs", "with-llvm"}, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"cassert", "llvm"}, opts.EnabledNames())
		assert.True(t, opts.Head)
	})

	t.Run("deprecated alias", func(t *testing.T) {
		opts, err := f.ResolveOptions([]string{"enable-cassert"}, false)
		require.NoError(t, err)
		assert.True(t, opts.With("cassert"))
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := f.ResolveOptions([]string{"with-python"}, false)
		var unknown *formula.UnknownOptionError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "with-python", unknown.Option)
	})

	t.Run("defaults are not mutated", func(t *testing.T) {
		_, err := f.ResolveOptions([]string{"with-cassert"}, false)
		require.NoError(t, err)
		assert.False(t, f.DefaultOptions().With("cassert"))
	})
}

func TestMajorVersion(t *testing.T) {
	testCases := map[string]string{
		"17beta2": "17",
		"16.3":    "16",
		"1.5.6":   "1",
		"2024a":   "2024",
		"r123":    "",
	}
	for version, want := range testCases {
		t.Run(version, func(t *testing.T) {
			f := &formula.Formula{Version: version}
			assert.Equal(t, want, f.MajorVersion())
		})
	}
}

func TestExampleFormula(t *testing.T) {
	model, err := hcl.NewLoader().Load(context.Background(), "../../formulas")
	require.NoError(t, err)
	formulas, err := formula.FromModel(model)
	require.NoError(t, err)

	pg := formulas["postgresql@17"]
	require.NotNil(t, pg)
	assert.Equal(t, "17", pg.MajorVersion())

	src, err := pg.SelectSource(formula.Platform{OS: "darwin", Arch: "arm64"}, false)
	require.NoError(t, err)
	assert.Equal(t, formula.StrategyGitHubRelease, src.Strategy)
	assert.Contains(t, src.URL, "releases/download/v17beta2/postgresql-17beta2.tar.gz")

	src, err = pg.SelectSource(formula.Platform{OS: "linux", Arch: "amd64"}, false)
	require.NoError(t, err)
	assert.Equal(t, formula.StrategyArchive, src.Strategy)

	build := pg.DependenciesIn(formula.PhaseBuild)
	require.Len(t, build, 2)
	assert.Equal(t, "docbook-xsl", build[0].Name)

	opts, err := pg.ResolveOptions([]string{"enable-cassert"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"cassert"}, opts.EnabledNames())
	_, hasLLVM := pg.Option("llvm")
	assert.True(t, hasLLVM)
}
