package build_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/specialistvlad/brewgridgo/internal/build"
	"github.com/specialistvlad/brewgridgo/internal/fetch"
	"github.com/specialistvlad/brewgridgo/internal/formula"
	"github.com/specialistvlad/brewgridgo/internal/hcl"
	"github.com/specialistvlad/brewgridgo/internal/layout"
	"github.com/specialistvlad/brewgridgo/internal/receipt"
	"github.com/specialistvlad/brewgridgo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoHCL = `
formula "demo" {
  version = "1.2.0"

  head {
    url = "https://example.invalid/demo.git"
  }

  option "with-broken" {
    description = "Adds a stage that fails"
  }

  depends_on "zstd" {}

  install {
    env = {
      GREETING = "hello from ${name} ${version}"
    }

    stage "compile" {
      args = ["/bin/sh", "-c", "mkdir -p '${destdir}${bin}' && printf '%s' \"$GREETING\" > '${destdir}${bin}/demo'"]
    }

    stage "broken" {
      when    = build.with.broken
      command = "/bin/sh -c 'exit 9'"
    }

    stage "flags" {
      args = ["/bin/sh", "-c", "printf '%s' \"$CPPFLAGS\" > '${destdir}${prefix}/cppflags'"]
    }
  }
}
`

func newExecutor(t *testing.T) (*build.Executor, layout.Layout) {
	t.Helper()
	l := layout.New(t.TempDir())
	return &build.Executor{
		Layout:    l,
		Evaluator: hcl.NewEvaluator(),
		Base:      map[string]string{"PATH": "/usr/bin:/bin"},
		Now:       func() time.Time { return time.Date(2024, 6, 27, 0, 0, 0, 0, time.UTC) },
	}, l
}

func assertStagingEmpty(t *testing.T, l layout.Layout) {
	t.Helper()
	entries, err := os.ReadDir(l.Staging())
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	require.NoError(t, err)
	assert.Empty(t, entries, "staging directories must be discarded")
}

func TestBuild_Success(t *testing.T) {
	f := testutil.LoadFormula(t, "demo", demoHCL)
	e, l := newExecutor(t)

	res, err := e.Build(context.Background(), build.Job{
		Formula: f,
		Options: f.DefaultOptions(),
		Deps:    map[string]string{"zstd": "1.5.6"},
	})
	require.NoError(t, err)

	keg := l.Keg("demo", "1.2.0")
	assert.Equal(t, keg, res.Prefix)

	out, err := os.ReadFile(filepath.Join(keg, "bin", "demo"))
	require.NoError(t, err)
	assert.Equal(t, "hello from demo 1.2.0", string(out))

	flags, err := os.ReadFile(filepath.Join(keg, "cppflags"))
	require.NoError(t, err)
	assert.Equal(t, "-I"+filepath.Join(l.Opt("zstd"), "include"), string(flags))

	target, err := os.Readlink(l.Opt("demo"))
	require.NoError(t, err)
	assert.Equal(t, keg, target)

	r, err := receipt.Read(keg)
	require.NoError(t, err)
	assert.Equal(t, res.Receipt.BuildID, r.BuildID)
	assert.Equal(t, map[string]string{"zstd": "1.5.6"}, r.Dependencies)
	assert.Equal(t, formula.CurrentPlatform().String(), r.Platform)

	assertStagingEmpty(t, l)
}

func TestBuild_StageFailureLeavesTreeUntouched(t *testing.T) {
	f := testutil.LoadFormula(t, "demo", demoHCL)
	e, l := newExecutor(t)

	opts, err := f.ResolveOptions([]string{"--with-broken"}, false)
	require.NoError(t, err)

	_, err = e.Build(context.Background(), build.Job{Formula: f, Options: opts})
	var stageErr *build.BuildStageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "demo", stageErr.Formula)
	assert.Equal(t, "broken", stageErr.Stage)
	assert.Equal(t, 9, stageErr.ExitCode)

	assert.NoDirExists(t, l.Keg("demo", "1.2.0"))
	_, err = os.Lstat(l.Opt("demo"))
	assert.True(t, os.IsNotExist(err))
	assertStagingEmpty(t, l)
}

func TestBuild_CapturesOutput(t *testing.T) {
	f := testutil.LoadFormula(t, "noisy", `
formula "noisy" {
  version = "1"
  head { url = "https://example.invalid/noisy.git" }
  install {
    stage "make" {
      args = ["/bin/sh", "-c", "echo compiling; echo 'error: missing header' >&2; exit 2"]
    }
  }
}
`)
	e, _ := newExecutor(t)

	_, err := e.Build(context.Background(), build.Job{Formula: f, Options: f.DefaultOptions()})
	var stageErr *build.BuildStageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, 2, stageErr.ExitCode)
	assert.Contains(t, stageErr.Output, "compiling")
	assert.Contains(t, stageErr.Output, "error: missing header")
}

func TestBuild_CancellationKillsStage(t *testing.T) {
	f := testutil.LoadFormula(t, "slow", `
formula "slow" {
  version = "1"
  head { url = "https://example.invalid/slow.git" }
  install {
    stage "wait" {
      args = ["/bin/sh", "-c", "sleep 30 & wait"]
    }
  }
}
`)
	e, l := newExecutor(t)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := e.Build(ctx, build.Job{Formula: f, Options: f.DefaultOptions()})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.NoDirExists(t, l.Keg("slow", "1"))
	assertStagingEmpty(t, l)
}

func TestBuild_RebuildSupersedesKeg(t *testing.T) {
	f := testutil.LoadFormula(t, "demo", demoHCL)
	e, l := newExecutor(t)
	job := build.Job{Formula: f, Options: f.DefaultOptions(), Deps: map[string]string{"zstd": "1.5.6"}}

	first, err := e.Build(context.Background(), job)
	require.NoError(t, err)

	job.Deps = map[string]string{"zstd": "1.5.7"}
	second, err := e.Build(context.Background(), job)
	require.NoError(t, err)
	assert.NotEqual(t, first.Receipt.BuildID, second.Receipt.BuildID)

	r, err := receipt.Read(l.Keg("demo", "1.2.0"))
	require.NoError(t, err)
	assert.Equal(t, second.Receipt.BuildID, r.BuildID)
	assert.Equal(t, "1.5.7", r.Dependencies["zstd"])

	entries, err := os.ReadDir(filepath.Join(l.Cellar(), "demo"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "the previous keg must be removed")
}

func TestBuild_FromCheckedOutTree(t *testing.T) {
	f := testutil.LoadFormula(t, "tool", `
formula "tool" {
  version = "0.1"
  head { url = "https://example.invalid/tool.git" }
  install {
    stage "install" {
      command = "/bin/sh -c 'mkdir -p ${destdir}${pkgshare} && cp README ${destdir}${pkgshare}/README'"
    }
  }
}
`)
	e, l := newExecutor(t)

	// A checked-out tree is copied into the work directory.
	tree := testutil.WriteFiles(t, map[string]string{"README": "read me"})
	_, err := e.Build(context.Background(), build.Job{
		Formula:  f,
		Options:  f.DefaultOptions(),
		Artifact: &fetch.Artifact{Path: tree, Tree: true, Source: *f.Head},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(l.Keg("tool", "0.1"), "share", "tool", "README"))
	require.NoError(t, err)
	assert.Equal(t, "read me", string(data))
	assert.FileExists(t, filepath.Join(tree, "README"), "the fetched tree is not consumed")
}

func TestBuild_PathsBakedDuringBuildPointAtTheKeg(t *testing.T) {
	f := testutil.LoadFormula(t, "baked", `
formula "baked" {
  version = "2.0"
  head { url = "https://example.invalid/baked.git" }
  install {
    stage "pkgconfig" {
      args = ["/bin/sh", "-c", "mkdir -p '${destdir}${lib}/pkgconfig' && printf 'prefix=%s\nlibdir=%s\n' '${prefix}' '${lib}' > '${destdir}${lib}/pkgconfig/baked.pc'"]
    }
    stage "destdir" {
      args = ["/bin/sh", "-c", "printf '%s' \"$DESTDIR\" > \"$DESTDIR\"'${prefix}/destdir'"]
    }
  }
}
`)
	e, l := newExecutor(t)

	res, err := e.Build(context.Background(), build.Job{Formula: f, Options: f.DefaultOptions()})
	require.NoError(t, err)

	keg := l.Keg("baked", "2.0")
	require.Equal(t, keg, res.Prefix)
	pc, err := os.ReadFile(filepath.Join(keg, "lib", "pkgconfig", "baked.pc"))
	require.NoError(t, err)
	assert.Equal(t, "prefix="+keg+"\nlibdir="+filepath.Join(keg, "lib")+"\n", string(pc))
	assert.DirExists(t, keg, "the baked prefix exists after install")

	destdir, err := os.ReadFile(filepath.Join(keg, "destdir"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(destdir), l.Staging()), "DESTDIR is below the staging root, got %s", destdir)
	assertStagingEmpty(t, l)
}

func TestBuild_WritingToTheKegDirectlyIsRejected(t *testing.T) {
	f := testutil.LoadFormula(t, "careless", `
formula "careless" {
  version = "1"
  head { url = "https://example.invalid/careless.git" }
  install {
    stage "install" {
      args = ["/bin/sh", "-c", "mkdir -p '${bin}' && touch '${bin}/careless'"]
    }
  }
}
`)
	e, l := newExecutor(t)

	_, err := e.Build(context.Background(), build.Job{Formula: f, Options: f.DefaultOptions()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directly")
	assert.NoDirExists(t, l.Keg("careless", "1"))
	assertStagingEmpty(t, l)
}

func TestBuild_RetryAfterFailure(t *testing.T) {
	f := testutil.LoadFormula(t, "demo", demoHCL)
	broken, err := f.ResolveOptions([]string{"--with-broken"}, false)
	require.NoError(t, err)

	t.Run("succeeds from a clean state", func(t *testing.T) {
		e, l := newExecutor(t)
		_, err := e.Build(context.Background(), build.Job{Formula: f, Options: broken})
		require.Error(t, err)

		res, err := e.Build(context.Background(), build.Job{Formula: f, Options: f.DefaultOptions()})
		require.NoError(t, err)

		keg := l.Keg("demo", "1.2.0")
		assert.FileExists(t, filepath.Join(keg, "bin", "demo"))
		target, err := os.Readlink(l.Opt("demo"))
		require.NoError(t, err)
		assert.Equal(t, keg, target)
		r, err := receipt.Read(keg)
		require.NoError(t, err)
		assert.Equal(t, res.Receipt.BuildID, r.BuildID)
		assertStagingEmpty(t, l)
	})

	t.Run("failed rebuild keeps the previous keg", func(t *testing.T) {
		e, l := newExecutor(t)
		first, err := e.Build(context.Background(), build.Job{Formula: f, Options: f.DefaultOptions()})
		require.NoError(t, err)

		_, err = e.Build(context.Background(), build.Job{Formula: f, Options: broken})
		require.Error(t, err)

		keg := l.Keg("demo", "1.2.0")
		assert.FileExists(t, filepath.Join(keg, "bin", "demo"))
		r, err := receipt.Read(keg)
		require.NoError(t, err)
		assert.Equal(t, first.Receipt.BuildID, r.BuildID)
		assert.Empty(t, r.Options)
		target, err := os.Readlink(l.Opt("demo"))
		require.NoError(t, err)
		assert.Equal(t, keg, target)
		assertStagingEmpty(t, l)
	})
}

func TestBuild_CancelledAfterLastStageIsNotPromoted(t *testing.T) {
	f := testutil.LoadFormula(t, "demo", demoHCL)
	e, l := newExecutor(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := e.Build(ctx, build.Job{
		Formula: f,
		Options: f.DefaultOptions(),
		Staged:  cancel,
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.NoDirExists(t, l.Keg("demo", "1.2.0"))
	_, err = os.Lstat(l.Opt("demo"))
	assert.True(t, os.IsNotExist(err))
	assertStagingEmpty(t, l)
}

func TestBuild_LinkFailureRollsBackPromotion(t *testing.T) {
	f := testutil.LoadFormula(t, "demo", demoHCL)
	e, l := newExecutor(t)
	keg := l.Keg("demo", "1.2.0")

	first, err := e.Build(context.Background(), build.Job{Formula: f, Options: f.DefaultOptions(), Deps: map[string]string{"zstd": "1.5.6"}})
	require.NoError(t, err)

	e.Link = func(target, link string) error { return errors.New("read-only file system") }
	_, err = e.Build(context.Background(), build.Job{Formula: f, Options: f.DefaultOptions(), Deps: map[string]string{"zstd": "1.5.7"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "linking demo")

	r, err := receipt.Read(keg)
	require.NoError(t, err)
	assert.Equal(t, first.Receipt.BuildID, r.BuildID, "the previous keg is restored")
	entries, err := os.ReadDir(filepath.Join(l.Cellar(), "demo"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	t.Run("without a previous keg", func(t *testing.T) {
		e, l := newExecutor(t)
		e.Link = func(target, link string) error { return errors.New("read-only file system") }
		_, err := e.Build(context.Background(), build.Job{Formula: f, Options: f.DefaultOptions()})
		require.Error(t, err)
		assert.NoDirExists(t, l.Keg("demo", "1.2.0"))
	})
}
