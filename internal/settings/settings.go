// Package settings loads the user's defaults for brewgridgo from an
// optional TOML file and the environment. Command-line flags are applied
// on top by the caller.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Environment variables read by Load.
const (
	EnvPrefix      = "BREWGRID_PREFIX"
	EnvGitHubToken = "HOMEBREW_GITHUB_API_TOKEN"
	EnvConfig      = "BREWGRID_CONFIG"
)

// Settings are the effective defaults of a run.
type Settings struct {
	FormulaPath string
	Prefix      string
	// CacheDir defaults to <Prefix>/cache.
	CacheDir    string
	Workers     int
	LogLevel    string
	LogFormat   string
	Timeout     time.Duration
	MaxRetries  uint64
	GitDepth    int
	GitHubToken string
}

// file mirrors the TOML document. Pointers distinguish "unset" from zero.
type file struct {
	FormulaPath *string `toml:"formula_path"`
	Prefix      *string `toml:"prefix"`
	CacheDir    *string `toml:"cache"`
	Workers     *int    `toml:"workers"`
	LogLevel    *string `toml:"log_level"`
	LogFormat   *string `toml:"log_format"`
	Timeout     *string `toml:"timeout"`
	MaxRetries  *uint64 `toml:"max_retries"`
	GitDepth    *int    `toml:"git_depth"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	prefix := "/opt/brewgrid"
	if home, err := os.UserHomeDir(); err == nil {
		prefix = filepath.Join(home, ".brewgrid")
	}
	return Settings{
		FormulaPath: "formulas",
		Prefix:      prefix,
		Workers:     runtime.NumCPU(),
		LogLevel:    "info",
		LogFormat:   "text",
		MaxRetries:  3,
	}
}

// DefaultPath returns the settings file read when none is named.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "brewgridgo", "config.toml")
}

// Load layers the file at path, then the environment, over Defaults. An
// empty path falls back to DefaultPath, which may be absent; a path that
// was named explicitly must exist.
func Load(path string, getenv func(string) string) (Settings, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	s := Defaults()

	explicit := path != ""
	if !explicit {
		path = getenv(EnvConfig)
		explicit = path != ""
	}
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := s.applyFile(path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return Settings{}, err
			}
		}
	}

	if v := getenv(EnvPrefix); v != "" {
		s.Prefix = v
	}
	if v := getenv(EnvGitHubToken); v != "" {
		s.GitHubToken = v
	}
	if v := getenv("BREWGRID_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Settings{}, fmt.Errorf("parsing BREWGRID_WORKERS: %w", err)
		}
		s.Workers = n
	}
	return s, nil
}

func (s *Settings) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var f file
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("parsing %s: unknown key %q", path, undecoded[0].String())
	}

	set(&s.FormulaPath, f.FormulaPath)
	set(&s.Prefix, f.Prefix)
	set(&s.CacheDir, f.CacheDir)
	set(&s.Workers, f.Workers)
	set(&s.LogLevel, f.LogLevel)
	set(&s.LogFormat, f.LogFormat)
	set(&s.MaxRetries, f.MaxRetries)
	set(&s.GitDepth, f.GitDepth)
	if f.Timeout != nil {
		d, err := time.ParseDuration(*f.Timeout)
		if err != nil {
			return fmt.Errorf("parsing %s: timeout: %w", path, err)
		}
		s.Timeout = d
	}
	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
