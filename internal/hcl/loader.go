package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/brewgridgo/internal/config"
	"github.com/specialistvlad/brewgridgo/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	functions map[string]struct{}
}

// NewLoader creates a new HCL formula loader.
func NewLoader() *Loader {
	names := make(map[string]struct{})
	for name := range functions() {
		names[name] = struct{}{}
	}
	return &Loader{functions: names}
}

// Load parses every formula block found under the given paths. A formula
// name declared in two files is an error.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	model := &config.Model{
		Formulas: make(map[string]*config.FormulaDefinition),
	}

	files, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, block := range root.Formulas {
			def, err := l.translateFormula(ctx, file, block)
			if err != nil {
				return nil, err
			}
			if prev, exists := model.Formulas[def.Name]; exists {
				return nil, fmt.Errorf("formula %q declared in both %s and %s", def.Name, prev.File, file)
			}
			model.Formulas[def.Name] = def
			model.Order = append(model.Order, def.Name)
		}
	}

	logger.Debug("HCL loading complete.", "formulas", len(model.Formulas))
	return model, nil
}

// findAllHCLFiles expands all given paths into a flat, de-duplicated list of
// .hcl files. Directories are searched recursively.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // It's not an error if a configured path doesn't exist.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}

		matches, err := doublestar.Glob(os.DirFS(path), "**/*.hcl", doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("error searching %s: %w", path, err)
		}
		for _, m := range matches {
			add(filepath.Join(path, filepath.FromSlash(m)))
		}
	}
	return allFiles, nil
}

// staticEvalContext is used for the attributes resolved at load time.
func staticEvalContext(name, version string) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"name":    cty.StringVal(name),
			"version": cty.StringVal(version),
		},
		Functions: functions(),
	}
}
