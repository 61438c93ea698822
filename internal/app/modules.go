package app

import (
	"github.com/specialistvlad/brewgridgo/internal/registry"
	"github.com/specialistvlad/brewgridgo/modules/archive"
	"github.com/specialistvlad/brewgridgo/modules/git_checkout"
	"github.com/specialistvlad/brewgridgo/modules/github_release"
)

// coreModules returns the fetch strategies compiled into the brewgridgo
// binary, configured from cfg.
func coreModules(cfg *Config) []registry.Module {
	return []registry.Module{
		&archive.Module{},
		&github_release.Module{Token: cfg.GitHubToken},
		&git_checkout.Module{Depth: cfg.GitDepth},
	}
}
