package check

import (
	"fmt"

	"github.com/sambabib/versions-check/pkg/config"
	"github.com/sambabib/versions-check/pkg/project"
	"github.com/sambabib/versions-check/pkg/source"
	"github.com/sambabib/versions-check/pkg/version"
)

// BuildSources returns the sources to query for proj, lowest priority
// first: the public registry, then the project's own composer
// repositories, then static files from the configuration. Equal versions
// resolve to the last source, so more specific sources win.
func BuildSources(cfg *config.Config, proj *project.Project, client *source.Client) ([]source.Source, error) {
	var sources []source.Source

	switch proj.Ecosystem {
	case project.Composer:
		if !proj.DisablePackagist {
			sources = append(sources, source.NewPackagist(cfg.Registries.Packagist, client))
		}
		for _, repo := range proj.Repositories {
			sources = append(sources, source.NewPackagist(repo, client))
		}
	case project.Npm:
		sources = append(sources, source.NewNpm(cfg.Registries.Npm, client))
	default:
		return nil, fmt.Errorf("unsupported ecosystem %q", proj.Ecosystem)
	}

	for _, path := range cfg.SourcePaths() {
		s, err := source.LoadStatic(path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, nil
}

// ResolveOptions merges the configuration with the project's own settings.
// The configuration wins where both speak.
func ResolveOptions(cfg *config.Config, proj *project.Project) Options {
	opts := Options{
		MinimumStability: cfg.MinimumStability,
		IgnorePackages:   cfg.IgnorePackages,
		Concurrency:      cfg.Concurrency,
	}
	if opts.MinimumStability == "" {
		opts.MinimumStability = proj.MinimumStability
	}
	if proj.Ecosystem == project.Npm {
		opts.Dialect = version.DialectNpm
	}
	switch {
	case cfg.ShowLinks != nil:
		opts.ShowLinks = *cfg.ShowLinks
	case proj.ShowLinks != nil:
		opts.ShowLinks = *proj.ShowLinks
	}
	return opts
}
