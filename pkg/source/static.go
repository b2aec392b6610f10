package source

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Static serves versions from a fixed list, typically a YAML file listing
// releases of private packages.
type Static struct {
	name     string
	releases map[string][]Release
}

// NewStatic creates a source over an in-memory package list.
func NewStatic(name string, releases map[string][]Release) *Static {
	if releases == nil {
		releases = map[string][]Release{}
	}
	return &Static{name: name, releases: releases}
}

type staticFile struct {
	Name     string                     `yaml:"name"`
	Packages map[string][]staticRelease `yaml:"packages"`
}

type staticRelease struct {
	Version string `yaml:"version"`
	Link    string `yaml:"link"`
}

// UnmarshalYAML accepts either a bare version string or a mapping.
func (r *staticRelease) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		r.Version = node.Value
		return nil
	}
	type plain staticRelease
	return node.Decode((*plain)(r))
}

// LoadStatic reads a static source file:
//
//	name: internal
//	packages:
//	  acme/tools:
//	    - 1.0.0
//	    - version: 1.1.0
//	      link: https://git.example.com/acme/tools/releases/1.1.0
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading source file %s: %w", path, err)
	}

	var file staticFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error parsing source file %s: %w", path, err)
	}
	if file.Name == "" {
		file.Name = path
	}

	releases := make(map[string][]Release, len(file.Packages))
	for pkg, list := range file.Packages {
		for _, r := range list {
			if r.Version == "" {
				return nil, fmt.Errorf("source file %s: %s has an entry without a version", path, pkg)
			}
			releases[pkg] = append(releases[pkg], Release{Version: r.Version, Link: r.Link})
		}
	}
	return NewStatic(file.Name, releases), nil
}

func (s *Static) Name() string {
	return s.name
}

func (s *Static) Versions(_ context.Context, pkg string) ([]Release, error) {
	releases, ok := s.releases[pkg]
	if !ok {
		return nil, &NotFoundError{Source: s.name, Package: pkg}
	}
	return releases, nil
}
