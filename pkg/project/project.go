// Package project reads a project's declared requirements and its locked
// (installed) packages.
package project

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sambabib/versions-check/pkg/analyzer"
)

// Ecosystem names the package manager a project uses.
type Ecosystem string

const (
	Composer Ecosystem = "composer"
	Npm      Ecosystem = "npm"
)

// DefaultMinimumStability is what composer and npm install when the
// manifest does not ask for less stable releases.
const DefaultMinimumStability = "stable"

// ErrNoManifest is returned when a directory has no supported manifest.
var ErrNoManifest = errors.New("no composer.json or package.json found")

// Project is everything the checker needs to know about a project.
type Project struct {
	Dir          string
	Ecosystem    Ecosystem
	ManifestPath string
	LockPath     string // empty when the project has no lock file

	Required   []analyzer.RequiredPackage // sorted by name
	Installed  map[string]analyzer.InstalledPackage
	Dependents map[string][]analyzer.Dependent // locked packages requiring each package

	MinimumStability string // "stable" unless composer.json says otherwise

	// composer only
	ShowLinks        *bool    // config.sllh-composer-versions-check.show-links
	Repositories     []string // extra composer repository URLs; keyed repositories are ordered by key
	DisablePackagist bool
}

// Names returns the required package names in order.
func (p *Project) Names() []string {
	names := make([]string, 0, len(p.Required))
	for _, r := range p.Required {
		names = append(names, r.Name)
	}
	return names
}

// Load detects the project type in dir and reads it. composer.json wins
// when both manifests exist.
func Load(dir string) (*Project, error) {
	if fileExists(filepath.Join(dir, "composer.json")) {
		return LoadComposer(dir)
	}
	if fileExists(filepath.Join(dir, "package.json")) {
		return LoadNpm(dir)
	}
	return nil, fmt.Errorf("%w in %s", ErrNoManifest, dir)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("error parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// stringMap decodes a JSON object of strings, treating the empty array PHP
// sometimes writes for empty objects as an empty map.
type stringMap map[string]string

func (m *stringMap) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("[]")) {
		*m = nil
		return nil
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = raw
	return nil
}

// requirements merges requirement sections; the first section declaring a
// name wins.
func requirements(keep func(name string) bool, sections ...stringMap) []analyzer.RequiredPackage {
	seen := map[string]bool{}
	var out []analyzer.RequiredPackage
	for _, section := range sections {
		for name, constraint := range section {
			if seen[name] || !keep(name) {
				continue
			}
			seen[name] = true
			out = append(out, analyzer.RequiredPackage{Name: name, Constraint: strings.TrimSpace(constraint)})
		}
	}
	slices.SortFunc(out, func(a, b analyzer.RequiredPackage) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func addDependents(dependents map[string][]analyzer.Dependent, from string, requires stringMap) {
	for name, constraint := range requires {
		dependents[name] = append(dependents[name], analyzer.Dependent{Name: from, Constraint: constraint})
	}
}

func sortDependents(dependents map[string][]analyzer.Dependent) {
	for _, list := range dependents {
		slices.SortFunc(list, func(a, b analyzer.Dependent) int { return strings.Compare(a.Name, b.Name) })
	}
}
