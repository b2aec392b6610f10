package project

import (
	"path/filepath"
	"strings"

	"github.com/sambabib/versions-check/pkg/analyzer"
)

type packageJSON struct {
	Dependencies         stringMap `json:"dependencies"`
	DevDependencies      stringMap `json:"devDependencies"`
	OptionalDependencies stringMap `json:"optionalDependencies"`
}

type packageLock struct {
	LockfileVersion int                         `json:"lockfileVersion"`
	Packages        map[string]packageLockEntry `json:"packages"`     // v2, v3
	Dependencies    map[string]packageLockEntry `json:"dependencies"` // v1
}

type packageLockEntry struct {
	Version      string    `json:"version"`
	Dependencies stringMap `json:"dependencies"` // v2, v3
	Requires     stringMap `json:"requires"`     // v1
}

// LoadNpm reads package.json and, when present, package-lock.json. Only
// top-level installs count; nested copies under another package's
// node_modules are not what the project resolved for its own requirements.
func LoadNpm(dir string) (*Project, error) {
	p := &Project{
		Dir:          dir,
		Ecosystem:    Npm,
		ManifestPath: filepath.Join(dir, "package.json"),
		Installed:    map[string]analyzer.InstalledPackage{},
		Dependents:   map[string][]analyzer.Dependent{},
	}

	var manifest packageJSON
	if err := readJSON(p.ManifestPath, &manifest); err != nil {
		return nil, err
	}
	p.Required = requirements(func(string) bool { return true },
		manifest.Dependencies, manifest.DevDependencies, manifest.OptionalDependencies)
	// npm ranges never match pre-releases unless one is already installed
	p.MinimumStability = DefaultMinimumStability

	lockPath := filepath.Join(dir, "package-lock.json")
	if !fileExists(lockPath) {
		return p, nil
	}
	p.LockPath = lockPath

	var lock packageLock
	if err := readJSON(lockPath, &lock); err != nil {
		return nil, err
	}

	if len(lock.Packages) > 0 {
		for key, entry := range lock.Packages {
			name, ok := topLevelName(key)
			if !ok || entry.Version == "" {
				continue
			}
			p.Installed[name] = analyzer.InstalledPackage{Name: name, Version: entry.Version}
			addDependents(p.Dependents, name, entry.Dependencies)
		}
	} else {
		for name, entry := range lock.Dependencies {
			if entry.Version == "" {
				continue
			}
			p.Installed[name] = analyzer.InstalledPackage{Name: name, Version: entry.Version}
			addDependents(p.Dependents, name, entry.Requires)
		}
	}
	sortDependents(p.Dependents)
	return p, nil
}

// topLevelName turns "node_modules/@scope/pkg" into "@scope/pkg". The root
// entry ("") and nested installs are rejected.
func topLevelName(key string) (string, bool) {
	name, ok := strings.CutPrefix(key, "node_modules/")
	if !ok || name == "" || strings.Contains(name, "/node_modules/") {
		return "", false
	}
	return name, true
}
