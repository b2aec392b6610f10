package project

import (
	"encoding/json"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sambabib/versions-check/pkg/analyzer"
)

const pluginConfigKey = "sllh-composer-versions-check"

type composerJSON struct {
	Require          stringMap                  `json:"require"`
	RequireDev       stringMap                  `json:"require-dev"`
	MinimumStability string                     `json:"minimum-stability"`
	Repositories     json.RawMessage            `json:"repositories"`
	Config           map[string]json.RawMessage `json:"config"`
}

type composerLock struct {
	Packages    []composerLockPackage `json:"packages"`
	PackagesDev []composerLockPackage `json:"packages-dev"`
}

type composerLockPackage struct {
	Name    string    `json:"name"`
	Version string    `json:"version"`
	Require stringMap `json:"require"`
}

type composerRepository struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// LoadComposer reads composer.json and, when present, composer.lock.
// Platform requirements (php, ext-*, lib-*) are not packages and are left
// out.
func LoadComposer(dir string) (*Project, error) {
	p := &Project{
		Dir:          dir,
		Ecosystem:    Composer,
		ManifestPath: filepath.Join(dir, "composer.json"),
		Installed:    map[string]analyzer.InstalledPackage{},
		Dependents:   map[string][]analyzer.Dependent{},
	}

	var manifest composerJSON
	if err := readJSON(p.ManifestPath, &manifest); err != nil {
		return nil, err
	}
	p.Required = requirements(isComposerPackage, manifest.Require, manifest.RequireDev)
	p.MinimumStability = manifest.MinimumStability
	if p.MinimumStability == "" {
		p.MinimumStability = DefaultMinimumStability
	}

	if raw, ok := manifest.Config[pluginConfigKey]; ok {
		var pluginConfig struct {
			ShowLinks *bool `json:"show-links"`
		}
		if err := json.Unmarshal(raw, &pluginConfig); err != nil {
			return nil, fmt.Errorf("error parsing composer.json config.%s: %w", pluginConfigKey, err)
		}
		p.ShowLinks = pluginConfig.ShowLinks
	}

	repos, disablePackagist, err := parseRepositories(manifest.Repositories)
	if err != nil {
		return nil, fmt.Errorf("error parsing composer.json repositories: %w", err)
	}
	p.Repositories = repos
	p.DisablePackagist = disablePackagist

	lockPath := filepath.Join(dir, "composer.lock")
	if !fileExists(lockPath) {
		return p, nil
	}
	p.LockPath = lockPath

	var lock composerLock
	if err := readJSON(lockPath, &lock); err != nil {
		return nil, err
	}
	for _, pkg := range slices.Concat(lock.Packages, lock.PackagesDev) {
		if pkg.Name == "" {
			continue
		}
		p.Installed[pkg.Name] = analyzer.InstalledPackage{Name: pkg.Name, Version: pkg.Version}
		addDependents(p.Dependents, pkg.Name, pkg.Require)
	}
	sortDependents(p.Dependents)
	return p, nil
}

func isComposerPackage(name string) bool {
	return strings.Contains(name, "/")
}

// parseRepositories accepts both the list and the keyed object forms.
// Only repositories of type composer can be queried for versions.
func parseRepositories(raw json.RawMessage) ([]string, bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, false, nil
	}

	var entries []json.RawMessage
	var keys []string
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, false, err
		}
	} else {
		var byName map[string]json.RawMessage
		if err := json.Unmarshal(raw, &byName); err != nil {
			return nil, false, err
		}
		keys = slices.Sorted(maps.Keys(byName))
		for _, k := range keys {
			entries = append(entries, byName[k])
		}
	}

	var urls []string
	disablePackagist := false
	for i, entry := range entries {
		if string(entry) == "false" {
			// {"packagist.org": false} or [{"packagist.org": false}]
			if keys != nil && isPackagistKey(keys[i]) {
				disablePackagist = true
			}
			continue
		}
		var off map[string]any
		if err := json.Unmarshal(entry, &off); err == nil {
			if v, ok := off["packagist.org"].(bool); ok && !v {
				disablePackagist = true
				continue
			}
		}
		var repo composerRepository
		if err := json.Unmarshal(entry, &repo); err != nil {
			return nil, false, err
		}
		if repo.Type == "composer" && repo.URL != "" {
			urls = append(urls, strings.TrimSuffix(repo.URL, "/"))
		}
	}
	return urls, disablePackagist, nil
}

func isPackagistKey(key string) bool {
	return key == "packagist.org" || key == "packagist"
}
