package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambabib/versions-check/pkg/analyzer"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644), "Failed to write %s", name)
	}
	return dir
}

func TestLoad_Composer(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"composer.json": `{
			"name": "acme/app",
			"minimum-stability": "beta",
			"require": {
				"php": ">=8.1",
				"ext-json": "*",
				"acme/tools": "^1.0",
				"acme/http": "~2.3"
			},
			"require-dev": {
				"acme/testing": "^4.0",
				"acme/tools": "^9.0"
			},
			"repositories": [
				{"type": "composer", "url": "https://repo.example.com/"},
				{"type": "vcs", "url": "https://github.com/acme/fork"},
				{"packagist.org": false}
			],
			"config": {
				"sort-packages": true,
				"sllh-composer-versions-check": {"show-links": true}
			}
		}`,
		"composer.lock": `{
			"packages": [
				{"name": "acme/tools", "version": "1.0.0", "require": {"php": ">=8.1"}},
				{"name": "acme/http", "version": "v2.3.1", "require": {"acme/tools": "^1.0"}},
				{"name": "acme/psr", "version": "1.1.0", "require": []}
			],
			"packages-dev": [
				{"name": "acme/testing", "version": "4.0.2", "require": {"acme/tools": ">=1.0", "acme/http": "^2.0"}}
			]
		}`,
	})

	p, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, Composer, p.Ecosystem)
	assert.Equal(t, filepath.Join(dir, "composer.lock"), p.LockPath)
	assert.Equal(t, []analyzer.RequiredPackage{
		{Name: "acme/http", Constraint: "~2.3"},
		{Name: "acme/testing", Constraint: "^4.0"},
		{Name: "acme/tools", Constraint: "^1.0"},
	}, p.Required)
	assert.Equal(t, []string{"acme/http", "acme/testing", "acme/tools"}, p.Names())

	assert.Len(t, p.Installed, 4)
	assert.Equal(t, "v2.3.1", p.Installed["acme/http"].Version)
	assert.Equal(t, []analyzer.Dependent{
		{Name: "acme/http", Constraint: "^1.0"},
		{Name: "acme/testing", Constraint: ">=1.0"},
	}, p.Dependents["acme/tools"])

	assert.Equal(t, "beta", p.MinimumStability)
	require.NotNil(t, p.ShowLinks)
	assert.True(t, *p.ShowLinks)
	assert.Equal(t, []string{"https://repo.example.com"}, p.Repositories)
	assert.True(t, p.DisablePackagist)
}

func TestLoad_ComposerWithoutLock(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"composer.json": `{"require": {"acme/tools": "^1.0"}, "repositories": {"packagist.org": false, "private": {"type": "composer", "url": "https://private.example.com"}}}`,
	})

	p, err := LoadComposer(dir)
	require.NoError(t, err)
	assert.Empty(t, p.LockPath)
	assert.Empty(t, p.Installed)
	assert.Equal(t, "stable", p.MinimumStability, "composer installs stable releases by default")
	assert.Nil(t, p.ShowLinks)
	assert.True(t, p.DisablePackagist)
	assert.Equal(t, []string{"https://private.example.com"}, p.Repositories)
}

func TestLoad_Npm(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"package.json": `{
			"name": "app",
			"dependencies": {"left-pad": "^1.1.0", "@scope/ui": "~0.4.0"},
			"devDependencies": {"jest": "^29.0.0", "left-pad": "^2.0.0"},
			"optionalDependencies": {"fsevents": "^2.3.0"}
		}`,
		"package-lock.json": `{
			"lockfileVersion": 3,
			"packages": {
				"": {"name": "app"},
				"node_modules/left-pad": {"version": "1.1.3"},
				"node_modules/@scope/ui": {"version": "0.4.1", "dependencies": {"left-pad": "^1.0.0"}},
				"node_modules/jest": {"version": "29.1.0"},
				"node_modules/jest/node_modules/left-pad": {"version": "0.0.9"}
			}
		}`,
	})

	p, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, Npm, p.Ecosystem)
	assert.Equal(t, DefaultMinimumStability, p.MinimumStability)
	assert.Equal(t, []string{"@scope/ui", "fsevents", "jest", "left-pad"}, p.Names())
	assert.Equal(t, "^1.1.0", p.Required[3].Constraint)

	assert.Equal(t, map[string]analyzer.InstalledPackage{
		"left-pad":  {Name: "left-pad", Version: "1.1.3"},
		"@scope/ui": {Name: "@scope/ui", Version: "0.4.1"},
		"jest":      {Name: "jest", Version: "29.1.0"},
	}, p.Installed)
	assert.Equal(t, []analyzer.Dependent{{Name: "@scope/ui", Constraint: "^1.0.0"}}, p.Dependents["left-pad"])
}

func TestLoad_NpmLockV1(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"package.json": `{"dependencies": {"express": "^4.17.0"}}`,
		"package-lock.json": `{
			"lockfileVersion": 1,
			"dependencies": {
				"express": {"version": "4.17.1", "requires": {"accepts": "~1.3.7"}},
				"accepts": {"version": "1.3.7"}
			}
		}`,
	})

	p, err := LoadNpm(dir)
	require.NoError(t, err)
	assert.Equal(t, "4.17.1", p.Installed["express"].Version)
	assert.Equal(t, []analyzer.Dependent{{Name: "express", Constraint: "~1.3.7"}}, p.Dependents["accepts"])
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.True(t, errors.Is(err, ErrNoManifest))

	dir := writeFiles(t, map[string]string{"composer.json": `{"require": `})
	_, err = Load(dir)
	assert.Error(t, err)

	dir = writeFiles(t, map[string]string{
		"package.json":      `{}`,
		"package-lock.json": `[1, 2]`,
	})
	_, err = Load(dir)
	assert.Error(t, err)
}

func TestTopLevelName(t *testing.T) {
	for key, want := range map[string]string{
		"node_modules/a":                "a",
		"node_modules/@s/b":             "@s/b",
		"":                              "",
		"node_modules/a/node_modules/b": "",
		"packages/local":                "",
	} {
		got, ok := topLevelName(key)
		assert.Equal(t, want, got, key)
		assert.Equal(t, want != "", ok, key)
	}
}
