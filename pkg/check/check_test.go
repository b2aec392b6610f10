package check

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambabib/versions-check/pkg/analyzer"
	"github.com/sambabib/versions-check/pkg/config"
	"github.com/sambabib/versions-check/pkg/logger"
	"github.com/sambabib/versions-check/pkg/output"
	"github.com/sambabib/versions-check/pkg/project"
	"github.com/sambabib/versions-check/pkg/source"
	"github.com/sambabib/versions-check/pkg/version"
)

func testProject() *project.Project {
	return &project.Project{
		Dir:          "/app",
		Ecosystem:    project.Composer,
		ManifestPath: "/app/composer.json",
		LockPath:     "/app/composer.lock",
		Required: []analyzer.RequiredPackage{
			{Name: "acme/tools", Constraint: "^1.0"},
			{Name: "acme/http", Constraint: "~2.3.0"},
			{Name: "acme/legacy", Constraint: "^1.0"},
		},
		Installed: map[string]analyzer.InstalledPackage{
			"acme/tools":  {Name: "acme/tools", Version: "1.0.0"},
			"acme/http":   {Name: "acme/http", Version: "2.3.4"},
			"acme/legacy": {Name: "acme/legacy", Version: "1.0.0"},
		},
		Dependents: map[string][]analyzer.Dependent{
			"acme/tools": {{Name: "acme/http", Constraint: "^1.0"}},
		},
	}
}

func testSource() source.Source {
	return source.NewStatic("internal", map[string][]source.Release{
		"acme/tools":  {{Version: "1.0.0"}, {Version: "1.2.0", Link: "https://example.com/acme/tools"}, {Version: "2.0.0-beta"}},
		"acme/http":   {{Version: "2.3.4"}, {Version: "2.4.0"}},
		"acme/legacy": {{Version: "1.5.0"}},
	})
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })
	return &buf
}

func TestNew_Modes(t *testing.T) {
	c, err := New(Options{Sources: []source.Source{testSource()}})
	require.NoError(t, err)
	assert.Equal(t, Enabled, c.Mode())

	c, err = New(Options{Sources: []source.Source{testSource()}, PreferLowest: true})
	require.NoError(t, err)
	assert.Equal(t, Disabled, c.Mode())

	c, err = New(Options{})
	require.NoError(t, err)
	assert.Equal(t, Disabled, c.Mode())
	assert.Equal(t, "disabled", c.Mode().String())
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(Options{MinimumStability: "gold"})
	assert.Error(t, err)

	_, err = New(Options{IgnorePackages: []string{"acme/["}})
	assert.Error(t, err)
}

func TestRun_Disabled(t *testing.T) {
	c, err := New(Options{PreferLowest: true, Sources: []source.Source{testSource()}})
	require.NoError(t, err)

	out, err := c.Run(context.Background(), testProject())
	require.NoError(t, err)
	assert.True(t, out.Skipped)
	assert.NotEmpty(t, out.Reason)
	assert.Nil(t, out.Result)
	assert.Empty(t, out.Report)
}

func TestRun_ReportsOutdated(t *testing.T) {
	captureLogs(t)
	c, err := New(Options{
		ShowLinks:        true,
		MinimumStability: "stable",
		IgnorePackages:   []string{"acme/leg*"},
		Sources:          []source.Source{testSource()},
	})
	require.NoError(t, err)

	out, err := c.Run(context.Background(), testProject())
	require.NoError(t, err)
	assert.False(t, out.Skipped)

	require.Len(t, out.Result.Outdated, 1)
	tools := out.Result.Outdated[0]
	assert.Equal(t, "acme/tools", tools.Name)
	assert.Equal(t, "1.2.0", tools.Latest)
	assert.Equal(t, []analyzer.Dependent{{Name: "acme/http", Constraint: "^1.0"}}, tools.Dependents)

	require.Len(t, out.Result.Held, 1)
	assert.Equal(t, "acme/http", out.Result.Held[0].Name)

	assert.Equal(t, "1 package is not up to date:\n\n"+
		"  - acme/tools  1.0.0 -> 1.2.0  (^1.0)\n"+
		"    https://example.com/acme/tools\n"+
		"    Required by acme/http (^1.0)\n", out.Report)
}

func TestRun_ComposerDefaultsToStable(t *testing.T) {
	captureLogs(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "composer.json"), []byte(`{"require": {"acme/tools": "^1.0"}}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "composer.lock"),
		[]byte(`{"packages": [{"name": "acme/tools", "version": "1.0.0"}]}`), 0o644))
	proj, err := project.LoadComposer(dir)
	require.NoError(t, err)

	opts := ResolveOptions(config.DefaultConfig(), proj)
	assert.Equal(t, "stable", opts.MinimumStability)
	opts.Sources = []source.Source{source.NewStatic("internal", map[string][]source.Release{
		"acme/tools": {{Version: "1.0.0"}, {Version: "1.1.0-beta1"}, {Version: "1.1.0-dev"}},
	})}

	c, err := New(opts)
	require.NoError(t, err)
	out, err := c.Run(context.Background(), proj)
	require.NoError(t, err)
	assert.Equal(t, output.UpToDateMessage, out.Report)
	assert.Empty(t, out.Result.Held)

	// an installed beta still sees newer betas
	proj.Installed["acme/tools"] = analyzer.InstalledPackage{Name: "acme/tools", Version: "1.1.0-beta0"}
	out, err = c.Run(context.Background(), proj)
	require.NoError(t, err)
	require.Len(t, out.Result.Outdated, 1)
	assert.Equal(t, "1.1.0-beta1", out.Result.Outdated[0].Latest)
}

func TestRun_LogsFetchFailures(t *testing.T) {
	logs := captureLogs(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer server.Close()

	failing := source.NewPackagist(server.URL, source.NewClient(source.WithMaxRetries(0)))
	c, err := New(Options{Sources: []source.Source{failing, testSource()}})
	require.NoError(t, err)

	proj := testProject()
	proj.LockPath = ""
	out, err := c.Run(context.Background(), proj)
	require.NoError(t, err)
	assert.Len(t, out.Failures, 3)
	assert.Contains(t, logs.String(), "WARNING: ")
	assert.Contains(t, logs.String(), "No lock file found")
}

func TestRun_StructuralError(t *testing.T) {
	c, err := New(Options{Sources: []source.Source{testSource()}})
	require.NoError(t, err)

	proj := testProject()
	proj.Required = append(proj.Required, analyzer.RequiredPackage{Name: "acme/tools", Constraint: "^2.0"})
	_, err = c.Run(context.Background(), proj)
	assert.Error(t, err)
}

func TestBuildSources(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "static.yaml"), []byte("name: local\npackages: {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte("sources: [static.yaml]\n"), 0o644))
	cfg, err := config.FindAndLoadConfig(dir)
	require.NoError(t, err)

	client := source.NewClient()
	proj := testProject()
	proj.Repositories = []string{"https://repo.example.com"}

	sources, err := BuildSources(cfg, proj, client)
	require.NoError(t, err)
	var names []string
	for _, s := range sources {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"packagist", "repo.example.com", "local"}, names)

	proj.DisablePackagist = true
	sources, err = BuildSources(cfg, proj, client)
	require.NoError(t, err)
	assert.Len(t, sources, 2)

	sources, err = BuildSources(config.DefaultConfig(), &project.Project{Ecosystem: project.Npm}, client)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "npm", sources[0].Name())

	cfg.Sources = []string{"missing.yaml"}
	_, err = BuildSources(cfg, proj, client)
	assert.Error(t, err)
}

func TestResolveOptions(t *testing.T) {
	yes, no := true, false
	cfg := config.DefaultConfig()
	proj := &project.Project{MinimumStability: "beta", ShowLinks: &yes}

	opts := ResolveOptions(cfg, proj)
	assert.True(t, opts.ShowLinks)
	assert.Equal(t, "beta", opts.MinimumStability)

	cfg.ShowLinks = &no
	cfg.MinimumStability = "RC"
	opts = ResolveOptions(cfg, proj)
	assert.False(t, opts.ShowLinks)
	assert.Equal(t, "RC", opts.MinimumStability)
	assert.Equal(t, cfg.Concurrency, opts.Concurrency)
	assert.Equal(t, version.DialectComposer, opts.Dialect)

	opts = ResolveOptions(cfg, &project.Project{Ecosystem: project.Npm})
	assert.Equal(t, version.DialectNpm, opts.Dialect)
}

func ExampleChecker_Run() {
	c, _ := New(Options{Sources: []source.Source{
		source.NewStatic("example", map[string][]source.Release{"lib": {{Version: "1.0.0"}, {Version: "1.2.0"}, {Version: "2.0.0"}}}),
	}})
	out, _ := c.Run(context.Background(), &project.Project{
		LockPath:  "composer.lock",
		Required:  []analyzer.RequiredPackage{{Name: "lib", Constraint: "^1.0"}},
		Installed: map[string]analyzer.InstalledPackage{"lib": {Name: "lib", Version: "1.0.0"}},
	})
	fmt.Print(out.Report)
	// Output:
	// 1 package is not up to date:
	//
	//   - lib  1.0.0 -> 1.2.0  (^1.0)
}
