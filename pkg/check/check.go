// Package check runs one versions check over a project: gather available
// versions, detect outdated packages, and render the report.
package check

import (
	"context"
	"fmt"

	"github.com/sambabib/versions-check/pkg/analyzer"
	"github.com/sambabib/versions-check/pkg/config"
	"github.com/sambabib/versions-check/pkg/logger"
	"github.com/sambabib/versions-check/pkg/output"
	"github.com/sambabib/versions-check/pkg/project"
	"github.com/sambabib/versions-check/pkg/source"
	"github.com/sambabib/versions-check/pkg/version"
)

// Mode tells whether a Checker will do anything.
type Mode int

const (
	Enabled Mode = iota
	Disabled
)

func (m Mode) String() string {
	if m == Disabled {
		return "disabled"
	}
	return "enabled"
}

// Options configures a Checker.
type Options struct {
	ShowLinks        bool
	PreferLowest     bool   // lowest-version installs are outdated on purpose; the check is skipped
	MinimumStability string // empty means every stability is eligible
	Dialect          version.Dialect
	IgnorePackages   []string
	Sources          []source.Source
	Concurrency      int
	Styles           output.Styles
}

// Outcome is what one run produced.
type Outcome struct {
	Skipped  bool   // the checker is disabled
	Reason   string // why it was skipped
	Result   *analyzer.Result
	Failures []*source.FetchError
	Report   string
}

// Checker is validated once and can run any number of times.
type Checker struct {
	mode     Mode
	reason   string
	opts     Options
	detector *analyzer.Detector
}

// New validates opts and decides the checker's mode.
func New(opts Options) (*Checker, error) {
	minStability := version.Dev
	if opts.MinimumStability != "" {
		s, err := version.ParseStability(opts.MinimumStability)
		if err != nil {
			return nil, fmt.Errorf("invalid minimum stability: %w", err)
		}
		minStability = s
	}
	if err := config.ValidatePatterns(opts.IgnorePackages); err != nil {
		return nil, fmt.Errorf("invalid ignore rule: %w", err)
	}

	c := &Checker{opts: opts}
	switch {
	case opts.PreferLowest:
		c.mode, c.reason = Disabled, "prefer-lowest installs are not checked"
	case len(opts.Sources) == 0:
		c.mode, c.reason = Disabled, "no package sources configured"
	}

	patterns := opts.IgnorePackages
	c.detector = analyzer.NewDetector(
		analyzer.WithMinimumStability(minStability),
		analyzer.WithDialect(opts.Dialect),
		analyzer.WithIgnore(func(name string) bool { return config.MatchPackage(patterns, name) }),
	)
	return c, nil
}

func (c *Checker) Mode() Mode {
	return c.mode
}

// Run checks proj. Fetch failures and malformed versions are logged as
// warnings; only cancellation and invalid project data are errors.
func (c *Checker) Run(ctx context.Context, proj *project.Project) (*Outcome, error) {
	if c.mode == Disabled {
		logger.Debugf("Versions check skipped: %s", c.reason)
		return &Outcome{Skipped: true, Reason: c.reason}, nil
	}
	if proj.LockPath == "" {
		logger.Warnf("No lock file found in %s, nothing is installed to check", proj.Dir)
	}

	names := proj.Names()
	logger.Debugf("Checking %d packages against %d sources", len(names), len(c.opts.Sources))

	snap, err := source.Gather(ctx, c.opts.Sources, names, source.GatherOptions{Concurrency: c.opts.Concurrency})
	if err != nil {
		return nil, fmt.Errorf("gathering available versions: %w", err)
	}
	for _, f := range snap.Failures {
		logger.Warnf("%v", f)
	}

	res, err := c.detector.Run(proj.Required, proj.Installed, snap.Available)
	if err != nil {
		return nil, fmt.Errorf("checking %s: %w", proj.ManifestPath, err)
	}
	for i := range res.Outdated {
		res.Outdated[i].Dependents = proj.Dependents[res.Outdated[i].Name]
	}

	for _, w := range res.Warnings {
		logger.Warnf("%s", w)
	}
	for _, h := range res.Held {
		logger.Debugf("%s %s is held back by %s, %s is available", h.Name, h.Installed, h.Constraint, h.Newest)
	}
	for _, s := range res.Skipped {
		logger.Debugf("Skipped %s: %s", s.Name, s.Reason)
	}

	formatter := output.TextFormatter{ShowLinks: c.opts.ShowLinks, Styles: c.opts.Styles}
	return &Outcome{
		Result:   res,
		Failures: snap.Failures,
		Report:   formatter.Format(res.Outdated),
	}, nil
}
