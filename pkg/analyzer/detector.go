// Package analyzer decides which installed packages are outdated with
// respect to their declared constraints and the versions sources offer.
package analyzer

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/sambabib/versions-check/pkg/version"
)

// Detector runs outdated detection over an immutable snapshot. It holds no
// state between runs and is safe to reuse.
type Detector struct {
	minStability version.Stability
	dialect      version.Dialect
	ignore       func(name string) bool
}

// Option configures a Detector.
type Option func(*Detector)

// WithMinimumStability drops candidates less stable than s, unless the
// installed version or the constraint's "@flag" already asks for less.
func WithMinimumStability(s version.Stability) Option {
	return func(d *Detector) {
		d.minStability = s
	}
}

// WithDialect parses constraints with the dialect's rules. The default is composer's.
func WithDialect(dialect version.Dialect) Option {
	return func(d *Detector) {
		d.dialect = dialect
	}
}

// WithIgnore skips required packages for which fn returns true.
func WithIgnore(fn func(name string) bool) Option {
	return func(d *Detector) {
		d.ignore = fn
	}
}

// NewDetector creates a Detector. Without options every stability is
// eligible and nothing is ignored.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{minStability: version.Dev}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect returns the outdated packages, ordered by name, using a default
// Detector.
func Detect(required []RequiredPackage, installed map[string]InstalledPackage, available Available) ([]OutdatedPackage, error) {
	res, err := NewDetector().Run(required, installed, available)
	if err != nil {
		return nil, err
	}
	return res.Outdated, nil
}

// Run judges every required package. Malformed versions or constraints skip
// the affected package and add a warning; only structurally invalid input
// returns an error.
func (d *Detector) Run(required []RequiredPackage, installed map[string]InstalledPackage, available Available) (*Result, error) {
	if err := validate(required, installed); err != nil {
		return nil, err
	}

	res := &Result{Outdated: []OutdatedPackage{}}
	for _, req := range required {
		d.judge(req, installed, available, res)
	}

	slices.SortFunc(res.Outdated, func(a, b OutdatedPackage) int { return strings.Compare(a.Name, b.Name) })
	slices.SortFunc(res.Held, func(a, b HeldPackage) int { return strings.Compare(a.Name, b.Name) })
	slices.SortStableFunc(res.Skipped, func(a, b Skipped) int { return strings.Compare(a.Name, b.Name) })
	return res, nil
}

type candidate struct {
	v  version.Version
	av AvailableVersion
}

func (d *Detector) judge(req RequiredPackage, installed map[string]InstalledPackage, available Available, res *Result) {
	skip := func(reason SkipReason, err error) {
		s := Skipped{Name: req.Name, Reason: reason, Err: err}
		if err != nil {
			s.Message = err.Error()
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", req.Name, err))
		}
		res.Skipped = append(res.Skipped, s)
	}

	if d.ignore != nil && d.ignore(req.Name) {
		skip(SkipIgnored, nil)
		return
	}
	inst, ok := installed[req.Name]
	if !ok {
		skip(SkipNotInstalled, nil)
		return
	}
	versions := available[req.Name]
	if len(versions) == 0 {
		skip(SkipNoSourceData, nil)
		return
	}

	constraint, err := version.ParseConstraintFor(req.Constraint, d.dialect)
	if err != nil {
		skip(SkipInvalidConstraint, err)
		return
	}
	current, err := version.Parse(inst.Version)
	if err != nil {
		skip(SkipInvalidVersion, err)
		return
	}

	floor := d.stabilityFloor(current, constraint)
	var best, newest *candidate
	usable := 0
	for _, av := range versions {
		v, err := version.Parse(av.Version)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: ignoring available version: %v", req.Name, err))
			continue
		}
		if v.Stability() < floor {
			continue
		}
		usable++
		c := candidate{v: v, av: av}
		// ties go to the version seen last
		if newest == nil || !v.LessThan(newest.v) {
			newest = &c
		}
		if constraint.Check(v) && (best == nil || !v.LessThan(best.v)) {
			best = &c
		}
	}

	switch {
	case usable == 0:
		skip(SkipNoSourceData, nil)
		return
	case best == nil:
		skip(SkipUnsatisfiable, nil)
		return
	}

	if best.v.GreaterThan(current) {
		out := OutdatedPackage{
			Name:       req.Name,
			Installed:  inst.Version,
			Constraint: req.Constraint,
			Latest:     best.av.Version,
			Update:     classifyUpdate(current, best.v),
			Link:       best.av.Link,
			Source:     best.av.Source,
		}
		if newest.v.GreaterThan(best.v) {
			out.Newest = newest.av.Version
		}
		res.Outdated = append(res.Outdated, out)
		return
	}

	if newest.v.GreaterThan(current) {
		res.Held = append(res.Held, HeldPackage{
			Name:       req.Name,
			Installed:  inst.Version,
			Constraint: req.Constraint,
			Newest:     newest.av.Version,
			Link:       newest.av.Link,
		})
	}
}

func (d *Detector) stabilityFloor(current version.Version, c *version.Constraint) version.Stability {
	floor := d.minStability
	if s := current.Stability(); s < floor {
		floor = s
	}
	if s, ok := c.StabilityFlag(); ok && s < floor {
		floor = s
	}
	return floor
}

func validate(required []RequiredPackage, installed map[string]InstalledPackage) error {
	seen := make(map[string]struct{}, len(required))
	for i, r := range required {
		if strings.TrimSpace(r.Name) == "" {
			return &StructuralError{Collection: "required", Reason: fmt.Sprintf("entry %d has no package name", i)}
		}
		if _, dup := seen[r.Name]; dup {
			return &StructuralError{Collection: "required", Name: r.Name, Reason: "declared more than once"}
		}
		seen[r.Name] = struct{}{}
	}
	for _, key := range slices.Sorted(maps.Keys(installed)) {
		if strings.TrimSpace(key) == "" {
			return &StructuralError{Collection: "installed", Reason: "entry has no package name"}
		}
		if name := installed[key].Name; name != "" && name != key {
			return &StructuralError{Collection: "installed", Name: key, Reason: fmt.Sprintf("keyed entry is named %q", name)}
		}
	}
	return nil
}
