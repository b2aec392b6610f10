package analyzer

import "github.com/sambabib/versions-check/pkg/version"

// RequiredPackage is a requirement declared by the root project.
type RequiredPackage struct {
	Name       string `json:"name"`       // package name
	Constraint string `json:"constraint"` // declared version constraint, e.g. "^1.2"
}

// InstalledPackage is a package present in the resolved (locked) set.
type InstalledPackage struct {
	Name    string `json:"name"`
	Version string `json:"version"` // resolved version as written in the lock file
}

// AvailableVersion is one version a source knows for a package.
type AvailableVersion struct {
	Version string `json:"version"`
	Link    string `json:"link,omitempty"`   // source page for this version, if the source has one
	Source  string `json:"source,omitempty"` // name of the source that supplied it
}

// Available maps package names to their known versions in source merge order.
type Available map[string][]AvailableVersion

// MergeAvailable folds several snapshots into one, keeping the order of sets
// and of versions within each set.
func MergeAvailable(sets ...Available) Available {
	out := make(Available)
	for _, set := range sets {
		for name, versions := range set {
			out[name] = append(out[name], versions...)
		}
	}
	return out
}

// UpdateType classifies the distance between the installed and best version.
type UpdateType string

const (
	UpdateMajor      UpdateType = "major"
	UpdateMinor      UpdateType = "minor"
	UpdatePatch      UpdateType = "patch"
	UpdatePreRelease UpdateType = "pre-release"
)

// Dependent is a package that requires an outdated one.
type Dependent struct {
	Name       string `json:"name"`
	Constraint string `json:"constraint"`
}

// OutdatedPackage is an installed package for which a newer version exists
// that still satisfies its declared constraint.
type OutdatedPackage struct {
	Name       string      `json:"name"`
	Installed  string      `json:"installed"`
	Constraint string      `json:"constraint"`
	Latest     string      `json:"latest"`           // best version allowed by the constraint
	Newest     string      `json:"newest,omitempty"` // newest known version, set only when the constraint excludes it
	Update     UpdateType  `json:"update"`
	Link       string      `json:"link,omitempty"`
	Source     string      `json:"source,omitempty"`
	Dependents []Dependent `json:"required_by,omitempty"`
}

// HeldPackage is up to date within its constraint, but the constraint keeps
// it below newer available versions.
type HeldPackage struct {
	Name       string `json:"name"`
	Installed  string `json:"installed"`
	Constraint string `json:"constraint"`
	Newest     string `json:"newest"`
	Link       string `json:"link,omitempty"`
}

// SkipReason explains why a required package was not judged.
type SkipReason string

const (
	SkipIgnored           SkipReason = "ignored"
	SkipNotInstalled      SkipReason = "not-installed"
	SkipNoSourceData      SkipReason = "no-source-data"
	SkipUnsatisfiable     SkipReason = "unsatisfiable"
	SkipInvalidConstraint SkipReason = "invalid-constraint"
	SkipInvalidVersion    SkipReason = "invalid-version"
)

// Skipped records a required package that produced no verdict.
type Skipped struct {
	Name    string     `json:"name"`
	Reason  SkipReason `json:"reason"`
	Message string     `json:"message,omitempty"`
	Err     error      `json:"-"`
}

// Result is everything one detection run found.
type Result struct {
	Outdated []OutdatedPackage `json:"outdated"`
	Held     []HeldPackage     `json:"held,omitempty"`
	Skipped  []Skipped         `json:"skipped,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
}

func classifyUpdate(from, to version.Version) UpdateType {
	switch {
	case to.Major() != from.Major():
		return UpdateMajor
	case to.Minor() != from.Minor():
		return UpdateMinor
	case to.Patch() != from.Patch():
		return UpdatePatch
	case from.Stability() == version.Stable && to.Stability() == version.Stable:
		return UpdatePatch
	}
	return UpdatePreRelease
}
