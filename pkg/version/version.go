// Package version parses package version strings and constraint expressions
// and orders versions with stability awareness (dev < alpha < beta < RC < stable).
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Comparison is the result of ordering two versions.
type Comparison int

const (
	Less    Comparison = -1
	Equal   Comparison = 0
	Greater Comparison = 1
)

// String returns the lower-case name of the comparison.
func (c Comparison) String() string {
	switch c {
	case Less:
		return "less"
	case Equal:
		return "equal"
	case Greater:
		return "greater"
	default:
		return "unknown"
	}
}

// Version is a parsed, comparable version. The zero value sorts below
// every parsed version with at least one non-zero segment.
type Version struct {
	raw       string
	sv        *semver.Version
	segments  []uint64 // numeric release segments as written
	stability Stability
	pre       []string // pre-release identifiers following the stability word
}

var numericPrefix = regexp.MustCompile(`^(\d+(?:\.\d+)*)(.*)$`)

// Parse normalizes common version spellings (leading "v", missing segments,
// "RC1", "beta.2", "_alpha", "-dev", build metadata) into a Version.
func Parse(raw string) (Version, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Version{}, newParseError(KindVersion, raw, "empty version", nil)
	}
	trimmed := s
	if len(trimmed) > 1 && (trimmed[0] == 'v' || trimmed[0] == 'V') {
		trimmed = trimmed[1:]
	}

	m := numericPrefix.FindStringSubmatch(trimmed)
	if m == nil {
		return Version{}, newParseError(KindVersion, raw, "no numeric release segment", nil)
	}

	parts := strings.Split(m[1], ".")
	segments := make([]uint64, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return Version{}, newParseError(KindVersion, raw, fmt.Sprintf("segment %q out of range", p), err)
		}
		segments[i] = n
	}

	pre, meta, err := splitSuffix(m[2])
	if err != nil {
		return Version{}, newParseError(KindVersion, raw, err.Error(), nil)
	}

	core := make([]uint64, 3)
	copy(core, segments)
	canonical := fmt.Sprintf("%d.%d.%d", core[0], core[1], core[2])
	if pre != "" {
		canonical += "-" + trimNumericIdents(pre)
	}
	if meta != "" {
		canonical += "+" + meta
	}
	sv, err := semver.StrictNewVersion(canonical)
	if err != nil {
		return Version{}, newParseError(KindVersion, raw, "malformed suffix", err)
	}

	stability, rest := classify(sv.Prerelease())
	return Version{
		raw:       s,
		sv:        sv,
		segments:  segments,
		stability: stability,
		pre:       rest,
	}, nil
}

// MustParse is like Parse but panics on error. Intended for literals in tests
// and package-level tables.
func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// splitSuffix separates the pre-release part from build metadata and
// normalizes the separators composer and PEP 440 style versions use.
func splitSuffix(rest string) (pre, meta string, err error) {
	if i := strings.IndexByte(rest, '+'); i >= 0 {
		meta = rest[i+1:]
		rest = rest[:i]
		if meta == "" {
			return "", "", fmt.Errorf("empty build metadata")
		}
	}
	if rest == "" {
		return "", meta, nil
	}
	switch rest[0] {
	case '-', '.', '_':
		rest = rest[1:]
	}
	if rest == "" {
		return "", "", fmt.Errorf("dangling separator")
	}
	return strings.ReplaceAll(rest, "_", "."), meta, nil
}

// trimNumericIdents drops leading zeros from numeric identifiers, so
// "beta.02" reads as "beta.2". Semver forbids them; registries publish them.
func trimNumericIdents(pre string) string {
	idents := strings.Split(pre, ".")
	for i, id := range idents {
		if !isNumeric(id) {
			continue
		}
		if id = strings.TrimLeft(id, "0"); id == "" {
			id = "0"
		}
		idents[i] = id
	}
	return strings.Join(idents, ".")
}

// classify maps a pre-release string to its stability and the identifiers
// that order versions within that stability. "beta2" and "beta.2" are the
// same. Unknown tags rank as dev and keep all their identifiers.
func classify(pre string) (Stability, []string) {
	if pre == "" {
		return Stable, nil
	}
	idents := strings.Split(pre, ".")
	word, num := splitWord(idents[0])
	s, ok := stabilityWords[strings.ToLower(word)]
	if !ok {
		return Dev, idents
	}
	rest := idents[1:]
	if num != "" {
		rest = append([]string{num}, rest...)
	}
	return s, rest
}

func splitWord(ident string) (word, rest string) {
	i := 0
	for i < len(ident) && isLetter(ident[i]) {
		i++
	}
	return ident[:i], strings.TrimLeft(ident[i:], "-")
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// String returns the version as it was written, without surrounding space.
func (v Version) String() string { return v.raw }

// IsZero reports whether v is the zero Version.
func (v Version) IsZero() bool { return v.sv == nil && len(v.segments) == 0 }

// Major returns the first release segment.
func (v Version) Major() uint64 { return v.segment(0) }

// Minor returns the second release segment.
func (v Version) Minor() uint64 { return v.segment(1) }

// Patch returns the third release segment.
func (v Version) Patch() uint64 { return v.segment(2) }

// Stability returns the stability implied by the pre-release suffix.
func (v Version) Stability() Stability { return v.stability }

// Metadata returns the build metadata, which never affects ordering.
func (v Version) Metadata() string {
	if v.sv == nil {
		return ""
	}
	return v.sv.Metadata()
}

// Segments returns a copy of the numeric release segments as written.
func (v Version) Segments() []uint64 {
	return append([]uint64(nil), v.segments...)
}

func (v Version) segment(i int) uint64 {
	if i < len(v.segments) {
		return v.segments[i]
	}
	return 0
}

// Compare orders v against o.
func (v Version) Compare(o Version) Comparison {
	return Compare(v, o)
}

// LessThan reports whether v sorts before o.
func (v Version) LessThan(o Version) bool { return Compare(v, o) == Less }

// GreaterThan reports whether v sorts after o.
func (v Version) GreaterThan(o Version) bool { return Compare(v, o) == Greater }

// Equal reports whether v and o have the same precedence. Build metadata and
// trailing zero segments are ignored.
func (v Version) Equal(o Version) bool { return Compare(v, o) == Equal }

// Compare orders a against b: release segments (zero padded), then
// stability, then the remaining pre-release identifiers.
func Compare(a, b Version) Comparison {
	n := len(a.segments)
	if len(b.segments) > n {
		n = len(b.segments)
	}
	for i := 0; i < n; i++ {
		x, y := a.segment(i), b.segment(i)
		if x < y {
			return Less
		}
		if x > y {
			return Greater
		}
	}

	if a.stability != b.stability {
		if a.stability < b.stability {
			return Less
		}
		return Greater
	}
	return compareIdents(a.pre, b.pre)
}

// compareIdents applies semantic versioning pre-release precedence: numeric
// identifiers compare numerically and sort before alphanumeric ones, and a
// shorter list sorts first when all shared identifiers are equal.
func compareIdents(a, b []string) Comparison {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareIdent(a[i], b[i]); c != Equal {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return Less
	case len(a) > len(b):
		return Greater
	}
	return Equal
}

func compareIdent(a, b string) Comparison {
	an, bn := isNumeric(a), isNumeric(b)
	switch {
	case an && bn:
		a, b = strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
		if len(a) != len(b) {
			if len(a) < len(b) {
				return Less
			}
			return Greater
		}
	case an:
		return Less
	case bn:
		return Greater
	}
	switch strings.Compare(a, b) {
	case -1:
		return Less
	case 1:
		return Greater
	}
	return Equal
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Max returns the greatest of vs. Among equal versions the last one wins so
// callers folding sources in order get a reproducible pick.
func Max(vs ...Version) (Version, bool) {
	if len(vs) == 0 {
		return Version{}, false
	}
	best := vs[0]
	for _, v := range vs[1:] {
		if Compare(v, best) != Less {
			best = v
		}
	}
	return best, true
}
