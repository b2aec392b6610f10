package version

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Constraint is a predicate over versions built from ranges, exact matches
// and their AND/OR combinations.
//
// Operands written without a stability suffix follow composer conventions:
// ">=V" and "<V" bound at the lowest pre-release of V, so "^1.0" admits
// "1.0.0-beta" and excludes "2.0.0-RC1". Stability policy is left to callers.
type Constraint struct {
	raw     string
	dialect Dialect
	root    node
	flag    Stability
	hasFlag bool
}

// Dialect selects the range rules that differ between ecosystems.
type Dialect int

const (
	// DialectComposer reads "~1.2" as ">=1.2 <2.0".
	DialectComposer Dialect = iota
	// DialectNpm reads "~1.2" as ">=1.2.0 <1.3.0".
	DialectNpm
)

type node interface {
	check(v Version) bool
}

type anyNode struct{}

func (anyNode) check(Version) bool { return true }

type exactNode struct {
	v      Version
	negate bool
}

func (n exactNode) check(v Version) bool {
	eq := Compare(v, n.v) == Equal
	return eq != n.negate
}

type bound struct {
	v         Version
	inclusive bool
}

type rangeNode struct {
	lower *bound
	upper *bound
}

func (n rangeNode) check(v Version) bool {
	if n.lower != nil {
		c := Compare(v, n.lower.v)
		if c == Less || (c == Equal && !n.lower.inclusive) {
			return false
		}
	}
	if n.upper != nil {
		c := Compare(v, n.upper.v)
		if c == Greater || (c == Equal && !n.upper.inclusive) {
			return false
		}
	}
	return true
}

type andNode []node

func (n andNode) check(v Version) bool {
	for _, c := range n {
		if !c.check(v) {
			return false
		}
	}
	return true
}

type orNode []node

func (n orNode) check(v Version) bool {
	for _, c := range n {
		if c.check(v) {
			return true
		}
	}
	return false
}

var (
	orSplit      = regexp.MustCompile(`\s*\|\|?\s*`)
	andSplit     = regexp.MustCompile(`\s*,\s*|\s+`)
	hyphenRange  = regexp.MustCompile(`^(\S+)\s+-\s+(\S+)$`)
	operatorGap  = regexp.MustCompile(`(>=|<=|!=|==|<>|>|<|=|\^|~)\s+`)
	stabilityTag = regexp.MustCompile(`@([A-Za-z]+)$`)
)

// operators, longest first so ">=" wins over ">".
var operators = []string{">=", "<=", "!=", "==", "<>", ">", "<", "=", "^", "~"}

// ParseConstraint builds a Constraint from composer/npm style syntax:
// "^1.2", "~1.2.3", ">=1.0,<2.0", ">=1.0 <2.0", "1.0 || 2.0", "1.2.*",
// "1.0 - 2.0", "!=1.5", "*", with optional "@beta" stability flags.
// Tilde ranges follow composer; see ParseConstraintFor.
func ParseConstraint(raw string) (*Constraint, error) {
	return ParseConstraintFor(raw, DialectComposer)
}

// ParseConstraintFor is ParseConstraint with the given dialect's tilde rule.
func ParseConstraintFor(raw string, d Dialect) (*Constraint, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, newParseError(KindConstraint, raw, "empty constraint", nil)
	}
	c := &Constraint{raw: s, dialect: d}

	var alternatives []node
	for _, part := range orSplit.Split(s, -1) {
		if part == "" {
			return nil, newParseError(KindConstraint, raw, "empty alternative", nil)
		}
		n, err := c.parseConjunction(part)
		if err != nil {
			return nil, newParseError(KindConstraint, raw, err.Error(), err)
		}
		alternatives = append(alternatives, n)
	}
	if len(alternatives) == 1 {
		c.root = alternatives[0]
	} else {
		c.root = orNode(alternatives)
	}
	return c, nil
}

// MustParseConstraint is like ParseConstraint but panics on error.
func MustParseConstraint(raw string) *Constraint {
	c, err := ParseConstraint(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// Check reports whether v satisfies c.
func (c *Constraint) Check(v Version) bool {
	return c.root.check(v)
}

// String returns the constraint as written.
func (c *Constraint) String() string { return c.raw }

// StabilityFlag returns the lowest stability named by an "@flag" suffix.
func (c *Constraint) StabilityFlag() (Stability, bool) {
	return c.flag, c.hasFlag
}

// Satisfies reports whether v satisfies c.
func Satisfies(v Version, c *Constraint) bool {
	return c.Check(v)
}

func (c *Constraint) parseConjunction(part string) (node, error) {
	if m := hyphenRange.FindStringSubmatch(part); m != nil {
		return parseHyphen(m[1], m[2])
	}

	part = operatorGap.ReplaceAllString(part, "$1")
	var terms []node
	for _, tok := range andSplit.Split(part, -1) {
		if tok == "" {
			return nil, fmt.Errorf("empty term")
		}
		n, err := c.parseTerm(tok)
		if err != nil {
			return nil, err
		}
		terms = append(terms, n)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return andNode(terms), nil
}

func (c *Constraint) parseTerm(tok string) (node, error) {
	if m := stabilityTag.FindStringSubmatch(tok); m != nil {
		s, err := ParseStability(m[1])
		if err != nil {
			return nil, err
		}
		if !c.hasFlag || s < c.flag {
			c.flag, c.hasFlag = s, true
		}
		tok = strings.TrimSuffix(tok, m[0])
		if tok == "" {
			return anyNode{}, nil
		}
	}

	if isWildcard(tok) {
		return anyNode{}, nil
	}

	op, operand := splitOperator(tok)
	if operand == "" {
		return nil, fmt.Errorf("missing version after %q", op)
	}
	if strings.ContainsAny(operand[:1], "<>=!^~|@") {
		return nil, fmt.Errorf("malformed operator in %q", tok)
	}

	if segs, ok := wildcardSegments(operand); ok {
		if op != "" && op != "=" && op != "==" {
			return nil, fmt.Errorf("wildcard %q cannot follow %q", operand, op)
		}
		return wildcardRange(segs)
	}

	v, err := Parse(operand)
	if err != nil {
		return nil, err
	}

	switch op {
	case "", "=", "==":
		return exactNode{v: v}, nil
	case "!=", "<>":
		return exactNode{v: v, negate: true}, nil
	case ">=":
		return rangeNode{lower: &bound{v: floorIfStable(v), inclusive: true}}, nil
	case ">":
		return rangeNode{lower: &bound{v: v}}, nil
	case "<":
		return rangeNode{upper: &bound{v: floorIfStable(v)}}, nil
	case "<=":
		return rangeNode{upper: &bound{v: v, inclusive: true}}, nil
	case "^":
		return caretRange(v), nil
	case "~":
		return tildeRange(v, c.dialect), nil
	}
	return nil, fmt.Errorf("unsupported operator %q", op)
}

func splitOperator(tok string) (op, operand string) {
	for _, o := range operators {
		if strings.HasPrefix(tok, o) {
			return o, tok[len(o):]
		}
	}
	return "", tok
}

func isWildcard(s string) bool {
	return s == "*" || s == "x" || s == "X"
}

// wildcardSegments recognizes "1.*", "1.2.x" and returns the numeric
// segments before the first wildcard.
func wildcardSegments(s string) ([]uint64, bool) {
	parts := strings.Split(strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V"), ".")
	var segs []uint64
	for i, p := range parts {
		if isWildcard(p) {
			for _, q := range parts[i+1:] {
				if !isWildcard(q) {
					return nil, false
				}
			}
			return segs, len(segs) > 0
		}
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, false
		}
		segs = append(segs, n)
	}
	return nil, false
}

func wildcardRange(segs []uint64) (node, error) {
	return rangeNode{
		lower: &bound{v: floor(segs), inclusive: true},
		upper: upperBound(segs, len(segs)-1),
	}, nil
}

// caretRange allows changes that do not modify the left-most non-zero
// segment: ^1.2.3 := >=1.2.3 <2.0.0, ^0.3 := >=0.3 <0.4, ^0.0.3 := >=0.0.3 <0.0.4.
func caretRange(v Version) node {
	segs := v.segments
	pos := 2
	switch {
	case segs[0] != 0 || len(segs) == 1:
		pos = 0
	case segs[1] != 0 || len(segs) == 2:
		pos = 1
	}
	return rangeNode{
		lower: &bound{v: floorIfStable(v), inclusive: true},
		upper: upperBound(segs, pos),
	}
}

// tildeRange lets the last written segment move in composer: ~1.2 :=
// >=1.2 <2.0, ~1.2.3 := >=1.2.3 <1.3.0. npm only lets the patch move once
// a minor is given: ~1.2 := >=1.2.0 <1.3.0, ~1 := >=1.0.0 <2.0.0.
func tildeRange(v Version, d Dialect) node {
	segs := v.segments
	pos := len(segs) - 2
	if d == DialectNpm {
		pos = min(1, len(segs)-1)
	}
	if pos < 0 {
		pos = 0
	}
	return rangeNode{
		lower: &bound{v: floorIfStable(v), inclusive: true},
		upper: upperBound(segs, pos),
	}
}

func parseHyphen(from, to string) (node, error) {
	lo, err := Parse(from)
	if err != nil {
		return nil, err
	}
	hi, err := Parse(to)
	if err != nil {
		return nil, err
	}
	upper := &bound{v: hi, inclusive: true}
	if len(hi.segments) < 3 {
		upper = upperBound(hi.segments, len(hi.segments)-1)
	}
	return rangeNode{lower: &bound{v: floorIfStable(lo), inclusive: true}, upper: upper}, nil
}

// floor is the lowest version carrying the given release segments.
func floor(segs []uint64) Version {
	strs := make([]string, len(segs))
	for i, s := range segs {
		strs[i] = strconv.FormatUint(s, 10)
	}
	return MustParse(strings.Join(strs, ".") + "-dev")
}

func floorIfStable(v Version) Version {
	if v.stability == Stable && len(v.pre) == 0 {
		return floor(v.segments)
	}
	return v
}

// upperBound is the exclusive bound reached by bumping segs[pos]. A segment
// already at its maximum carries into the one before it; with nothing left
// to bump the range stays open above.
func upperBound(segs []uint64, pos int) *bound {
	for pos >= 0 && segs[pos] == math.MaxUint64 {
		pos--
	}
	if pos < 0 {
		return nil
	}
	return &bound{v: floor(bump(segs, pos))}
}

// bump increments segs[pos] and drops everything after it.
func bump(segs []uint64, pos int) []uint64 {
	out := append([]uint64(nil), segs[:pos+1]...)
	out[pos]++
	return out
}
