package version

import (
	"fmt"
	"strings"
)

// Stability ranks how mature a release is. Higher is more stable.
type Stability int

const (
	Dev Stability = iota
	Alpha
	Beta
	RC
	Stable
)

var stabilityWords = map[string]Stability{
	"dev":    Dev,
	"alpha":  Alpha,
	"a":      Alpha,
	"beta":   Beta,
	"b":      Beta,
	"rc":     RC,
	"stable": Stable,
	// patch releases rank above the plain release they follow
	"patch": Stable,
	"pl":    Stable,
	"p":     Stable,
}

func (s Stability) String() string {
	switch s {
	case Dev:
		return "dev"
	case Alpha:
		return "alpha"
	case Beta:
		return "beta"
	case RC:
		return "RC"
	case Stable:
		return "stable"
	default:
		return fmt.Sprintf("Stability(%d)", int(s))
	}
}

// ParseStability accepts the stability names used by minimum-stability
// settings and "@flag" constraint suffixes, case-insensitively.
func ParseStability(name string) (Stability, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "dev":
		return Dev, nil
	case "alpha":
		return Alpha, nil
	case "beta":
		return Beta, nil
	case "rc":
		return RC, nil
	case "stable":
		return Stable, nil
	}
	return Dev, fmt.Errorf("unknown stability %q", name)
}
