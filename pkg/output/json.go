package output

import (
	"encoding/json"
	"strings"

	"github.com/package-url/packageurl-go"

	"github.com/sambabib/versions-check/pkg/analyzer"
)

// JSONReport is the machine-readable form of a detection result.
type JSONReport struct {
	Ecosystem string                 `json:"ecosystem"`
	Outdated  []JSONPackage          `json:"outdated"`
	Held      []analyzer.HeldPackage `json:"held,omitempty"`
	Skipped   []analyzer.Skipped     `json:"skipped,omitempty"`
	Warnings  []string               `json:"warnings,omitempty"`
}

// JSONPackage is an outdated package with its package URL.
type JSONPackage struct {
	analyzer.OutdatedPackage
	PURL string `json:"purl,omitempty"`
}

// GenerateJSONReport converts a detection result to JSON
func GenerateJSONReport(ecosystem string, result *analyzer.Result) ([]byte, error) {
	report := JSONReport{Ecosystem: ecosystem, Outdated: []JSONPackage{}}
	if result != nil {
		for _, p := range result.Outdated {
			report.Outdated = append(report.Outdated, JSONPackage{
				OutdatedPackage: p,
				PURL:            PackageURL(ecosystem, p.Name, p.Latest),
			})
		}
		report.Held = result.Held
		report.Skipped = result.Skipped
		report.Warnings = result.Warnings
	}
	return json.MarshalIndent(report, "", "  ")
}

// PackageURL builds the purl of a package version, e.g.
// pkg:composer/acme/tools@1.2.0. Unknown ecosystems yield "".
func PackageURL(ecosystem, name, version string) string {
	if ecosystem != "composer" && ecosystem != "npm" {
		return ""
	}
	namespace := ""
	if i := strings.LastIndex(name, "/"); i >= 0 {
		namespace, name = name[:i], name[i+1:]
	}
	purl := packageurl.PackageURL{
		Type:      ecosystem,
		Namespace: namespace,
		Name:      name,
		Version:   version,
	}
	return purl.ToString()
}
