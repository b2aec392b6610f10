package output

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sambabib/versions-check/pkg/analyzer"
)

// SARIF format specification: https://docs.oasis-open.org/sarif/sarif/v2.1.0/sarif-v2.1.0.html

// SarifReport represents the top-level SARIF report structure
type SarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []SarifRun `json:"runs"`
}

// SarifRun represents a single run of the analysis tool
type SarifRun struct {
	Tool        SarifTool         `json:"tool"`
	Results     []SarifResult     `json:"results"`
	Invocations []SarifInvocation `json:"invocations"`
}

// SarifTool represents the tool that performed the analysis
type SarifTool struct {
	Driver SarifDriver `json:"driver"`
}

// SarifDriver represents the driver of the tool
type SarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []SarifRule `json:"rules"`
}

// SarifRule represents a rule that was evaluated during the analysis
type SarifRule struct {
	ID               string       `json:"id"`
	ShortDescription SarifMessage `json:"shortDescription"`
	FullDescription  SarifMessage `json:"fullDescription"`
	Help             SarifMessage `json:"help"`
}

// SarifResult represents a result of the analysis
type SarifResult struct {
	RuleID     string            `json:"ruleId"`
	Level      string            `json:"level"`
	Message    SarifMessage      `json:"message"`
	Locations  []SarifLocation   `json:"locations"`
	Properties map[string]string `json:"properties,omitempty"`
}

// SarifMessage represents a message in the SARIF report
type SarifMessage struct {
	Text string `json:"text"`
}

// SarifLocation represents a location in the code
type SarifLocation struct {
	PhysicalLocation SarifPhysicalLocation `json:"physicalLocation"`
}

// SarifPhysicalLocation represents a physical location in the code
type SarifPhysicalLocation struct {
	ArtifactLocation SarifArtifactLocation `json:"artifactLocation"`
}

// SarifArtifactLocation represents the location of an artifact
type SarifArtifactLocation struct {
	URI string `json:"uri"`
}

// SarifInvocation represents an invocation of the tool
type SarifInvocation struct {
	ExecutionSuccessful bool   `json:"executionSuccessful"`
	StartTimeUtc        string `json:"startTimeUtc"`
	EndTimeUtc          string `json:"endTimeUtc"`
}

// SarifOptions describes where findings point and how severe they are.
type SarifOptions struct {
	Ecosystem    string
	ManifestPath string // reported as the location of every finding
	ToolVersion  string
	// Severity maps an update type to "error", "warning" or "info".
	// Nil uses error for major, warning for minor and info otherwise.
	Severity func(update string) string
}

var sarifRules = []SarifRule{
	{
		ID:               "outdated-major",
		ShortDescription: SarifMessage{Text: "Major version update available"},
		FullDescription:  SarifMessage{Text: "The declared constraint allows a newer major version than the one installed."},
		Help:             SarifMessage{Text: "Update the lock file and review the changelog for breaking changes."},
	},
	{
		ID:               "outdated-minor",
		ShortDescription: SarifMessage{Text: "Minor version update available"},
		FullDescription:  SarifMessage{Text: "The declared constraint allows a newer minor version than the one installed."},
		Help:             SarifMessage{Text: "Update the lock file to get new features."},
	},
	{
		ID:               "outdated-patch",
		ShortDescription: SarifMessage{Text: "Patch update available"},
		FullDescription:  SarifMessage{Text: "The declared constraint allows a newer patch release than the one installed."},
		Help:             SarifMessage{Text: "Update the lock file to get bug fixes."},
	},
	{
		ID:               "outdated-prerelease",
		ShortDescription: SarifMessage{Text: "Newer pre-release or final release available"},
		FullDescription:  SarifMessage{Text: "A more stable build of the installed version is allowed by the declared constraint."},
		Help:             SarifMessage{Text: "Update the lock file to move to the more stable build."},
	},
	{
		ID:               "constraint-held",
		ShortDescription: SarifMessage{Text: "Constraint holds the package back"},
		FullDescription:  SarifMessage{Text: "The installed version is the newest the constraint allows, but newer versions exist."},
		Help:             SarifMessage{Text: "Consider widening the constraint."},
	},
}

func defaultSeverity(update string) string {
	switch update {
	case string(analyzer.UpdateMajor):
		return "error"
	case string(analyzer.UpdateMinor):
		return "warning"
	default:
		return "info"
	}
}

// sarifLevel converts a configured severity to a SARIF level.
func sarifLevel(severity string) string {
	switch severity {
	case "error", "warning", "none":
		return severity
	default:
		return "note"
	}
}

// GenerateSarifReport converts a detection result to SARIF format
func GenerateSarifReport(result *analyzer.Result, opts SarifOptions) ([]byte, error) {
	severity := opts.Severity
	if severity == nil {
		severity = defaultSeverity
	}
	location := []SarifLocation{{
		PhysicalLocation: SarifPhysicalLocation{
			ArtifactLocation: SarifArtifactLocation{URI: opts.ManifestPath},
		},
	}}

	results := []SarifResult{}
	if result != nil {
		for _, p := range result.Outdated {
			ruleID := "outdated-" + string(p.Update)
			if p.Update == analyzer.UpdatePreRelease {
				ruleID = "outdated-prerelease"
			}
			props := map[string]string{"installed": p.Installed, "latest": p.Latest, "constraint": p.Constraint}
			if purl := PackageURL(opts.Ecosystem, p.Name, p.Latest); purl != "" {
				props["purl"] = purl
			}
			results = append(results, SarifResult{
				RuleID:     ruleID,
				Level:      sarifLevel(severity(string(p.Update))),
				Message:    SarifMessage{Text: fmt.Sprintf("%s: installed %s, %s allows %s", p.Name, p.Installed, p.Constraint, p.Latest)},
				Locations:  location,
				Properties: props,
			})
		}
		for _, h := range result.Held {
			results = append(results, SarifResult{
				RuleID:    "constraint-held",
				Level:     "note",
				Message:   SarifMessage{Text: fmt.Sprintf("%s: %s keeps %s installed, %s is available", h.Name, h.Constraint, h.Installed, h.Newest)},
				Locations: location,
			})
		}
	}

	toolVersion := opts.ToolVersion
	if toolVersion == "" {
		toolVersion = "dev"
	}

	now := time.Now().UTC()
	report := SarifReport{
		Schema:  "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json",
		Version: "2.1.0",
		Runs: []SarifRun{
			{
				Tool: SarifTool{
					Driver: SarifDriver{
						Name:           "versions-check",
						Version:        toolVersion,
						InformationURI: "https://github.com/sambabib/versions-check",
						Rules:          sarifRules,
					},
				},
				Results: results,
				Invocations: []SarifInvocation{
					{
						ExecutionSuccessful: true,
						StartTimeUtc:        now.Add(-time.Second).Format(time.RFC3339),
						EndTimeUtc:          now.Format(time.RFC3339),
					},
				},
			},
		},
	}

	return json.MarshalIndent(report, "", "  ")
}
