package output

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/sambabib/versions-check/pkg/analyzer"
)

// UpToDateMessage is the whole report when nothing is outdated.
const UpToDateMessage = "All packages are up to date.\n"

// Styles decorates parts of the text report. Nil fields leave text as is.
type Styles struct {
	Header  func(string) string
	Name    func(string) string
	Version func(string) string
	Latest  func(string) string
	Link    func(string) string
}

// ColorStyles returns terminal colors for the text report.
func ColorStyles() Styles {
	header := lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	name := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	ver := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	latest := lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	link := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	return Styles{
		Header:  func(s string) string { return header.Render(s) },
		Name:    func(s string) string { return name.Render(s) },
		Version: func(s string) string { return ver.Render(s) },
		Latest:  func(s string) string { return latest.Render(s) },
		Link:    func(s string) string { return link.Render(s) },
	}
}

func apply(fn func(string) string, s string) string {
	if fn == nil {
		return s
	}
	return fn(s)
}

// TextFormatter renders outdated packages as a human-readable report.
type TextFormatter struct {
	ShowLinks bool
	Styles    Styles
}

// Format renders the canonical plain report. Packages are listed by name;
// with showLinks each one is followed by its link and the packages that
// require it, when known.
func Format(results []analyzer.OutdatedPackage, showLinks bool) string {
	return TextFormatter{ShowLinks: showLinks}.Format(results)
}

func (f TextFormatter) Format(results []analyzer.OutdatedPackage) string {
	if len(results) == 0 {
		return UpToDateMessage
	}

	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b analyzer.OutdatedPackage) int { return strings.Compare(a.Name, b.Name) })

	width := 0
	for _, p := range sorted {
		width = max(width, runewidth.StringWidth(p.Name))
	}

	var b strings.Builder
	header := fmt.Sprintf("%d packages are not up to date:", len(sorted))
	if len(sorted) == 1 {
		header = "1 package is not up to date:"
	}
	b.WriteString(apply(f.Styles.Header, header))
	b.WriteString("\n\n")

	for _, p := range sorted {
		pad := strings.Repeat(" ", width-runewidth.StringWidth(p.Name))
		fmt.Fprintf(&b, "  - %s%s  %s -> %s  (%s)\n",
			apply(f.Styles.Name, p.Name),
			pad,
			apply(f.Styles.Version, p.Installed),
			apply(f.Styles.Latest, p.Latest),
			p.Constraint,
		)

		if !f.ShowLinks {
			continue
		}
		if p.Link != "" {
			fmt.Fprintf(&b, "    %s\n", apply(f.Styles.Link, p.Link))
		}
		for _, d := range p.Dependents {
			fmt.Fprintf(&b, "    Required by %s (%s)\n", d.Name, d.Constraint)
		}
	}
	return b.String()
}
