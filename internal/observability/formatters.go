// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/applypilot/internal/aggregation"
	"github.com/jonathan/applypilot/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintProfile outputs a human-readable summary of the cached profile.
func (p *Printer) PrintProfile(profile *types.Profile, completion int, resume *types.Resume) {
	var sb strings.Builder

	if profile == nil {
		sb.WriteString("No profile yet\n")
	} else {
		sb.WriteString(fmt.Sprintf("Name:      %s\n", profile.FullName))
		sb.WriteString(fmt.Sprintf("Title:     %s\n", profile.DesiredTitle))
		sb.WriteString(fmt.Sprintf("Location:  %s\n", profile.Location))
		sb.WriteString(fmt.Sprintf("Salary:    %d - %d\n", profile.SalaryMin, profile.SalaryMax))
		if profile.Skills != "" {
			skills := profile.Skills
			if len(skills) > 40 {
				skills = skills[:37] + "..."
			}
			sb.WriteString(fmt.Sprintf("Skills:    %s\n", skills))
		}
	}
	if resume != nil {
		sb.WriteString(fmt.Sprintf("Resume:    %s\n", resume.FileURL))
	} else {
		sb.WriteString("Resume:    none\n")
	}
	sb.WriteString(fmt.Sprintf("Complete:  %d%%", completion))

	p.printBox("PROFILE", sb.String())
}

// PrintDashboard outputs the dashboard summary counts.
func (p *Printer) PrintDashboard(summary aggregation.DashboardSummary) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Applications:  %d\n", summary.TotalApplications))
	sb.WriteString(fmt.Sprintf("  Submitted:   %d\n", summary.Submitted))
	sb.WriteString(fmt.Sprintf("  In progress: %d\n", summary.InProgress))
	sb.WriteString(fmt.Sprintf("  Drafts:      %d\n", summary.Drafts))
	sb.WriteString(fmt.Sprintf("Success rate:  %.0f%%\n", summary.SuccessRate*100))
	sb.WriteString(fmt.Sprintf("Wishlist:      %d", summary.WishlistCount))

	p.printBox("DASHBOARD", sb.String())
}

// PrintRecommendations outputs the top ranked job recommendations.
func (p *Printer) PrintRecommendations(recs []types.JobRecommendation) {
	if len(recs) == 0 {
		p.printBox("JOB RECOMMENDATIONS", "No recommendations yet")
		return
	}

	var sb strings.Builder
	count := min(len(recs), maxItemsToShow)
	for i := 0; i < count; i++ {
		rec := recs[i]
		sb.WriteString(fmt.Sprintf("#%d  %s\n", rec.Rank, rec.Job.Title))
		sb.WriteString(fmt.Sprintf("    %s — %s\n", rec.Job.Company, rec.Job.Location))
		sb.WriteString(fmt.Sprintf("    Score: %.2f", rec.Score))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}
	if len(recs) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more", len(recs)-maxItemsToShow))
	}

	p.printBox("JOB RECOMMENDATIONS", sb.String())
}
