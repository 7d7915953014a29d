package storage

import (
	"fmt"
	"io"
	"strings"
	"time"

	"profilescout/pkg/models"
)

// ReportTitle heads the text and DOCX summaries
const ReportTitle = "LinkedIn Scraping Summary Report"

// reportSection is a titled block of summary lines shared by the text and DOCX reports
type reportSection struct {
	Title string
	Lines []string
}

func summarySections(s models.RunSummary) []reportSection {
	run := reportSection{Lines: []string{
		fmt.Sprintf("Queries Planned: %d", s.QueriesPlanned),
		fmt.Sprintf("Queries Executed: %d", s.QueriesExecuted),
		fmt.Sprintf("Queries Skipped: %d", s.QueriesSkipped),
		fmt.Sprintf("Candidates Seen: %d", s.CandidatesSeen),
		fmt.Sprintf("Missing Identity: %d", s.MissingIdentity),
		fmt.Sprintf("Rejected By Follower Filter: %d", s.RejectedByFollower),
		fmt.Sprintf("Duplicates Dropped: %d", s.DuplicatesDropped),
		fmt.Sprintf("Rejected By Quality Threshold: %d", s.RejectedByQuality),
		fmt.Sprintf("Accepted: %d", s.Accepted),
		fmt.Sprintf("Duration: %s", s.Duration.Round(time.Second)),
	}}
	if s.TerminatedEarly {
		run.Lines = append(run.Lines, fmt.Sprintf("Terminated Early: %s", s.TerminationReason))
	}

	sections := []reportSection{run}

	if len(s.Skipped) > 0 {
		skipped := reportSection{Title: "Skipped Queries:"}
		for _, sq := range s.Skipped {
			line := fmt.Sprintf("  %s %q: %s", sq.Query.Source, sq.Query.Term, sq.Reason)
			if sq.Detail != "" {
				line += " (" + sq.Detail + ")"
			}
			skipped.Lines = append(skipped.Lines, line)
		}
		sections = append(sections, skipped)
	}

	st := s.Stats
	sections = append(sections, reportSection{Lines: []string{
		fmt.Sprintf("Total Profiles Found: %d", s.Accepted),
		fmt.Sprintf("Unique Companies: %d", st.UniqueCompanies),
		fmt.Sprintf("Unique Locations: %d", st.UniqueLocations),
		fmt.Sprintf("Average Confidence Score: %.2f", st.AverageConfidence),
		fmt.Sprintf("Average Profile Completeness: %.2f", st.AverageCompleteness),
		fmt.Sprintf("Average Follower Count: %.0f", st.AverageFollowers),
	}})

	buckets := reportSection{Title: "Follower Count Distribution:"}
	for _, b := range st.FollowerBuckets {
		buckets.Lines = append(buckets.Lines, fmt.Sprintf("  %s: %d profiles", b.Label, b.Count))
	}
	sections = append(sections, buckets)

	keywords := reportSection{Title: "Keyword Distribution:"}
	for _, k := range st.KeywordCounts {
		keywords.Lines = append(keywords.Lines, fmt.Sprintf("  %s: %d profiles", k.Keyword, k.Count))
	}
	return append(sections, keywords)
}

// WriteSummary renders the plain-text run summary
func WriteSummary(w io.Writer, s models.RunSummary, generated time.Time) error {
	var b strings.Builder
	b.WriteString(ReportTitle + "\n")
	b.WriteString(strings.Repeat("=", 40) + "\n\n")
	fmt.Fprintf(&b, "Generated: %s\n", generated.Format("2006-01-02 15:04:05"))

	for _, section := range summarySections(s) {
		b.WriteString("\n")
		if section.Title != "" {
			b.WriteString(section.Title + "\n")
		}
		for _, line := range section.Lines {
			b.WriteString(line + "\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// SaveSummary writes the text summary to the named file atomically
func (m *Manager) SaveSummary(name string, s models.RunSummary, generated time.Time) error {
	return m.WriteFile(name, func(w io.Writer) error {
		return WriteSummary(w, s, generated)
	})
}
