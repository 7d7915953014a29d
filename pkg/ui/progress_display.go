package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"profilescout/pkg/discovery"
	"profilescout/pkg/models"
)

// ProgressDisplay renders the progress of a discovery run on one terminal line
type ProgressDisplay struct {
	mu       sync.Mutex
	out      io.Writer
	total    int
	budget   int
	requests int
	progress discovery.Progress
	isDebug  bool
}

// NewProgressDisplay creates a display for a plan of total queries and a request budget
func NewProgressDisplay(out io.Writer, total, budget int, debug bool) *ProgressDisplay {
	if out == nil {
		out = Out
	}
	return &ProgressDisplay{
		out:     out,
		total:   total,
		budget:  budget,
		isDebug: debug,
	}
}

// Update receives runner progress. It can be passed to discovery.WithProgress.
func (p *ProgressDisplay) Update(pr discovery.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pr.State == discovery.StateFetching {
		p.requests++
	}
	p.progress = pr

	if p.isDebug {
		if pr.State == discovery.StateFetching {
			fmt.Fprintf(p.out, "%s [%d/%d] %s %q\n", Magenta("→"), pr.QueryIndex+1, p.total, pr.Query.Source, pr.Query.Term)
		}
		return
	}
	p.printProgress()
}

// PacingWait notes a delay before the next request. It fits pacing.WithWaitObserver.
func (p *ProgressDisplay) PacingWait(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if d <= 0 {
		return
	}
	if p.isDebug {
		fmt.Fprintf(p.out, "%s waiting %s\n", Dim("…"), formatDuration(d))
		return
	}
	p.printLine(Dim(fmt.Sprintf("waiting %s before next search", formatDuration(d))))
}

// printProgress prints the progress line for the current state
func (p *ProgressDisplay) printProgress() {
	line := fmt.Sprintf("%s %s %s", Cyan(fmt.Sprintf("%-11s", p.progress.State)), p.bar(), p.counts())
	if p.progress.Query.Term != "" {
		line += fmt.Sprintf(" • %s", p.progress.Query.Term)
	}
	p.printLine(line)
}

func (p *ProgressDisplay) printLine(line string) {
	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", 100), line)
}

func (p *ProgressDisplay) bar() string {
	const width = 20
	done := p.progress.QueryIndex + 1
	if p.progress.State == discovery.StatePlanning || done < 0 {
		done = 0
	}
	filled := 0
	if p.total > 0 {
		filled = done * width / p.total
	}
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("━", filled) + strings.Repeat("─", width-filled) + "]"
}

func (p *ProgressDisplay) counts() string {
	done := p.progress.QueryIndex + 1
	if done < 0 {
		done = 0
	}
	s := fmt.Sprintf("%d/%d queries • %d accepted", done, p.total, p.progress.Accepted)
	if p.budget > 0 {
		s += fmt.Sprintf(" • %d/%d requests", p.requests, p.budget)
	}
	return s
}

// Complete prints the closing lines of a run
func (p *ProgressDisplay) Complete(s models.RunSummary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "\n\n%s %d profiles accepted from %d queries\n", Green("✓"), s.Accepted, s.QueriesExecuted)
	fmt.Fprintf(p.out, "  %s %d candidates seen in %s\n", Dim("•"), s.CandidatesSeen, formatDuration(s.Duration))

	rejected := s.MissingIdentity + s.RejectedByFollower + s.DuplicatesDropped + s.RejectedByQuality
	if rejected > 0 {
		fmt.Fprintf(p.out, "  %s %d dropped (%d follower band, %d duplicates, %d quality, %d no profile link)\n",
			Dim("•"), rejected, s.RejectedByFollower, s.DuplicatesDropped, s.RejectedByQuality, s.MissingIdentity)
	}
	if s.QueriesSkipped > 0 {
		fmt.Fprintf(p.out, "  %s %d queries skipped\n", Yellow("•"), s.QueriesSkipped)
	}
	if s.TerminatedEarly {
		fmt.Fprintf(p.out, "  %s stopped early: %s\n", Yellow("⚠"), s.TerminationReason)
	}
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
