package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gingfrederik/docx"

	"profilescout/pkg/models"
)

// WriteSummaryDOCX renders the run summary as a Word document at path
func WriteSummaryDOCX(path string, s models.RunSummary, generated time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f := docx.NewFile()

	title := f.AddParagraph().AddText(ReportTitle)
	title.Size(20)

	stamp := f.AddParagraph().AddText("Generated: " + generated.Format("2006-01-02 15:04:05"))
	stamp.Size(10)
	stamp.Color("808080")

	for _, section := range summarySections(s) {
		f.AddParagraph()
		if section.Title != "" {
			heading := f.AddParagraph().AddText(section.Title)
			heading.Size(14)
		}
		for _, line := range section.Lines {
			f.AddParagraph().AddText(strings.TrimSpace(line))
		}
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("failed to save summary document: %w", err)
	}
	return nil
}

// SaveSummaryDOCX writes the DOCX summary into the output directory
func (m *Manager) SaveSummaryDOCX(name string, s models.RunSummary, generated time.Time) error {
	return WriteSummaryDOCX(m.Path(name), s, generated)
}
