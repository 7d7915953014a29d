package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"profilescout/pkg/dedup"
	"profilescout/pkg/models"
)

// Columns is the exact header of the profile CSV
var Columns = []string{
	"name",
	"headline",
	"location",
	"profile_url",
	"company",
	"follower_count",
	"keyword_matched",
	"confidence_score",
	"profile_completeness",
	"scraped_date",
}

// Below this share of rows with a name or URL the file is flagged
const minFilledRatio = 0.9

// WriteCSV writes the header and one row per profile in the given order. Scores use
// four decimals so equal inputs always produce equal bytes.
func WriteCSV(w io.Writer, profiles []models.Profile) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, p := range profiles {
		followers := ""
		if p.FollowerCount != nil {
			followers = strconv.Itoa(*p.FollowerCount)
		}
		row := []string{
			p.Name,
			p.Headline,
			p.Location,
			p.ProfileURL,
			p.Company,
			followers,
			p.MatchedKeyword,
			strconv.FormatFloat(p.ConfidenceScore, 'f', 4, 64),
			strconv.FormatFloat(p.CompletenessScore, 'f', 4, 64),
			p.DiscoveredAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a profile CSV. Columns are matched by header name, so files with a
// different column order or extra columns still load. Empty numeric cells read as
// zero or, for follower_count, as unknown.
func ReadCSV(r io.Reader) ([]models.Profile, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	index := headerIndex(header)
	if _, ok := index["profile_url"]; !ok {
		return nil, fmt.Errorf("missing required column profile_url")
	}

	var profiles []models.Profile
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		cell := func(col string) string {
			if i, ok := index[col]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		p := models.Profile{
			Name:           cell("name"),
			Headline:       cell("headline"),
			Location:       cell("location"),
			ProfileURL:     cell("profile_url"),
			Company:        cell("company"),
			MatchedKeyword: cell("keyword_matched"),
		}
		if v := cell("follower_count"); v != "" {
			n, err := parseCount(v)
			if err != nil {
				return nil, fmt.Errorf("line %d: follower_count: %w", line, err)
			}
			p.FollowerCount = &n
		}
		if p.ConfidenceScore, err = parseScore(cell("confidence_score")); err != nil {
			return nil, fmt.Errorf("line %d: confidence_score: %w", line, err)
		}
		if p.CompletenessScore, err = parseScore(cell("profile_completeness")); err != nil {
			return nil, fmt.Errorf("line %d: profile_completeness: %w", line, err)
		}
		if v := cell("scraped_date"); v != "" {
			if p.DiscoveredAt, err = parseDate(v); err != nil {
				return nil, fmt.Errorf("line %d: scraped_date: %w", line, err)
			}
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// MergeProfiles appends fresh profiles to existing ones, existing rows first. A fresh
// profile whose identity is already present is dropped. Returns the merged list and
// the number of dropped profiles.
func MergeProfiles(existing, fresh []models.Profile) ([]models.Profile, int) {
	merged := make([]models.Profile, 0, len(existing)+len(fresh))
	seen := make(map[string]struct{}, len(existing)+len(fresh))
	dropped := 0

	add := func(p models.Profile) {
		if key, ok := dedup.Key(p.ProfileURL); ok {
			if _, dup := seen[key]; dup {
				dropped++
				return
			}
			seen[key] = struct{}{}
		}
		merged = append(merged, p)
	}
	for _, p := range existing {
		add(p)
	}
	for _, p := range fresh {
		add(p)
	}
	return merged, dropped
}

// SaveProfiles writes profiles to the named CSV atomically
func (m *Manager) SaveProfiles(name string, profiles []models.Profile) error {
	return m.WriteFile(name, func(w io.Writer) error {
		return WriteCSV(w, profiles)
	})
}

// LoadProfiles reads the named CSV. A missing file yields no profiles and no error.
func (m *Manager) LoadProfiles(name string) ([]models.Profile, error) {
	f, err := os.Open(m.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	profiles, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return profiles, nil
}

// ValidationReport describes the structure and fill rate of a profile CSV
type ValidationReport struct {
	Rows           int
	MissingColumns []string
	NamesPresent   int
	URLsPresent    int
	Warnings       []string
}

// Valid reports whether every required column is present
func (r *ValidationReport) Valid() bool {
	return len(r.MissingColumns) == 0
}

// ValidateCSV checks that all columns are present and warns when more than a tenth of
// the rows lack a name or a profile URL
func ValidateCSV(r io.Reader) (*ValidationReport, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	index := headerIndex(header)

	report := &ValidationReport{}
	for _, col := range Columns {
		if _, ok := index[col]; !ok {
			report.MissingColumns = append(report.MissingColumns, col)
		}
	}
	if !report.Valid() {
		return report, nil
	}

	filled := func(record []string, col string) bool {
		i := index[col]
		return i < len(record) && strings.TrimSpace(record[i]) != ""
	}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", report.Rows+1, err)
		}
		report.Rows++
		if filled(record, "name") {
			report.NamesPresent++
		}
		if filled(record, "profile_url") {
			report.URLsPresent++
		}
	}

	threshold := float64(report.Rows) * minFilledRatio
	if float64(report.NamesPresent) < threshold {
		report.Warnings = append(report.Warnings, "More than 10% of profiles have empty names")
	}
	if float64(report.URLsPresent) < threshold {
		report.Warnings = append(report.Warnings, "More than 10% of profiles have empty URLs")
	}
	return report, nil
}

func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}
	return index
}

// parseCount accepts plain integers and the float notation spreadsheets sometimes
// write back ("2500.0")
func parseCount(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func parseScore(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
