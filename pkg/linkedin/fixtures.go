package linkedin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"profilescout/pkg/models"
)

// FixtureFile is the YAML layout read by LoadFixtures
type FixtureFile struct {
	Pages []FixturePage `yaml:"pages"`
}

// FixturePage is the recorded answer to one query. HTML is a saved search page,
// relative to the fixture file; Records are given inline; Error fails the fetch.
type FixturePage struct {
	Term    string             `yaml:"term"`
	Source  models.QuerySource `yaml:"source"`
	HTML    string             `yaml:"html,omitempty"`
	Records []models.RawRecord `yaml:"records,omitempty"`
	Error   string             `yaml:"error,omitempty"`
}

// FixtureFetcher answers queries from recorded pages. Queries without a page
// return no results.
type FixtureFetcher struct {
	pages map[string]FixturePage
	dir   string
	limit int
}

// LoadFixtures reads a fixture file. limit caps the cards parsed per HTML page.
func LoadFixtures(path string, limit int) (*FixtureFetcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}

	var file FixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures %s: %w", path, err)
	}
	return NewFixtureFetcher(file, filepath.Dir(path), limit)
}

// NewFixtureFetcher builds a fetcher over pages. HTML paths are resolved against dir.
func NewFixtureFetcher(file FixtureFile, dir string, limit int) (*FixtureFetcher, error) {
	f := &FixtureFetcher{pages: make(map[string]FixturePage, len(file.Pages)), dir: dir, limit: limit}
	for i, p := range file.Pages {
		if p.Term == "" {
			return nil, fmt.Errorf("fixture page %d: term is required", i)
		}
		if p.Source == "" {
			p.Source = models.SourceKeyword
		}
		q := models.Query{Term: p.Term, Source: p.Source}
		if _, dup := f.pages[q.Key()]; dup {
			return nil, fmt.Errorf("fixture page %d: duplicate query %s", i, q.Key())
		}
		f.pages[q.Key()] = p
	}
	return f, nil
}

// Fetch returns the recorded results of q
func (f *FixtureFetcher) Fetch(ctx context.Context, q models.Query) ([]models.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, ok := f.pages[q.Key()]
	if !ok {
		return nil, nil
	}
	if page.Error != "" {
		return nil, errors.New(page.Error)
	}

	if page.HTML != "" {
		path := page.HTML
		if !filepath.IsAbs(path) {
			path = filepath.Join(f.dir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read fixture page: %w", err)
		}
		return ParseSearchResults(bytes.NewReader(data), f.limit)
	}

	records := make([]models.RawRecord, 0, len(page.Records))
	for _, r := range page.Records {
		if f.limit > 0 && len(records) >= f.limit {
			break
		}
		cp := make(models.RawRecord, len(r))
		for k, v := range r {
			cp[k] = v
		}
		records = append(records, cp)
	}
	return records, nil
}
