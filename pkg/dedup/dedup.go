// Package dedup collapses profiles that share an identity across queries and runs.
//
// The first profile offered for an identity is kept and every later one is dropped
// without merging fields: later occurrences are usually paginated repeats of the
// same search rather than fresher data.
package dedup

import (
	"net/url"
	"strings"
	"sync"

	"profilescout/pkg/models"
)

// canonicalHost is where LinkedIn serves profiles; bare and country hosts redirect here
const canonicalHost = "www.linkedin.com"

// Key returns the identity of a profile URL: https, lower-cased, without query
// string or fragment, without trailing slashes. linkedin.com and its subdomains map
// to www.linkedin.com; a leading "www." is dropped from any other host.
// ok is false when no identity can be derived.
func Key(rawURL string) (key string, ok bool) {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return "", false
	}
	if !strings.Contains(s, "://") {
		s = "https://" + strings.TrimPrefix(s, "//")
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return "", false
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if host == "linkedin.com" || strings.HasSuffix(host, ".linkedin.com") {
		host = canonicalHost
	}
	path := strings.TrimRight(u.EscapedPath(), "/")
	return "https://" + host + strings.ToLower(path), true
}

// Deduplicator owns the identity set of one run
type Deduplicator struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	seeded int
}

// New creates an empty Deduplicator
func New() *Deduplicator {
	return &Deduplicator{seen: make(map[string]struct{})}
}

// Seed marks identities from earlier runs as already seen. Entries that do not
// yield a key are ignored. Returns the number of new identities added.
func (d *Deduplicator) Seed(urls ...string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	added := 0
	for _, u := range urls {
		key, ok := Key(u)
		if !ok {
			continue
		}
		if _, dup := d.seen[key]; dup {
			continue
		}
		d.seen[key] = struct{}{}
		added++
	}
	d.seeded += added
	return added
}

// Offer admits p if its identity has not been seen. It returns true exactly once per
// identity; the caller keeps the admitted profile and drops the rest.
func (d *Deduplicator) Offer(p *models.Profile) bool {
	key, ok := Key(p.ProfileURL)
	if !ok {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, dup := d.seen[key]; dup {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// Len returns the number of identities known, seeded ones included
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// Seeded returns how many identities came from Seed
func (d *Deduplicator) Seeded() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seeded
}
