// Package linkedin turns planned queries into raw search results.
//
// SearchURL and SearchTerm build the people-search address of a query,
// ParseSearchResults reads the result cards of a rendered page, and the two
// PageFetcher implementations deliver RawRecords to the discovery runner:
//
//	BrowserFetcher  headless Chrome over the DevTools protocol, using a stored
//	                li_at session cookie
//	FixtureFetcher  recorded result pages from a YAML file, for offline runs
//	                and tests
//
// Neither fetcher logs in, solves challenges or retries. A page that redirects
// to a login or checkpoint wall fails the query with ErrSessionRejected.
package linkedin
