package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all" // register every browser cookie store
)

const linkedInDomain = "linkedin.com"

// CookieReader reads the cookies of the local browser profiles
type CookieReader func(ctx context.Context, filters ...kooky.Filter) ([]*kooky.Cookie, error)

// BrowserCookieSource imports an existing LinkedIn session from the cookie
// stores of locally installed browsers
type BrowserCookieSource struct {
	read CookieReader
}

// NewBrowserCookieSource reads through kooky's browser detection
func NewBrowserCookieSource() *BrowserCookieSource {
	return &BrowserCookieSource{read: kooky.ReadCookies}
}

// NewBrowserCookieSourceWith uses a custom reader
func NewBrowserCookieSourceWith(read CookieReader) *BrowserCookieSource {
	return &BrowserCookieSource{read: read}
}

// Account builds an account named name from the longest-lived li_at and
// JSESSIONID cookies found
func (s *BrowserCookieSource) Account(ctx context.Context, name string) (*Account, error) {
	cookies, err := s.read(ctx, kooky.Valid, kooky.DomainHasSuffix(linkedInDomain))
	if err != nil && len(cookies) == 0 {
		return nil, fmt.Errorf("failed to read browser cookies: %w", err)
	}

	session := freshest(cookies, CookieLiAt)
	if session == nil {
		return nil, fmt.Errorf("%w: no li_at cookie in any browser profile", ErrCredentialsNotFound)
	}

	account := &Account{Name: name, LiAt: session.Value, LastModified: time.Now()}
	if jsession := freshest(cookies, CookieJSessionID); jsession != nil {
		account.JSessionID = jsession.Value
	}
	return account, nil
}

func freshest(cookies []*kooky.Cookie, name string) *kooky.Cookie {
	var best *kooky.Cookie
	for _, c := range cookies {
		if c == nil || c.Name != name || c.Value == "" {
			continue
		}
		if best == nil || c.Expires.After(best.Expires) {
			best = c
		}
	}
	return best
}
