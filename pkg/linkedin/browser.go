package linkedin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"profilescout/pkg/auth"
	"profilescout/pkg/config"
	"profilescout/pkg/logger"
	"profilescout/pkg/models"
)

// ErrSessionRejected means LinkedIn answered with a login or checkpoint wall
var ErrSessionRejected = errors.New("linkedin session rejected, store a fresh li_at cookie")

// resultsWait bounds the wait for the results container. An empty search
// never renders it.
const resultsWait = 10 * time.Second

var wallPaths = []string{"/login", "/authwall", "/checkpoint", "/uas/"}

// BrowserFetcher renders search pages in headless Chrome with the session
// cookies of one account. The browser starts on the first Fetch and is reused
// until Close; every Fetch opens its own tab.
type BrowserFetcher struct {
	cfg     config.BrowserConfig
	account *auth.Account
	logger  logger.Logger

	mu            sync.Mutex
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

// NewBrowserFetcher creates a fetcher. The account must carry an li_at cookie.
func NewBrowserFetcher(cfg config.BrowserConfig, account *auth.Account, log logger.Logger) (*BrowserFetcher, error) {
	if account == nil || account.LiAt == "" {
		return nil, fmt.Errorf("%w: no li_at cookie", auth.ErrInvalidCredentials)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &BrowserFetcher{cfg: cfg, account: account, logger: log.WithField("component", "browser")}, nil
}

// allocatorOptions returns the Chrome flags for cfg
func allocatorOptions(cfg config.BrowserConfig, account *auth.Account) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1366, 900),
	)

	ua := cfg.UserAgent
	if account != nil && account.UserAgent != "" {
		ua = account.UserAgent
	}
	if ua != "" {
		opts = append(opts, chromedp.UserAgent(ua))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// start launches the browser and installs the session cookies once
func (b *BrowserFetcher) start() (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx != nil {
		return b.browserCtx, nil
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocatorOptions(b.cfg, b.account)...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Printf(b.logger)))

	err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range b.account.Cookies() {
			err := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath("/").
				WithSecure(true).
				WithHTTPOnly(c.Name == auth.CookieLiAt).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	}))
	if err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	b.browserCtx, b.cancelBrowser, b.cancelAlloc = browserCtx, cancelBrowser, cancelAlloc
	b.logger.InfoWithFields("Browser started", map[string]interface{}{
		"headless": b.cfg.Headless,
		"account":  b.account.Name,
	})
	return browserCtx, nil
}

// Fetch renders the first result page of q and parses its cards
func (b *BrowserFetcher) Fetch(ctx context.Context, q models.Query) ([]models.RawRecord, error) {
	browserCtx, err := b.start()
	if err != nil {
		return nil, err
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.cfg.PageTimeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	searchURL := SearchURL(SearchTerm(q), 1)
	var location string
	err = chromedp.Run(tabCtx,
		chromedp.Navigate(searchURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&location),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", searchURL, err)
	}
	if onWall(location) {
		return nil, fmt.Errorf("%w (redirected to %s)", ErrSessionRejected, location)
	}

	waitCtx, cancelWait := context.WithTimeout(tabCtx, resultsWait)
	err = chromedp.Run(waitCtx, chromedp.WaitReady(SelectorResultsContainer, chromedp.ByQuery))
	cancelWait()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			b.logger.DebugWithFields("No results container", map[string]interface{}{"query": q.Term})
			return nil, nil
		}
		return nil, fmt.Errorf("failed waiting for results: %w", err)
	}

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}

	return ParseSearchResults(strings.NewReader(html), b.cfg.MaxResultsPerPage)
}

// Close shuts the browser down
func (b *BrowserFetcher) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx == nil {
		return nil
	}
	b.cancelBrowser()
	b.cancelAlloc()
	b.browserCtx = nil
	return nil
}

func onWall(location string) bool {
	for _, p := range wallPaths {
		if strings.Contains(location, p) {
			return true
		}
	}
	return false
}
