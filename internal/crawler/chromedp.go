package crawler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

// settleDelay is how long Chrome is given after DOMContentLoaded for
// any remaining JavaScript to finish rendering.
const settleDelay = 1 * time.Second

// navTimeout bounds a single navigation attempt.
const navTimeout = 30 * time.Second

// ChromeDP renders pages with a single persistent headless browser
// context. The job runner serializes crawl jobs one at a time, so a
// pool of browser instances would sit idle; one browser reused across
// fetches is the right scale here.
type ChromeDP struct {
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	logger        arbor.ILogger

	// limiter guards navigation concurrency: JobRunner already
	// processes crawl items one at a time, but the HTTP server and CLI
	// can both call Fetch directly outside a job, so the browser
	// itself still needs to cap how fast consecutive navigations fire.
	limiter *rate.Limiter
}

func NewChromeDP(logger arbor.ILogger) (*ChromeDP, error) {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	testCtx, testCancel := context.WithTimeout(browserCtx, navTimeout)
	defer testCancel()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start headless browser: %w", err)
	}

	return &ChromeDP{
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		logger:        logger,
		limiter:       rate.NewLimiter(rate.Every(time.Second), 1),
	}, nil
}

func (c *ChromeDP) Close() error {
	c.browserCancel()
	c.allocCancel()
	return nil
}

// Fetch renders url, falling back to the plain-HTTP variant once if
// the HTTPS attempt fails entirely, then extracts content and links
// from the rendered HTML.
func (c *ChromeDP) Fetch(ctx context.Context, url string, maxLinks int) (FetchResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return FetchResult{}, err
	}

	attempts := []string{url}
	if strings.HasPrefix(url, "https://") {
		attempts = append(attempts, "http://"+strings.TrimPrefix(url, "https://"))
	}

	var lastErr error
	for _, attemptURL := range attempts {
		html, status, err := c.render(ctx, attemptURL)
		if err != nil {
			lastErr = err
			continue
		}
		return extract(html, attemptURL, status, maxLinks)
	}
	return FetchResult{}, fmt.Errorf("failed to render %s: %w", url, lastErr)
}

// render navigates to url and captures the HTTP status of the main
// frame's document response via the CDP Network domain, which reports
// the real response code instead of the Navigation Timing API's
// best-effort approximation.
func (c *ChromeDP) render(ctx context.Context, url string) (html string, status int, err error) {
	tabCtx, tabCancel := chromedp.NewContext(c.browserCtx)
	defer tabCancel()

	runCtx, cancel := context.WithTimeout(tabCtx, navTimeout)
	defer cancel()

	var mu sync.Mutex
	status = 200
	var mainFrameID string

	chromedp.ListenTarget(runCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			if e.Type == network.ResourceTypeDocument && mainFrameID == "" {
				mu.Lock()
				mainFrameID = string(e.FrameID)
				mu.Unlock()
			}
		case *network.EventResponseReceived:
			mu.Lock()
			if e.Type == network.ResourceTypeDocument && string(e.FrameID) == mainFrameID {
				status = int(e.Response.Status)
			}
			mu.Unlock()
		}
	})

	err = chromedp.Run(runCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.Sleep(settleDelay),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", 0, err
	}

	mu.Lock()
	defer mu.Unlock()
	return html, status, nil
}
