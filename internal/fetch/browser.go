package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// MinContentLength is the minimum extracted text length to consider an HTTP
// fetch successful. Shorter pages are rendered in a browser when enabled.
const MinContentLength = 500

// RenderFunc renders a page and returns its HTML.
type RenderFunc func(ctx context.Context, url string) (string, error)

// ShouldUseBrowser returns true if the extracted text is too short,
// indicating the page is likely rendered client-side.
func ShouldUseBrowser(extractedText string) bool {
	return len(strings.TrimSpace(extractedText)) < MinContentLength
}

// BrowserRenderer returns a RenderFunc backed by headless Chrome.
// Requires Chrome/Chromium to be installed on the system.
func BrowserRenderer(timeout time.Duration, logger *zap.Logger) RenderFunc {
	return func(ctx context.Context, url string) (string, error) {
		return WithBrowser(ctx, url, timeout, logger)
	}
}

// WithBrowser renders a page in a headless browser and returns the rendered HTML.
func WithBrowser(ctx context.Context, url string, timeout time.Duration, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("starting headless browser", zap.String("url", url))

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		// Give client-side rendering time to fill the page
		chromedp.Sleep(3*time.Second),
		chromedp.ActionFunc(func(ctx context.Context) error {
			// Cookie banners are optional
			_ = chromedp.Click(`button[id*="accept"], button[class*="accept"]`, chromedp.NodeVisible, chromedp.AtLeast(0)).Do(ctx)
			return nil
		}),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("browser rendering failed: %w", err)
	}

	logger.Debug("rendered page", zap.String("url", url), zap.Int("bytes", len(html)))
	return html, nil
}
