package fetch

import (
	"context"
	"strings"
	"time"

	"github.com/jonathan/cv-matcher/internal/types"
	"go.uber.org/zap"
)

// ListingFetcher resolves a job listing URL into a JobListing.
type ListingFetcher struct {
	options     *Options
	whozAPIBase string
	render      RenderFunc
	logger      *zap.Logger
}

// ListingFetcherConfig configures a ListingFetcher.
type ListingFetcherConfig struct {
	WhozAPIBase string
	UseBrowser  bool
	Timeout     time.Duration
	Options     *Options
	Render      RenderFunc // overrides the chromedp renderer when UseBrowser is set
	Logger      *zap.Logger
}

// NewListingFetcher creates a fetcher. The browser fallback is only wired
// when UseBrowser is set.
func NewListingFetcher(cfg ListingFetcherConfig) *ListingFetcher {
	opts := cfg.Options
	if opts == nil {
		opts = DefaultOptions()
	}
	if cfg.Timeout > 0 {
		opts.Timeout = cfg.Timeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var render RenderFunc
	if cfg.UseBrowser {
		render = cfg.Render
		if render == nil {
			render = BrowserRenderer(opts.Timeout, logger)
		}
	}

	base := cfg.WhozAPIBase
	if base == "" {
		base = DefaultWhozAPIBase
	}

	return &ListingFetcher{
		options:     opts,
		whozAPIBase: base,
		render:      render,
		logger:      logger,
	}
}

// Fetch retrieves the listing at listingURL.
func (f *ListingFetcher) Fetch(ctx context.Context, listingURL string) (*types.JobListing, error) {
	if _, err := ValidateURL(listingURL); err != nil {
		return nil, err
	}

	platform := DetectPlatform(listingURL)
	logger := f.logger.With(zap.String("listing_url", listingURL), zap.Stringer("platform", platform))

	if platform == PlatformWhoz {
		listing, err := FetchWhozTask(ctx, f.whozAPIBase, listingURL, f.options)
		if err != nil {
			return nil, err
		}
		logger.Info("fetched listing", zap.String("name", listing.Name), zap.Int("skills", len(listing.RequiredSkills)))
		return listing, nil
	}

	return f.fetchPage(ctx, listingURL, platform, logger)
}

func (f *ListingFetcher) fetchPage(ctx context.Context, listingURL string, platform Platform, logger *zap.Logger) (*types.JobListing, error) {
	result, err := URL(ctx, listingURL, f.options)
	if err != nil {
		return nil, err
	}

	html := result.Body
	text, err := ExtractMainText(html, PlatformContentSelectors(platform), PlatformNoiseSelectors(platform)...)
	if err != nil {
		return nil, &Error{URL: listingURL, Message: "failed to extract text", Cause: err}
	}

	if f.render != nil && ShouldUseBrowser(text) {
		logger.Info("page content is thin, rendering in browser", zap.Int("chars", len(text)))
		rendered, renderErr := f.render(ctx, listingURL)
		if renderErr != nil {
			logger.Warn("browser rendering failed, keeping HTTP content", zap.Error(renderErr))
		} else if renderedText, extractErr := ExtractMainText(rendered, PlatformContentSelectors(platform), PlatformNoiseSelectors(platform)...); extractErr == nil && len(renderedText) > len(text) {
			html, text = rendered, renderedText
		}
	}

	if strings.TrimSpace(text) == "" {
		return nil, &Error{URL: listingURL, Message: "listing page has no text"}
	}

	listing := &types.JobListing{
		URL:            listingURL,
		Name:           pageTitle(html),
		Description:    text,
		RequiredSkills: []string{},
	}
	logger.Info("fetched listing", zap.String("name", listing.Name), zap.Int("chars", len(text)))
	return listing, nil
}
