package crawler

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dealmungchi/freegameworker/helpers"
	"github.com/dealmungchi/freegameworker/internal/offer"
	"github.com/dealmungchi/freegameworker/logger"
	apperrors "github.com/dealmungchi/freegameworker/pkg/errors"
	"github.com/dealmungchi/freegameworker/services/cache"

	"github.com/PuerkitoBio/goquery"
)

// DefaultBlockTime is how long a storefront is left alone after it rate limits us
const DefaultBlockTime = 10 * time.Minute

// BaseCrawler provides common functionality for all crawlers
type BaseCrawler struct {
	Name      string
	Store     offer.Store
	URL       string
	BaseURL   string
	CacheKey  string
	CacheSvc  cache.CacheService
	BlockTime time.Duration
}

func newBaseCrawler(name string, store offer.Store, rawURL, cacheKey string, blockSeconds int, cacheSvc cache.CacheService) BaseCrawler {
	blockTime := time.Duration(blockSeconds) * time.Second
	if blockTime <= 0 {
		blockTime = DefaultBlockTime
	}
	return BaseCrawler{
		Name:      name,
		Store:     store,
		URL:       rawURL,
		BaseURL:   offer.Meta(store).BaseURL,
		CacheKey:  cacheKey,
		CacheSvc:  cacheSvc,
		BlockTime: blockTime,
	}
}

// checkBlocked fails fast while a previous rate limit block is active
func (c *BaseCrawler) checkBlocked() error {
	if c.CacheSvc == nil || c.CacheKey == "" {
		return nil
	}
	if _, err := c.CacheSvc.Get(c.CacheKey); err == nil {
		return apperrors.NewSource(c.GetName(),
			fmt.Sprintf("blocked for %ds after rate limit", int(c.BlockTime/time.Second)), nil)
	}
	return nil
}

// block remembers a rate limit so the next runs skip the storefront
func (c *BaseCrawler) block(err error) {
	if c.CacheSvc == nil || c.CacheKey == "" || !apperrors.IsType(err, apperrors.ErrorTypeRateLimit) {
		return
	}
	value := []byte(fmt.Sprintf("%d", int(c.BlockTime/time.Second)))
	if setErr := c.CacheSvc.Set(c.CacheKey, value, c.BlockTime); setErr != nil {
		logger.ForCache().Warn().Err(setErr).Str("key", c.CacheKey).Msg("Failed to store rate limit block")
		return
	}
	logger.ForSource(c.GetName()).Warn().
		Dur("block", c.BlockTime).
		Msg("Storefront rate limited us, backing off")
}

// fetchWithCache fetches the crawler URL honouring the rate limit block
func (c *BaseCrawler) fetchWithCache(ctx context.Context) (io.Reader, error) {
	if err := c.checkBlocked(); err != nil {
		return nil, err
	}

	body, err := helpers.FetchWithRandomHeaders(ctx, c.URL)
	if err != nil {
		c.block(err)
		return nil, err
	}
	return body, nil
}

// fetchJSON fetches the crawler URL as JSON honouring the rate limit block
func (c *BaseCrawler) fetchJSON(ctx context.Context, v interface{}) error {
	if err := c.checkBlocked(); err != nil {
		return err
	}

	if err := helpers.FetchJSON(ctx, c.URL, v); err != nil {
		c.block(err)
		return err
	}
	return nil
}

// createDocument creates a goquery document from a reader
func (c *BaseCrawler) createDocument(reader io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, apperrors.NewParsing(c.GetName(), "failed to parse HTML", err)
	}
	return doc, nil
}

// processTiles runs processor over every selection in parallel. Results keep
// document order; nil results are skipped.
func (c *BaseCrawler) processTiles(selections *goquery.Selection, processor func(*goquery.Selection) *offer.RawOffer) []offer.RawOffer {
	results := make([]*offer.RawOffer, selections.Length())
	var wg sync.WaitGroup

	selections.Each(func(i int, s *goquery.Selection) {
		wg.Add(1)
		go func(i int, s *goquery.Selection) {
			defer wg.Done()
			results[i] = processor(s)
		}(i, s)
	})
	wg.Wait()

	offers := make([]offer.RawOffer, 0, len(results))
	for _, r := range results {
		if r != nil {
			offers = append(offers, *r)
		}
	}
	return offers
}

// ResolveURL makes a link absolute against the crawler's base URL
func (c *BaseCrawler) ResolveURL(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	if strings.HasPrefix(link, "//") {
		return "https:" + link
	}
	ref, err := url.Parse(link)
	if err != nil || ref.IsAbs() || c.BaseURL == "" {
		return link
	}
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return link
	}
	return base.ResolveReference(ref).String()
}

// GetName returns the crawler's name for logging
func (c *BaseCrawler) GetName() string {
	if c.Name != "" {
		return c.Name
	}
	return string(c.Store)
}

// GetStore returns the storefront the crawler reads
func (c *BaseCrawler) GetStore() offer.Store {
	return c.Store
}
