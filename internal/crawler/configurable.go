package crawler

import (
	"context"
	"strings"

	"github.com/dealmungchi/freegameworker/internal/offer"
	"github.com/dealmungchi/freegameworker/logger"
	"github.com/dealmungchi/freegameworker/services/cache"

	"github.com/PuerkitoBio/goquery"
)

// ConfigurableCrawler reads server-rendered listing tiles driven by CSS selectors
type ConfigurableCrawler struct {
	BaseCrawler
	Selectors    Selectors
	AssumeFree   bool
	Limit        int
	KeyExtractor KeyExtractorFunc
}

// NewConfigurableCrawler creates a new configurable crawler
func NewConfigurableCrawler(config CrawlerConfig, cacheSvc cache.CacheService) *ConfigurableCrawler {
	base := newBaseCrawler(config.Name, config.Store, config.URL, config.CacheKey, config.BlockTime, cacheSvc)
	if config.BaseURL != "" {
		base.BaseURL = config.BaseURL
	}
	return &ConfigurableCrawler{
		BaseCrawler:  base,
		Selectors:    config.Selectors,
		AssumeFree:   config.AssumeFree,
		Limit:        config.Limit,
		KeyExtractor: config.KeyExtractor,
	}
}

// FetchOffers fetches the listing page and extracts one raw offer per tile
func (c *ConfigurableCrawler) FetchOffers(ctx context.Context) ([]offer.RawOffer, error) {
	utf8Body, err := c.fetchWithCache(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := c.createDocument(utf8Body)
	if err != nil {
		return nil, err
	}

	tiles := doc.Find(c.Selectors.List)
	if c.Limit > 0 && tiles.Length() > c.Limit {
		tiles = tiles.Slice(0, c.Limit)
	}

	offers := c.processTiles(tiles, c.processTile)
	if logger.IsDebugEnabled() {
		logger.ForSource(c.GetName()).Debug().
			Int("tiles", tiles.Length()).
			Int("offers", len(offers)).
			Msg("Parsed listing page")
	}
	return offers, nil
}

// find resolves a selector relative to a tile; an empty selector means the tile itself
func (c *ConfigurableCrawler) find(s *goquery.Selection, selector string) *goquery.Selection {
	if selector == "" {
		return s
	}
	return s.Find(selector).First()
}

func (c *ConfigurableCrawler) text(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.Join(strings.Fields(s.Find(selector).First().Text()), " ")
}

// processTile turns one listing tile into a raw offer. Tiles without a title are skipped.
func (c *ConfigurableCrawler) processTile(s *goquery.Selection) *offer.RawOffer {
	var title string
	titleSel := c.find(s, c.Selectors.Title)
	if c.Selectors.TitleAttr != "" {
		title = titleSel.AttrOr(c.Selectors.TitleAttr, "")
		if strings.TrimSpace(title) == "" {
			title = s.AttrOr(c.Selectors.TitleAttr, "")
		}
	}
	if strings.TrimSpace(title) == "" && c.Selectors.Title != "" {
		title = titleSel.Text()
	}
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return nil
	}

	link := c.find(s, c.Selectors.Link).AttrOr("href", "")
	if link == "" {
		link = s.AttrOr("href", "")
	}
	link = c.ResolveURL(link)

	key := ""
	if c.KeyExtractor != nil && link != "" {
		k, err := c.KeyExtractor(link)
		if err != nil {
			logger.ForSource(c.GetName()).Debug().Err(err).Str("link", link).Msg("Could not extract key")
		}
		key = strings.TrimSpace(k)
	}
	if key == "" {
		key = title
	}

	raw := &offer.RawOffer{
		Key:             key,
		Title:           title,
		URL:             link,
		Note:            c.text(s, c.Selectors.Note),
		Free:            c.AssumeFree,
		DiscountPercent: nilIfEmpty(c.text(s, c.Selectors.Discount)),
		OriginalPrice:   nilIfEmpty(c.text(s, c.Selectors.OriginalPrice)),
		DiscountPrice:   nilIfEmpty(c.text(s, c.Selectors.FinalPrice)),
	}
	raw.Price = c.text(s, c.Selectors.OriginalPrice)

	if c.Selectors.Image != "" {
		if src := imageSource(s.Find(c.Selectors.Image).First()); src != "" {
			raw.Images = append(raw.Images, offer.Image{Type: "thumbnail", URL: c.ResolveURL(src)})
		}
	}

	return raw
}

// imageSource reads src, then lazy-load attributes, then the first srcset candidate
func imageSource(img *goquery.Selection) string {
	for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
		if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" && !strings.HasPrefix(v, "data:") {
			return strings.TrimSpace(v)
		}
	}
	if srcset, ok := img.Attr("srcset"); ok {
		first := strings.TrimSpace(strings.Split(srcset, ",")[0])
		if fields := strings.Fields(first); len(fields) > 0 {
			return fields[0]
		}
	}
	return ""
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
