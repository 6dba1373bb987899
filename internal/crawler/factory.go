package crawler

import (
	"github.com/dealmungchi/freegameworker/config"
	"github.com/dealmungchi/freegameworker/helpers"
	"github.com/dealmungchi/freegameworker/internal/offer"
	"github.com/dealmungchi/freegameworker/logger"
	"github.com/dealmungchi/freegameworker/services/cache"
)

// CreateCrawlers creates the enabled storefront crawlers in ENABLED_STORES order.
// Unknown store names are logged and skipped.
func CreateCrawlers(cfg *config.Config, cacheSvc cache.CacheService) []Crawler {
	var crawlers []Crawler
	seen := make(map[offer.Store]bool)

	for _, name := range cfg.EnabledStores {
		store := offer.ParseStore(name)
		if seen[store] {
			continue
		}
		seen[store] = true

		c := createCrawler(store, cfg, cacheSvc)
		if c == nil {
			logger.Warn("No crawler available for store %q, skipping", name)
			continue
		}
		crawlers = append(crawlers, c)
	}

	for i, c := range crawlers {
		logger.Debug("Crawler %d: %s", i, c.GetName())
	}
	logger.Info("Created %d crawlers", len(crawlers))

	return crawlers
}

func createCrawler(store offer.Store, cfg *config.Config, cacheSvc cache.CacheService) Crawler {
	switch store {
	case offer.Epic:
		return NewEpicCrawler(cfg.EpicURL, cacheSvc)
	case offer.Steam:
		return NewSteamCrawler(cfg.SteamURL, cacheSvc)
	case offer.GOG:
		return NewConfigurableCrawler(gogConfig(cfg.GOGURL), cacheSvc)
	case offer.Ubisoft:
		return NewConfigurableCrawler(ubisoftConfig(cfg.UbisoftURL), cacheSvc)
	default:
		return nil
	}
}

// gogConfig reads the server-rendered discounted catalog
func gogConfig(url string) CrawlerConfig {
	return CrawlerConfig{
		Name:      "GOG",
		Store:     offer.GOG,
		URL:       url,
		CacheKey:  "gog_rate_limited",
		BlockTime: 600,
		Selectors: Selectors{
			List:          "a.product-tile",
			Title:         ".product-tile__title, .product-title",
			TitleAttr:     "title",
			Image:         "img, source",
			Discount:      ".price-discount",
			OriginalPrice: ".base-value",
			FinalPrice:    ".final-value",
		},
		KeyExtractor: func(link string) (string, error) {
			return helpers.LastPathSegment(link), nil
		},
	}
}

// ubisoftConfig reads the free-games page; every tile on it is free
func ubisoftConfig(url string) CrawlerConfig {
	return CrawlerConfig{
		Name:      "Ubisoft",
		Store:     offer.Ubisoft,
		URL:       url,
		CacheKey:  "ubisoft_rate_limited",
		BlockTime: 600,
		Selectors: Selectors{
			List:      ".ProductTile, .product-tile, .product-card",
			Title:     ".product-title, .prod-title",
			TitleAttr: "data-product-name",
			Link:      "a",
			Image:     "img",
			Note:      ".product-short-description, .prod-description",
		},
		AssumeFree: true,
		Limit:      20,
		KeyExtractor: func(link string) (string, error) {
			return helpers.LastPathSegment(link), nil
		},
	}
}
