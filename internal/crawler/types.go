package crawler

import (
	"context"

	"github.com/dealmungchi/freegameworker/internal/offer"
)

// Crawler interface defines the contract for all storefront adapters
type Crawler interface {
	// FetchOffers retrieves the current raw offers from a storefront.
	// It returns either the complete list or an error, never a partial list.
	FetchOffers(ctx context.Context) ([]offer.RawOffer, error)

	// GetName returns the crawler's name for logging and identification
	GetName() string

	// GetStore returns the storefront the crawler reads
	GetStore() offer.Store
}

// KeyExtractorFunc derives a storefront-native key from a listing link
type KeyExtractorFunc func(link string) (string, error)

// Selectors contains CSS selectors for the elements of a listing tile
type Selectors struct {
	List          string
	Title         string
	TitleAttr     string
	Link          string
	Image         string
	Discount      string
	OriginalPrice string
	FinalPrice    string
	Note          string
}

// CrawlerConfig contains configuration for a tile crawler
type CrawlerConfig struct {
	Name         string
	Store        offer.Store
	URL          string
	CacheKey     string
	BlockTime    int
	BaseURL      string
	Selectors    Selectors
	AssumeFree   bool
	Limit        int
	KeyExtractor KeyExtractorFunc
}
