package crawler

import (
	"context"
	"strings"
	"time"

	"github.com/dealmungchi/freegameworker/internal/offer"
	"github.com/dealmungchi/freegameworker/logger"
	"github.com/dealmungchi/freegameworker/services/cache"
)

// EpicCrawler reads the Epic Games Store promotions feed
type EpicCrawler struct {
	BaseCrawler
	now func() time.Time
}

// NewEpicCrawler creates a crawler for the Epic promotions endpoint
func NewEpicCrawler(url string, cacheSvc cache.CacheService) *EpicCrawler {
	return &EpicCrawler{
		BaseCrawler: newBaseCrawler("Epic", offer.Epic, url, "epic_rate_limited", 600, cacheSvc),
		now:         time.Now,
	}
}

type epicResponse struct {
	Data struct {
		Catalog struct {
			SearchStore struct {
				Elements []epicElement `json:"elements"`
			} `json:"searchStore"`
		} `json:"Catalog"`
	} `json:"data"`
}

type epicElement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ProductSlug string `json:"productSlug"`
	URLSlug     string `json:"urlSlug"`
	KeyImages   []struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"keyImages"`
	CatalogNs struct {
		Mappings []epicMapping `json:"mappings"`
	} `json:"catalogNs"`
	OfferMappings []epicMapping `json:"offerMappings"`
	Price         struct {
		TotalPrice struct {
			DiscountPrice *float64 `json:"discountPrice"`
			OriginalPrice *float64 `json:"originalPrice"`
			FmtPrice      struct {
				OriginalPrice string `json:"originalPrice"`
			} `json:"fmtPrice"`
		} `json:"totalPrice"`
	} `json:"price"`
	Promotions *struct {
		PromotionalOffers []struct {
			PromotionalOffers []epicPromotion `json:"promotionalOffers"`
		} `json:"promotionalOffers"`
	} `json:"promotions"`
}

type epicMapping struct {
	PageSlug string `json:"pageSlug"`
	PageType string `json:"pageType"`
}

type epicPromotion struct {
	StartDate       string `json:"startDate"`
	EndDate         string `json:"endDate"`
	DiscountSetting struct {
		DiscountType       string   `json:"discountType"`
		DiscountPercentage *float64 `json:"discountPercentage"`
	} `json:"discountSetting"`
}

// FetchOffers returns every element with a currently active promotion
func (c *EpicCrawler) FetchOffers(ctx context.Context) ([]offer.RawOffer, error) {
	var resp epicResponse
	if err := c.fetchJSON(ctx, &resp); err != nil {
		return nil, err
	}

	now := c.now()
	var offers []offer.RawOffer
	for _, el := range resp.Data.Catalog.SearchStore.Elements {
		promo, ok := activePromotion(el, now)
		if !ok {
			continue
		}
		offers = append(offers, c.toRawOffer(el, promo))
	}

	logger.ForSource(c.GetName()).Debug().
		Int("elements", len(resp.Data.Catalog.SearchStore.Elements)).
		Int("promoted", len(offers)).
		Msg("Parsed promotions feed")
	return offers, nil
}

// activePromotion finds a promotion running at now. Upcoming promotions are ignored.
func activePromotion(el epicElement, now time.Time) (epicPromotion, bool) {
	if el.Promotions == nil {
		return epicPromotion{}, false
	}
	for _, block := range el.Promotions.PromotionalOffers {
		for _, p := range block.PromotionalOffers {
			start, err := time.Parse(time.RFC3339, p.StartDate)
			if err == nil && now.Before(start) {
				continue
			}
			end, err := time.Parse(time.RFC3339, p.EndDate)
			if err == nil && !now.Before(end) {
				continue
			}
			return p, true
		}
	}
	return epicPromotion{}, false
}

func (c *EpicCrawler) toRawOffer(el epicElement, promo epicPromotion) offer.RawOffer {
	slug := epicSlug(el)

	key := strings.TrimSpace(el.ID)
	if key == "" {
		key = slug
	}
	if key == "" {
		key = el.Title
	}

	raw := offer.RawOffer{
		Key:       key,
		Title:     el.Title,
		Note:      el.Description,
		Price:     el.Price.TotalPrice.FmtPrice.OriginalPrice,
		FreeUntil: promo.EndDate,
	}
	if slug != "" {
		raw.URL = c.ResolveURL("p/" + slug)
	}

	// discountPercentage is the share of the price still paid
	ds := promo.DiscountSetting
	if strings.EqualFold(ds.DiscountType, "FREE") {
		raw.Free = true
	}
	if ds.DiscountPercentage != nil {
		raw.DiscountPercent = 100 - *ds.DiscountPercentage
	}
	if p := el.Price.TotalPrice.OriginalPrice; p != nil {
		raw.OriginalPrice = *p
	}
	if p := el.Price.TotalPrice.DiscountPrice; p != nil {
		raw.DiscountPrice = *p
	}

	for _, img := range el.KeyImages {
		raw.Images = append(raw.Images, offer.Image{Type: img.Type, URL: img.URL})
	}
	return raw
}

func epicSlug(el epicElement) string {
	slug := strings.TrimSuffix(strings.TrimSpace(el.ProductSlug), "/home")
	if slug != "" && slug != "[]" {
		return slug
	}
	for _, m := range el.OfferMappings {
		if m.PageSlug != "" {
			return m.PageSlug
		}
	}
	for _, m := range el.CatalogNs.Mappings {
		if m.PageSlug != "" {
			return m.PageSlug
		}
	}
	return strings.TrimSpace(el.URLSlug)
}
