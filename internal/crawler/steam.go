package crawler

import (
	"context"
	"fmt"
	"strings"

	"github.com/dealmungchi/freegameworker/helpers"
	"github.com/dealmungchi/freegameworker/internal/offer"
	"github.com/dealmungchi/freegameworker/logger"
	"github.com/dealmungchi/freegameworker/services/cache"

	"github.com/PuerkitoBio/goquery"
)

// SteamCrawler reads the Steam search results endpoint filtered to specials.
// The endpoint wraps server-rendered result rows in a JSON envelope.
type SteamCrawler struct {
	BaseCrawler
}

// NewSteamCrawler creates a crawler for the Steam specials search
func NewSteamCrawler(url string, cacheSvc cache.CacheService) *SteamCrawler {
	return &SteamCrawler{
		BaseCrawler: newBaseCrawler("Steam", offer.Steam, url, "steam_rate_limited", 600, cacheSvc),
	}
}

type steamSearchResponse struct {
	Success     int    `json:"success"`
	ResultsHTML string `json:"results_html"`
	TotalCount  int    `json:"total_count"`
}

// FetchOffers parses every discounted result row
func (c *SteamCrawler) FetchOffers(ctx context.Context) ([]offer.RawOffer, error) {
	var resp steamSearchResponse
	if err := c.fetchJSON(ctx, &resp); err != nil {
		return nil, err
	}

	doc, err := c.createDocument(strings.NewReader(resp.ResultsHTML))
	if err != nil {
		return nil, err
	}

	rows := doc.Find(".search_result_row")
	offers := c.processTiles(rows, c.processRow)

	logger.ForSource(c.GetName()).Debug().
		Int("rows", rows.Length()).
		Int("offers", len(offers)).
		Msg("Parsed search results")
	return offers, nil
}

func (c *SteamCrawler) processRow(row *goquery.Selection) *offer.RawOffer {
	title := strings.TrimSpace(row.Find(".title").First().Text())
	if title == "" {
		return nil
	}

	appID := firstID(row.AttrOr("data-ds-appid", ""))
	key := title
	switch {
	case appID != "":
		key = appID
	case firstID(row.AttrOr("data-ds-packageid", "")) != "":
		key = "sub/" + firstID(row.AttrOr("data-ds-packageid", ""))
	case firstID(row.AttrOr("data-ds-bundleid", "")) != "":
		key = "bundle/" + firstID(row.AttrOr("data-ds-bundleid", ""))
	}

	link := row.AttrOr("href", "")
	if i := strings.Index(link, "?"); i >= 0 {
		link = link[:i]
	}
	if link == "" && appID != "" {
		link = fmt.Sprintf("app/%s/", appID)
	}

	original := firstText(row, ".discount_original_price", ".search_discount_and_price strike", ".search_price strike")
	final := firstText(row, ".discount_final_price")
	raw := &offer.RawOffer{
		Key:             key,
		Title:           title,
		URL:             c.ResolveURL(link),
		Price:           original,
		DiscountPercent: nilIfEmpty(firstText(row, ".discount_pct", ".search_discount span")),
		OriginalPrice:   nilIfEmpty(original),
		DiscountPrice:   nilIfEmpty(final),
	}

	if src := imageSource(row.Find(".search_capsule img").First()); src != "" {
		raw.Images = append(raw.Images, offer.Image{Type: "thumbnail", URL: src})
	}
	if appID != "" {
		raw.Images = append(raw.Images, offer.Image{
			Type: "header",
			URL:  fmt.Sprintf("https://cdn.akamai.steamstatic.com/steam/apps/%s/header.jpg", appID),
		})
	}
	return raw
}

// firstID takes the first entry of a comma separated id attribute
func firstID(attr string) string {
	id, err := helpers.GetSplitPart(attr, ",", 0)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(id)
}

func firstText(s *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if t := strings.TrimSpace(s.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}
