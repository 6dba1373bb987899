// Package offer holds the canonical offer model, the storefront metadata
// table and the normalizer that turns raw storefront records into offers.
package offer

import (
	"strings"
	"time"
)

// Store identifies a digital storefront
type Store string

const (
	Epic    Store = "Epic"
	Steam   Store = "Steam"
	GOG     Store = "GOG"
	Ubisoft Store = "Ubisoft"
	EA      Store = "EA"
)

// Key is the lowercase prefix used in offer ids
func (s Store) Key() string {
	return strings.ToLower(string(s))
}

// ParseStore matches a configured store name case-insensitively. Unknown names
// are kept as-is so they still get default metadata.
func ParseStore(name string) Store {
	name = strings.TrimSpace(name)
	for s := range storeMeta {
		if strings.EqualFold(string(s), name) {
			return s
		}
	}
	return Store(name)
}

// Kind classifies an offer
type Kind string

const (
	KindFree       Kind = "free"
	KindDiscounted Kind = "discounted"
)

// Offer is the canonical representation of one free or discounted listing.
// It is built fresh on every run and never mutated afterwards.
type Offer struct {
	ID              string    `json:"id" validate:"required"`
	Title           string    `json:"title" validate:"required"`
	Store           Store     `json:"store" validate:"required"`
	URL             string    `json:"url" validate:"required,url"`
	Image           string    `json:"image,omitempty" validate:"omitempty,url"`
	Kind            Kind      `json:"kind" validate:"oneof=free discounted"`
	DiscountPercent int       `json:"discount_percent" validate:"gte=0,lte=100"`
	FreeUntil       time.Time `json:"free_until,omitempty"`
	Note            string    `json:"note,omitempty"`
	Price           string    `json:"price,omitempty"`
}

// IsFree reports whether the offer is free to keep
func (o Offer) IsFree() bool {
	return o.Kind == KindFree
}

// OpenEnded reports whether the offer has no known end
func (o Offer) OpenEnded() bool {
	return o.FreeUntil.IsZero()
}

// StoreMeta is the display branding of a storefront
type StoreMeta struct {
	Name    string
	Color   int
	LogoURL string
	BaseURL string
}

// DefaultColor is used for stores missing from the metadata table
const DefaultColor = 0x5865F2

var storeMeta = map[Store]StoreMeta{
	Epic: {
		Name:    "Epic Games Store",
		Color:   0x3498DB,
		LogoURL: "https://upload.wikimedia.org/wikipedia/commons/1/12/Epic_Games_logo.svg",
		BaseURL: "https://store.epicgames.com/en-US/",
	},
	Steam: {
		Name:    "Steam",
		Color:   0x607D8B,
		LogoURL: "https://upload.wikimedia.org/wikipedia/commons/8/83/Steam_icon_logo.svg",
		BaseURL: "https://store.steampowered.com/",
	},
	GOG: {
		Name:    "GOG",
		Color:   0x71368A,
		LogoURL: "https://upload.wikimedia.org/wikipedia/commons/7/73/GOG.com_logo.svg",
		BaseURL: "https://www.gog.com/",
	},
	Ubisoft: {
		Name:    "Ubisoft Store",
		Color:   0xF1C40F,
		LogoURL: "https://upload.wikimedia.org/wikipedia/commons/3/3e/Ubisoft_2017_logo.svg",
		BaseURL: "https://store.ubisoft.com/",
	},
	EA: {
		Name:    "Electronic Arts",
		Color:   0xE74C3C,
		LogoURL: "https://upload.wikimedia.org/wikipedia/commons/6/6b/Electronic_Arts_Logo.svg",
		BaseURL: "https://www.ea.com/",
	},
}

// Meta returns the branding for a store, falling back to a default for unknown stores
func Meta(s Store) StoreMeta {
	if m, ok := storeMeta[s]; ok {
		return m
	}
	return StoreMeta{
		Name:  string(s),
		Color: DefaultColor,
	}
}
