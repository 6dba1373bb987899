// Package render turns offers into platform-agnostic notifications.
package render

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dealmungchi/freegameworker/internal/offer"
)

const (
	// MaxCardsPerNotification is the largest batch a single message can carry
	MaxCardsPerNotification = 10
	// MaxNoteLength is the rune budget for the note line
	MaxNoteLength = 300

	// FreeUntilLayout formats promotion ends, e.g. "May 02, 2024 03:00 PM UTC"
	FreeUntilLayout = "Jan 02, 2006 03:04 PM UTC"
)

// Field is a short labelled value on a card
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Author carries the store branding shown above a card
type Author struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

// Card is the rich representation of one offer
type Card struct {
	Title       string  `json:"title"`
	URL         string  `json:"url,omitempty"`
	Description string  `json:"description,omitempty"`
	Color       int     `json:"color"`
	Image       string  `json:"image,omitempty"`
	Author      *Author `json:"author,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
	Footer      string  `json:"footer,omitempty"`
}

// Notification is one outbound message. OfferIDs lists the offers it announces,
// in card order, so a successful send can be committed to the dedup store.
type Notification struct {
	OfferIDs []string `json:"offer_ids"`
	Mention  bool     `json:"mention"`
	Cards    []Card   `json:"cards"`
}

// Renderer builds notifications from offers
type Renderer struct {
	batchSize int
	mention   bool
	now       func() time.Time
}

// NewRenderer creates a renderer. A batch size of one or less yields one
// notification per offer; larger values are capped at MaxCardsPerNotification.
func NewRenderer(batchSize int, mention bool) *Renderer {
	if batchSize < 1 {
		batchSize = 1
	}
	if batchSize > MaxCardsPerNotification {
		batchSize = MaxCardsPerNotification
	}
	return &Renderer{
		batchSize: batchSize,
		mention:   mention,
		now:       time.Now,
	}
}

// Render builds notifications in offer order. Consecutive offers from the same
// store share a notification when batching is enabled.
func (r *Renderer) Render(offers []offer.Offer) []Notification {
	var notifications []Notification
	var lastStore offer.Store
	for _, o := range offers {
		last := len(notifications) - 1
		if last >= 0 && r.batchSize > 1 && o.Store == lastStore && len(notifications[last].Cards) < r.batchSize {
			notifications[last].Cards = append(notifications[last].Cards, r.Card(o))
			notifications[last].OfferIDs = append(notifications[last].OfferIDs, o.ID)
			continue
		}
		notifications = append(notifications, Notification{
			OfferIDs: []string{o.ID},
			Mention:  r.mention,
			Cards:    []Card{r.Card(o)},
		})
		lastStore = o.Store
	}
	return notifications
}

// Card renders a single offer. Absent optional values are left out entirely.
func (r *Renderer) Card(o offer.Offer) Card {
	meta := offer.Meta(o.Store)

	freeUntil := ""
	if !o.OpenEnded() {
		freeUntil = o.FreeUntil.UTC().Format(FreeUntilLayout)
	}

	var lines []string
	if o.Note != "" {
		lines = append(lines, truncate(o.Note, MaxNoteLength))
	}
	if o.Price != "" {
		lines = append(lines, "Price: "+o.Price)
	}
	if freeUntil != "" {
		lines = append(lines, fmt.Sprintf("Free until: **%s**", freeUntil))
	}

	card := Card{
		Title:       o.Title,
		URL:         o.URL,
		Description: strings.Join(lines, "\n"),
		Color:       meta.Color,
		Image:       o.Image,
		Footer:      "Added " + r.now().UTC().Format("2006-01-02"),
	}
	if meta.LogoURL != "" {
		card.Author = &Author{Name: meta.Name, URL: o.URL, IconURL: meta.LogoURL}
	}

	card.Fields = append(card.Fields, Field{Name: "Store", Value: meta.Name, Inline: true})
	if !o.IsFree() {
		card.Fields = append(card.Fields, Field{Name: "Discount", Value: fmt.Sprintf("%d%% off", o.DiscountPercent), Inline: true})
	}
	if freeUntil != "" {
		card.Fields = append(card.Fields, Field{Name: "Free until", Value: freeUntil, Inline: true})
	}
	if o.Price != "" {
		card.Fields = append(card.Fields, Field{Name: "Price", Value: o.Price, Inline: true})
	}
	return card
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}
