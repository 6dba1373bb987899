package render

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/dealmungchi/freegameworker/internal/offer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedRenderer(batchSize int, mention bool) *Renderer {
	r := NewRenderer(batchSize, mention)
	r.now = func() time.Time { return time.Date(2024, 4, 28, 23, 30, 0, 0, time.FixedZone("KST", 9*3600)) }
	return r
}

func TestCardFreeOffer(t *testing.T) {
	r := fixedRenderer(1, false)

	card := r.Card(offer.Offer{
		ID:        "epic:abc",
		Title:     "Free Game",
		Store:     offer.Epic,
		URL:       "https://store.epicgames.com/en-US/p/free-game",
		Image:     "https://cdn1.epicgames.com/thumb.jpg",
		Kind:      offer.KindFree,
		FreeUntil: time.Date(2024, 5, 2, 15, 0, 0, 0, time.UTC),
		Note:      "A great free game",
		Price:     "$29.99",
	})

	assert.Equal(t, "Free Game", card.Title)
	assert.Equal(t, "https://store.epicgames.com/en-US/p/free-game", card.URL)
	assert.Equal(t, "A great free game\nPrice: $29.99\nFree until: **May 02, 2024 03:00 PM UTC**", card.Description)
	assert.Equal(t, 0x3498DB, card.Color)
	assert.Equal(t, "https://cdn1.epicgames.com/thumb.jpg", card.Image)
	assert.Equal(t, "Added 2024-04-28", card.Footer)
	require.NotNil(t, card.Author)
	assert.Equal(t, "Epic Games Store", card.Author.Name)

	require.Len(t, card.Fields, 3)
	assert.Equal(t, Field{Name: "Store", Value: "Epic Games Store", Inline: true}, card.Fields[0])
	assert.Equal(t, Field{Name: "Free until", Value: "May 02, 2024 03:00 PM UTC", Inline: true}, card.Fields[1])
	assert.Equal(t, Field{Name: "Price", Value: "$29.99", Inline: true}, card.Fields[2])
}

func TestCardOmitsMissingOptionalValues(t *testing.T) {
	r := fixedRenderer(1, false)

	card := r.Card(offer.Offer{
		ID:    "itch:1",
		Title: "Bare",
		Store: offer.Store("Itch"),
		URL:   "https://itch.io/bare",
		Kind:  offer.KindFree,
	})

	assert.Empty(t, card.Description)
	assert.Empty(t, card.Image)
	assert.Nil(t, card.Author)
	assert.Equal(t, offer.DefaultColor, card.Color)
	require.Len(t, card.Fields, 1)
	assert.Equal(t, "Itch", card.Fields[0].Value)

	for _, s := range []string{card.Description, card.Footer, card.Title} {
		assert.NotContains(t, s, "None")
		assert.NotContains(t, s, "<nil>")
	}
}

func TestCardDiscountedOffer(t *testing.T) {
	r := fixedRenderer(1, false)

	card := r.Card(offer.Offer{
		ID:              "steam:620",
		Title:           "Portal 2",
		Store:           offer.Steam,
		URL:             "https://store.steampowered.com/app/620/",
		Kind:            offer.KindDiscounted,
		DiscountPercent: 90,
	})

	require.Len(t, card.Fields, 2)
	assert.Equal(t, Field{Name: "Discount", Value: "90% off", Inline: true}, card.Fields[1])
}

func TestCardTruncatesLongNotes(t *testing.T) {
	r := fixedRenderer(1, false)

	card := r.Card(offer.Offer{
		ID:    "gog:x",
		Title: "Wordy",
		Store: offer.GOG,
		URL:   "https://www.gog.com/x",
		Kind:  offer.KindFree,
		Note:  strings.Repeat("ü", 500),
	})

	assert.Equal(t, MaxNoteLength, utf8.RuneCountInString(card.Description))
	assert.True(t, strings.HasSuffix(card.Description, "…"))
}

func TestRenderOnePerOffer(t *testing.T) {
	r := fixedRenderer(1, true)

	offers := []offer.Offer{
		{ID: "epic:a", Title: "A", Store: offer.Epic, URL: "https://a", Kind: offer.KindFree},
		{ID: "epic:b", Title: "B", Store: offer.Epic, URL: "https://b", Kind: offer.KindFree},
	}

	notifications := r.Render(offers)
	require.Len(t, notifications, 2)
	assert.Equal(t, []string{"epic:a"}, notifications[0].OfferIDs)
	assert.Equal(t, []string{"epic:b"}, notifications[1].OfferIDs)
	assert.True(t, notifications[0].Mention)
}

func TestRenderBatchesConsecutiveSameStore(t *testing.T) {
	r := fixedRenderer(2, false)

	offers := []offer.Offer{
		{ID: "epic:a", Title: "A", Store: offer.Epic, URL: "https://a", Kind: offer.KindFree},
		{ID: "epic:b", Title: "B", Store: offer.Epic, URL: "https://b", Kind: offer.KindFree},
		{ID: "epic:c", Title: "C", Store: offer.Epic, URL: "https://c", Kind: offer.KindFree},
		{ID: "steam:d", Title: "D", Store: offer.Steam, URL: "https://d", Kind: offer.KindFree},
	}

	notifications := r.Render(offers)
	require.Len(t, notifications, 3)
	assert.Equal(t, []string{"epic:a", "epic:b"}, notifications[0].OfferIDs)
	assert.Len(t, notifications[0].Cards, 2)
	assert.Equal(t, []string{"epic:c"}, notifications[1].OfferIDs)
	assert.Equal(t, []string{"steam:d"}, notifications[2].OfferIDs)
	assert.False(t, notifications[2].Mention)
}

func TestNewRendererCapsBatchSize(t *testing.T) {
	assert.Equal(t, 1, NewRenderer(0, false).batchSize)
	assert.Equal(t, MaxCardsPerNotification, NewRenderer(50, false).batchSize)
	assert.Empty(t, NewRenderer(1, false).Render(nil))
}
