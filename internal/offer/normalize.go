package offer

import (
	"math"
	"net/url"
	"strings"

	"github.com/dealmungchi/freegameworker/logger"
	apperrors "github.com/dealmungchi/freegameworker/pkg/errors"

	"github.com/go-playground/validator/v10"
)

// DefaultThreshold is the minimum discount percent worth announcing
const DefaultThreshold = 50

// Normalizer maps raw storefront records onto canonical offers
type Normalizer struct {
	threshold int
	validate  *validator.Validate
}

// NewNormalizer creates a normalizer. A threshold outside 1..100 falls back to DefaultThreshold.
func NewNormalizer(threshold int) *Normalizer {
	if threshold < 1 || threshold > 100 {
		threshold = DefaultThreshold
	}
	return &Normalizer{
		threshold: threshold,
		validate:  validator.New(),
	}
}

// Threshold returns the discount percent at or above which an offer is kept
func (n *Normalizer) Threshold() int {
	return n.threshold
}

// Normalize builds an Offer from a raw record. It returns false when the record
// lacks an identity or title, carries malformed numbers, or is not a deal of interest.
func (n *Normalizer) Normalize(raw RawOffer, store Store) (Offer, bool) {
	o, err := n.normalize(raw, store)
	if err != nil {
		if logger.IsDebugEnabled() {
			logger.ForSource(string(store)).Debug().
				Err(err).
				Str("key", raw.Key).
				Str("title", raw.Title).
				Msg("Dropped raw offer")
		}
		return Offer{}, false
	}
	return o, true
}

func (n *Normalizer) normalize(raw RawOffer, store Store) (Offer, error) {
	component := string(store)

	title := strings.TrimSpace(raw.Title)
	if title == "" {
		return Offer{}, apperrors.NewNormalization(component, "missing title", nil)
	}
	key := strings.TrimSpace(raw.Key)
	if key == "" {
		return Offer{}, apperrors.NewNormalization(component, "missing store key", nil)
	}

	kind, percent, err := n.classify(raw)
	if err != nil {
		return Offer{}, apperrors.NewNormalization(component, "unclassifiable price data", err)
	}

	meta := Meta(store)
	o := Offer{
		ID:              store.Key() + ":" + key,
		Title:           title,
		Store:           store,
		URL:             resolveURL(meta.BaseURL, raw.URL),
		Image:           pickImage(meta.BaseURL, raw.Images),
		Kind:            kind,
		DiscountPercent: percent,
		Note:            strings.TrimSpace(raw.Note),
		Price:           strings.TrimSpace(raw.Price),
	}
	if t, ok := parseTime(raw.FreeUntil); ok {
		o.FreeUntil = t
	}

	if err := n.validate.Struct(o); err != nil {
		return Offer{}, apperrors.NewNormalization(component, "validation failed", err)
	}
	return o, nil
}

// percentEpsilon absorbs float error when a percent is derived from prices
const percentEpsilon = 1e-9

// classify applies the free/discount rule: an explicit free marker, a 100%
// discount or a zero discounted price against a non-zero original price is
// free; a discount at or above the threshold is discounted; anything else is dropped.
// The threshold is compared against the unrounded percent and the stored
// percent is floored, so it never overstates the discount.
func (n *Normalizer) classify(raw RawOffer) (Kind, int, error) {
	percent, hasPercent, err := parsePercent(raw.DiscountPercent)
	if err != nil {
		return "", 0, err
	}
	original, hasOriginal, err := parseAmount(raw.OriginalPrice)
	if err != nil {
		return "", 0, err
	}
	discounted, hasDiscounted, err := parseAmount(raw.DiscountPrice)
	if err != nil {
		return "", 0, err
	}

	if raw.Free || (hasPercent && percent == 100) ||
		(hasDiscounted && discounted == 0 && hasOriginal && original > 0) {
		return KindFree, 100, nil
	}

	if !hasPercent && hasOriginal && hasDiscounted && original > 0 && discounted < original {
		percent = (original - discounted) * 100 / original
		hasPercent = true
	}

	if hasPercent && percent+percentEpsilon >= float64(n.threshold) {
		return KindDiscounted, int(math.Floor(percent + percentEpsilon)), nil
	}
	return "", 0, errBelowThreshold
}

var errBelowThreshold = apperrors.NewNormalization("", "not free and below discount threshold", nil)

// resolveURL makes ref absolute against base. An empty or unparseable ref
// falls back to the store's base URL.
func resolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return base
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return base
	}
	if refURL.IsAbs() {
		return refURL.String()
	}
	if strings.HasPrefix(ref, "//") {
		refURL.Scheme = "https"
		return refURL.String()
	}
	baseURL, err := url.Parse(base)
	if err != nil || base == "" {
		return ""
	}
	return baseURL.ResolveReference(refURL).String()
}

// pickImage prefers an image explicitly typed as a thumbnail, then the first
// non-empty image, then nothing.
func pickImage(base string, images []Image) string {
	for _, img := range images {
		if strings.EqualFold(strings.TrimSpace(img.Type), "thumbnail") && strings.TrimSpace(img.URL) != "" {
			return resolveURL(base, img.URL)
		}
	}
	for _, img := range images {
		if strings.TrimSpace(img.URL) != "" {
			return resolveURL(base, img.URL)
		}
	}
	return ""
}
