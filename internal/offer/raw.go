package offer

// Image is a candidate picture for a listing
type Image struct {
	Type string `json:"type,omitempty"`
	URL  string `json:"url"`
}

// RawOffer is a storefront-specific record produced by a source adapter.
//
// Numeric fields are deliberately loose: DiscountPercent, OriginalPrice and
// DiscountPrice accept strings such as "50%", "-75%", "$19.99" or "Free" as
// well as Go numeric types and json.Number. The normalizer decides what they mean.
type RawOffer struct {
	Key             string      `json:"key"`
	Title           string      `json:"title"`
	URL             string      `json:"url,omitempty"`
	Images          []Image     `json:"images,omitempty"`
	Note            string      `json:"note,omitempty"`
	Price           string      `json:"price,omitempty"`
	DiscountPercent interface{} `json:"discount_percent,omitempty"`
	OriginalPrice   interface{} `json:"original_price,omitempty"`
	DiscountPrice   interface{} `json:"discount_price,omitempty"`
	Free            bool        `json:"free,omitempty"`
	FreeUntil       string      `json:"free_until,omitempty"`
}
