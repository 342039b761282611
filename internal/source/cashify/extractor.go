package cashify

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"price_tracker/internal/domain"
)

// UnknownProductName stands in when a page renders without a title. A
// missing name must not block price tracking.
const UnknownProductName = "Unknown Product"

// Selectors is the set of CSS selectors the extractor reads. It is
// versioned configuration data: when the site layout drifts, the fix
// is a config change.
type Selectors struct {
	Name          string
	Variant       string
	Image         string
	CurrentPrice  string
	OriginalPrice string
}

func DefaultSelectors() Selectors {
	return Selectors{
		Name:          ".h3.line-clamp-2",
		Variant:       ".body2.mb-2.text-surface-text",
		Image:         "img.w-full.h-auto.aspect-square.object-contain",
		CurrentPrice:  `span.h1[itemprop="price"]`,
		OriginalPrice: ".subtitle1.line-through.text-surface-text",
	}
}

func (s Selectors) withDefaults() Selectors {
	def := DefaultSelectors()
	if s.Name == "" {
		s.Name = def.Name
	}
	if s.Variant == "" {
		s.Variant = def.Variant
	}
	if s.Image == "" {
		s.Image = def.Image
	}
	if s.CurrentPrice == "" {
		s.CurrentPrice = def.CurrentPrice
	}
	if s.OriginalPrice == "" {
		s.OriginalPrice = def.OriginalPrice
	}
	return s
}

// Extractor turns one fetched product page into a price snapshot. It
// is a pure transformation: no network, no persistence, deterministic
// for identical markup.
type Extractor struct {
	sel Selectors
}

func NewExtractor(sel Selectors) *Extractor {
	return &Extractor{sel: sel.withDefaults()}
}

// Extract parses page markup into a snapshot or a
// *domain.ExtractionError.
func (e *Extractor) Extract(page []byte) (*domain.Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, &domain.ExtractionError{Kind: domain.ExtractionMalformed, Detail: err.Error()}
	}

	priceText := strings.TrimSpace(doc.Find(e.sel.CurrentPrice).First().Text())
	if priceText == "" {
		return nil, &domain.ExtractionError{Kind: domain.ExtractionPriceNotFound, Detail: "price field absent"}
	}
	currentPrice, err := parsePrice(priceText)
	if err != nil {
		return nil, &domain.ExtractionError{
			Kind:   domain.ExtractionPriceNotFound,
			Detail: fmt.Sprintf("price field %q not numeric", priceText),
		}
	}

	name := strings.TrimSpace(doc.Find(e.sel.Name).First().Text())
	if name == "" {
		name = UnknownProductName
	}

	variant := strings.TrimSpace(doc.Find(e.sel.Variant).First().Text())

	image := doc.Find(e.sel.Image).First()
	imageURL := image.AttrOr("src", "")
	if imageURL == "" {
		imageURL = image.AttrOr("alt", "")
	}

	// The list price is optional. Absent means no discount is running.
	originalPrice := currentPrice
	if mrpText := strings.TrimSpace(doc.Find(e.sel.OriginalPrice).First().Text()); mrpText != "" {
		if mrp, err := parsePrice(mrpText); err == nil {
			originalPrice = mrp
		}
	}

	return &domain.Snapshot{
		Name:          name,
		Variant:       variant,
		ImageURL:      imageURL,
		CurrentPrice:  currentPrice,
		OriginalPrice: originalPrice,
		Discount:      DiscountPercent(originalPrice, currentPrice),
	}, nil
}

// DiscountPercent recomputes the discount from the two prices rather
// than trusting a badge in the markup. Rounding is to the nearest
// integer, ties away from zero (math.Round).
func DiscountPercent(original, current int64) int {
	if original <= 0 || original == current {
		return 0
	}
	return int(math.Round(float64(original-current) / float64(original) * 100))
}

// parsePrice strips the currency symbol, thousands separators and
// whitespace, then parses the remainder as a whole number.
func parsePrice(text string) (int64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '₹', ',', ' ', ' ':
			return -1
		}
		return r
	}, strings.TrimSpace(text))

	if cleaned == "" {
		return 0, fmt.Errorf("empty price text")
	}

	price, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", text, err)
	}
	if price < 0 {
		return 0, fmt.Errorf("negative price %d", price)
	}
	return price, nil
}
