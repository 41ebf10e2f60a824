// Package extract pulls embedded product metadata out of raw HTML:
// schema.org Product/Offer objects first, Open Graph meta tags second,
// a currency-symbol scan of the body text as a last resort.
package extract

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// Product holds the raw extracted fields. Price stays a string here;
// only the normalizer converts it.
type Product struct {
	Title       string
	PriceRaw    string
	Currency    string
	Image       string
	Description string
}

// reSymbolPrice matches a currency-symbol-prefixed number in body text.
var reSymbolPrice = regexp.MustCompile(`[$€£¥]\s?\d{1,3}(?:[.,]\d{3})*(?:[.,]\d{1,2})?`)

// Parse extracts product metadata from an HTML string. It returns nil
// when nothing usable was found. Malformed JSON-LD is treated as "no
// match", never as an error.
func Parse(rawHTML, pageURL string) *Product {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}

	p := parseJSONLD(doc)
	if p == nil {
		p = &Product{}
	}

	// Open Graph fallback when structured data gave no usable title.
	if p.Title == "" {
		fillFromMeta(doc, p)
	}

	// Last resort: scan visible body text for a symbol-prefixed price.
	if p.PriceRaw == "" {
		if m := reSymbolPrice.FindString(doc.Find("body").Text()); m != "" {
			p.PriceRaw = m
		}
	}

	if p.Description == "" && p.Title != "" {
		p.Description = readabilityExcerpt(rawHTML, pageURL)
	}

	if p.Title == "" && p.PriceRaw == "" && p.Image == "" {
		return nil
	}
	return p
}

// parseJSONLD walks the page's ld+json script blocks and returns the
// first schema.org Product/Offer it can decode.
func parseJSONLD(doc *goquery.Document) *Product {
	var found *Product
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var raw any
		if err := json.Unmarshal([]byte(s.Text()), &raw); err != nil {
			return true // malformed block, keep looking
		}
		for _, candidate := range flattenJSONLD(raw) {
			if p := productFromObject(candidate); p != nil {
				found = p
				return false
			}
		}
		return true
	})
	return found
}

// flattenJSONLD unwraps top-level arrays and @graph containers into a
// flat list of candidate objects.
func flattenJSONLD(raw any) []map[string]any {
	var out []map[string]any
	switch v := raw.(type) {
	case map[string]any:
		out = append(out, v)
		if graph, ok := v["@graph"].([]any); ok {
			for _, g := range graph {
				if m, ok := g.(map[string]any); ok {
					out = append(out, m)
				}
			}
		}
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

// productFromObject maps one JSON-LD object to a Product when it
// declares a Product or Offer type.
func productFromObject(obj map[string]any) *Product {
	if !declaresProductType(obj["@type"]) {
		return nil
	}

	p := &Product{
		Title:       stringField(obj["name"]),
		Description: stringField(obj["description"]),
		Image:       imageField(obj["image"]),
	}

	if offers := obj["offers"]; offers != nil {
		offer := firstObject(offers)
		if offer != nil {
			p.PriceRaw = stringField(offer["price"])
			p.Currency = stringField(offer["priceCurrency"])
		}
	}
	if p.PriceRaw == "" {
		p.PriceRaw = stringField(obj["price"])
	}
	if p.Currency == "" {
		p.Currency = stringField(obj["priceCurrency"])
	}

	if p.Title == "" && p.PriceRaw == "" {
		return nil
	}
	return p
}

func declaresProductType(t any) bool {
	switch v := t.(type) {
	case string:
		return strings.EqualFold(v, "Product") || strings.EqualFold(v, "Offer")
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && (strings.EqualFold(s, "Product") || strings.EqualFold(s, "Offer")) {
				return true
			}
		}
	}
	return false
}

// firstObject returns the object itself, or the first element of an
// array of objects.
func firstObject(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case []any:
		if len(t) > 0 {
			if m, ok := t[0].(map[string]any); ok {
				return m
			}
		}
	}
	return nil
}

// stringField renders a JSON value as a string. Numbers keep their
// full precision so "29.99" never becomes "29.990000".
func stringField(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

// imageField handles the three shapes schema.org images come in:
// a plain URL, an array of URLs, or an ImageObject with a url key.
func imageField(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		if len(t) > 0 {
			return imageField(t[0])
		}
	case map[string]any:
		return stringField(t["url"])
	}
	return ""
}

// fillFromMeta populates empty fields from Open Graph meta tags.
func fillFromMeta(doc *goquery.Document, p *Product) {
	meta := func(property string) string {
		content, _ := doc.Find(`meta[property="` + property + `"]`).First().Attr("content")
		return strings.TrimSpace(content)
	}
	if p.Title == "" {
		p.Title = meta("og:title")
	}
	if p.Image == "" {
		p.Image = meta("og:image")
	}
	if p.Description == "" {
		p.Description = meta("og:description")
	}
	if p.PriceRaw == "" {
		p.PriceRaw = meta("product:price:amount")
	}
	if p.Currency == "" {
		p.Currency = meta("product:price:currency")
	}
}

// readabilityExcerpt derives a short description from the page body when
// neither structured data nor meta tags carried one. Best-effort.
func readabilityExcerpt(rawHTML, pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(strings.NewReader(rawHTML), u)
	if err != nil {
		return ""
	}
	excerpt := strings.TrimSpace(article.Excerpt)
	const maxExcerpt = 500
	if len(excerpt) > maxExcerpt {
		excerpt = excerpt[:maxExcerpt]
	}
	return excerpt
}
