package strategy

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/prodex/domains"
	"github.com/use-agent/prodex/extract"
	"github.com/use-agent/prodex/models"
)

// buildAttempt turns rendered HTML into an extraction attempt: the
// structured-data extractor runs first; when it yields no usable title
// or price, the domain's selector lists are walked in declared order,
// then the generic selectors, then the page <title> as a last resort.
func buildAttempt(name, rawHTML, rawURL string, profile *domains.SelectorProfile) *models.ExtractionAttempt {
	attempt := &models.ExtractionAttempt{Strategy: name, RawHTML: rawHTML}

	if p := extract.Parse(rawHTML, rawURL); p != nil {
		attempt.Title = p.Title
		attempt.PriceRaw = p.PriceRaw
		attempt.Currency = p.Currency
		attempt.Image = p.Image
		attempt.Description = p.Description
	}
	if attempt.OK() && attempt.PriceRaw != "" {
		return attempt
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return attempt
	}

	if profile != nil {
		applySelectors(doc, attempt, profile.Title, profile.Price, profile.Image)
	}
	applySelectors(doc, attempt, domains.GenericTitle, domains.GenericPrice, domains.GenericImage)

	if attempt.Title == "" || models.IsPlaceholderTitle(attempt.Title) {
		if t := pageTitle(rawHTML); t != "" {
			attempt.Title = t
		}
	}
	return attempt
}

// applySelectors fills still-empty fields from the given ordered
// selector lists. The first selector whose element yields non-empty
// text (or the relevant attribute) wins.
func applySelectors(doc *goquery.Document, a *models.ExtractionAttempt, title, price, image []string) {
	if a.Title == "" || models.IsPlaceholderTitle(a.Title) {
		if t := firstText(doc, title); t != "" {
			a.Title = t
		}
	}
	if a.PriceRaw == "" {
		a.PriceRaw = firstText(doc, price)
	}
	if a.Image == "" {
		a.Image = firstAttr(doc, image, "src", "data-src", "content", "href")
	}
}

// firstText walks selectors in order and returns the first non-empty
// element text, falling back to the element's content attribute (meta
// tags carry their value there).
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		if t := strings.TrimSpace(el.Text()); t != "" {
			return t
		}
		if c, ok := el.Attr("content"); ok && strings.TrimSpace(c) != "" {
			return strings.TrimSpace(c)
		}
	}
	return ""
}

// firstAttr walks selectors in order and returns the first non-empty
// value among the given attributes.
func firstAttr(doc *goquery.Document, selectors []string, attrs ...string) string {
	for _, sel := range selectors {
		el := doc.Find(sel).First()
		if el.Length() == 0 {
			continue
		}
		for _, attr := range attrs {
			if v, ok := el.Attr(attr); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}
