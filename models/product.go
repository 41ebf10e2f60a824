package models

import "strings"

// Strategy names, in the order the orchestrator may try them.
const (
	StrategyStructuredFetch = "structured-fetch"
	StrategyBrowserDesktop  = "browser-desktop"
	StrategyBrowserMobile   = "browser-mobile"
	StrategySecondaryEngine = "secondary-engine"
)

// NormalizedProduct is the final, normalized extraction result.
// Price is only ever written by the normalizer from PriceRaw; strategies
// never set it.
type NormalizedProduct struct {
	Title       *string  `json:"title"`
	Price       *float64 `json:"price"`
	PriceRaw    *string  `json:"priceRaw"`
	Currency    *string  `json:"currency"`
	Image       *string  `json:"image"`
	Description *string  `json:"description"`
	Domain      string   `json:"domain"`
	URL         string   `json:"url"`
	Blocked     bool     `json:"blocked"`

	// RawHTMLSample is a bounded prefix of the winning strategy's raw HTML,
	// kept for auditing and block classification only. It is never
	// re-parsed downstream.
	RawHTMLSample *string `json:"rawHtmlSample,omitempty"`

	// Strategy names the strategy that produced the result.
	Strategy string `json:"strategy,omitempty"`
}

// ExtractionAttempt carries the raw fields a single strategy extracted,
// before any normalization.
type ExtractionAttempt struct {
	Strategy    string
	Title       string
	PriceRaw    string
	Currency    string
	Image       string
	Description string

	// RawHTML is the full page HTML the strategy worked from. The
	// orchestrator truncates it for block detection and auditing.
	RawHTML string
}

// OK reports whether the attempt is usable: a title was extracted and it
// is not a known placeholder. The orchestrator advances to the next
// strategy when OK is false.
func (a *ExtractionAttempt) OK() bool {
	return a != nil && a.Title != "" && !IsPlaceholderTitle(a.Title)
}

// placeholderTitles are page titles that indicate an interstitial or an
// empty shell rather than a real product page.
var placeholderTitles = []string{
	"robot check",
	"access denied",
	"just a moment",
	"attention required",
	"page not found",
	"404",
	"are you a robot",
	"security check",
	"loading",
}

// IsPlaceholderTitle reports whether a title is a known non-product
// interstitial title.
func IsPlaceholderTitle(title string) bool {
	t := strings.ToLower(strings.TrimSpace(title))
	if t == "" {
		return true
	}
	for _, p := range placeholderTitles {
		if t == p || strings.HasPrefix(t, p) {
			return true
		}
	}
	return false
}
