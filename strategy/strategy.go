// Package strategy implements the three extraction strategies the
// pipeline falls back through: a plain HTTP fetch, a headless browser
// session, and an out-of-process secondary engine.
package strategy

import (
	"bytes"
	"context"
	"strings"

	"github.com/use-agent/prodex/models"
	"golang.org/x/net/html"
)

// Strategy is one way of turning a URL into an extraction attempt.
// Attempt returns an error only for transport-level failures; "nothing
// usable extracted" is expressed by an attempt whose OK() is false.
type Strategy interface {
	// Name returns the strategy identifier used in results and logs.
	Name() string

	// Attempt fetches the URL and extracts raw product fields.
	Attempt(ctx context.Context, rawURL string) (*models.ExtractionAttempt, error)
}

// pageTitle finds the first <title> element in raw HTML via the
// tokenizer. Used as a last-resort title by the browser strategy.
func pageTitle(rawHTML string) string {
	tokenizer := html.NewTokenizer(bytes.NewReader([]byte(rawHTML)))
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				if tokenizer.Next() == html.TextToken {
					return strings.TrimSpace(string(tokenizer.Text()))
				}
				return ""
			}
		}
	}
}
