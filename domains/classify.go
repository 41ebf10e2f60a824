// Package domains holds the static per-domain knowledge the pipeline
// relies on: which sites need a real browser, which warrant the
// secondary engine, and which CSS selectors find product fields.
package domains

import "strings"

// dynamicFragments lists hostname fragments of sites known to render
// product data client-side or to sit behind bot defenses. A hostname
// containing any fragment is classified dynamic.
var dynamicFragments = []string{
	"amazon.",
	"walmart.",
	"target.com",
	"bestbuy.",
	"ebay.",
	"etsy.",
	"aliexpress.",
	"shein.",
	"temu.",
	"wayfair.",
	"homedepot.",
	"lowes.",
	"costco.",
	"nike.",
	"adidas.",
	"zara.",
	"hm.com",
	"asos.",
	"zalando.",
	"nordstrom.",
	"macys.",
	"sephora.",
	"ulta.",
	"chewy.",
	"newegg.",
}

// secondaryPreferred lists the subset of dynamic sites with the hardest
// bot defenses, where the out-of-process engine is tried first.
var secondaryPreferred = []string{
	"amazon.",
	"walmart.",
	"target.com",
	"bestbuy.",
	"nike.",
}

// IsDynamic reports whether the hostname (normalized, "www." stripped)
// belongs to a JS-heavy or bot-defended site. Total function; unknown
// hosts are static.
func IsDynamic(hostname string) bool {
	return containsAny(hostname, dynamicFragments)
}

// PrefersSecondaryEngine reports whether the hostname qualifies for the
// secondary engine ahead of the headless browser.
func PrefersSecondaryEngine(hostname string) bool {
	return containsAny(hostname, secondaryPreferred)
}

// Normalize lowercases a hostname and strips a leading "www." so the
// fragment tables match consistently.
func Normalize(hostname string) string {
	h := strings.ToLower(hostname)
	return strings.TrimPrefix(h, "www.")
}

func containsAny(hostname string, fragments []string) bool {
	h := strings.ToLower(hostname)
	for _, f := range fragments {
		if strings.Contains(h, f) {
			return true
		}
	}
	return false
}
