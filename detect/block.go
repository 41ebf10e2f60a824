// Package detect classifies raw HTML samples as block/CAPTCHA pages.
package detect

import "strings"

// blockMarkers is the fixed vocabulary of phrases that indicate a site
// actively refused automated access rather than serving the page.
var blockMarkers = []string{
	"captcha",
	"unusual traffic",
	"verify you are human",
	"verify that you are human",
	"are you a robot",
	"robot check",
	"access denied",
	"automated access",
	"automated queries",
	"request blocked",
	"security check",
	"attention required",
	"pardon our interruption",
	"press & hold",
	"enable javascript and cookies to continue",
	"bot detection",
}

// Block reports whether the HTML sample looks like a block page. The
// check is a case-insensitive substring match against a fixed marker
// vocabulary; deterministic and stateless.
func Block(sample string) bool {
	s := strings.ToLower(sample)
	for _, marker := range blockMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
