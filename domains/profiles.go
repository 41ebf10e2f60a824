package domains

import (
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
)

// SelectorProfile holds ordered CSS selector lists for one site. Lists
// are tried in declared order; the first selector whose element yields
// non-empty text (or the relevant attribute) wins.
type SelectorProfile struct {
	// Fragment is the hostname substring this profile applies to.
	Fragment string

	Price []string
	Title []string
	Image []string

	// SettleDelay is an extra fixed wait after navigation for sites with
	// unusually long dynamic rendering. Zero for most sites.
	SettleDelay time.Duration
}

var profiles = []SelectorProfile{
	{
		Fragment: "amazon.",
		Price: []string{
			"#corePrice_feature_div .a-offscreen",
			".a-price .a-offscreen",
			"#priceblock_ourprice",
			"#priceblock_dealprice",
			"#price_inside_buybox",
		},
		Title: []string{"#productTitle", "#title"},
		Image: []string{"#landingImage", "#imgBlkFront", "#main-image"},
	},
	{
		Fragment: "ebay.",
		Price: []string{
			".x-price-primary .ux-textspans",
			"[itemprop=price]",
			"#prcIsum",
		},
		Title: []string{".x-item-title__mainTitle .ux-textspans", "#itemTitle", "h1.it-ttl"},
		Image: []string{".ux-image-carousel-item img", "#icImg"},
	},
	{
		Fragment: "walmart.",
		Price: []string{
			"[itemprop=price]",
			"[data-testid=price-wrap] span",
			"span[data-automation-id=product-price]",
		},
		Title:       []string{"h1[itemprop=name]", "h1"},
		Image:       []string{"[data-testid=hero-image-container] img", "img[data-testid=media-thumbnail]"},
		SettleDelay: 3 * time.Second,
	},
	{
		Fragment: "target.com",
		Price: []string{
			"[data-test=product-price]",
			"span[data-test=product-price]",
		},
		Title:       []string{"h1[data-test=product-title]", "h1"},
		Image:       []string{"[data-test=image-gallery-item-0] img", "picture img"},
		SettleDelay: 3 * time.Second,
	},
	{
		Fragment: "bestbuy.",
		Price: []string{
			".priceView-customer-price span",
			".priceView-hero-price span",
			"[data-testid=customer-price] span",
		},
		Title: []string{".sku-title h1", "h1.heading-5"},
		Image: []string{".primary-image", "img.primary-image-grid"},
	},
	{
		Fragment: "etsy.",
		Price: []string{
			"[data-selector=price-only] p",
			".wt-text-title-larger",
			"p.wt-text-title-03",
		},
		Title: []string{"h1[data-buy-box-listing-title]", "h1"},
		Image: []string{"img[data-carousel-first-image]", ".image-carousel-container img"},
	},
	{
		Fragment: "aliexpress.",
		Price: []string{
			".product-price-current",
			"[class*=price--currentPriceText]",
			".uniform-banner-box-price",
		},
		Title:       []string{"h1[data-pl=product-title]", ".product-title-text", "h1"},
		Image:       []string{".magnifier-image", "[class*=image-view] img"},
		SettleDelay: 4 * time.Second,
	},
	{
		Fragment: "nike.",
		Price:    []string{"[data-testid=currentPrice-container]", ".product-price"},
		Title:    []string{"h1[data-testid=product_title]", "#pdp_product_title", "h1"},
		Image:    []string{"[data-testid=HeroImg] img", "picture img"},
	},
}

// Lookup returns the selector profile whose fragment matches the
// hostname, or nil when the site has no dedicated profile.
func Lookup(hostname string) *SelectorProfile {
	h := strings.ToLower(hostname)
	for i := range profiles {
		if strings.Contains(h, profiles[i].Fragment) {
			return &profiles[i]
		}
	}
	return nil
}

// GenericPrice, GenericTitle and GenericImage are the fallback selector
// lists for sites without a profile, or whose profile yields nothing.
var (
	GenericPrice = []string{
		"[itemprop=price]",
		".price",
		".product-price",
		".price-current",
		"[class*=product-price]",
		"[class*=price]",
	}
	GenericTitle = []string{
		"h1[itemprop=name]",
		"[itemprop=name]",
		"h1.product-title",
		"h1",
	}
	GenericImage = []string{
		"img[itemprop=image]",
		".product-image img",
		"[class*=product] img",
	}
)

// Selector tables are static data; a typo in one would silently disable
// a site. Validate every selector with cascadia at init.
func init() {
	validate := func(selectors []string) {
		for _, s := range selectors {
			if _, err := cascadia.Parse(s); err != nil {
				panic("domains: invalid selector " + s + ": " + err.Error())
			}
		}
	}
	for _, p := range profiles {
		validate(p.Price)
		validate(p.Title)
		validate(p.Image)
	}
	validate(GenericPrice)
	validate(GenericTitle)
	validate(GenericImage)
}
