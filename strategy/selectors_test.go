package strategy

import (
	"testing"

	"github.com/use-agent/prodex/domains"
	"github.com/use-agent/prodex/models"
)

const renderedAmazonPage = `<html><head><title>Amazon.com: Trail Shoes</title></head><body>
<span id="productTitle"> Trail Running Shoes, Men's 10 </span>
<div id="corePrice_feature_div"><span class="a-offscreen">$89.95</span></div>
<img id="landingImage" src="https://m.media.example.com/shoe.jpg"/>
</body></html>`

func TestBuildAttempt_DomainSelectorWalk(t *testing.T) {
	profile := domains.Lookup("amazon.com")
	if profile == nil {
		t.Fatal("no amazon profile")
	}

	a := buildAttempt(models.StrategyBrowserDesktop, renderedAmazonPage, "https://www.amazon.com/dp/X", profile)
	if a.Title != "Trail Running Shoes, Men's 10" {
		t.Errorf("Title = %q", a.Title)
	}
	if a.PriceRaw != "$89.95" {
		t.Errorf("PriceRaw = %q", a.PriceRaw)
	}
	if a.Image != "https://m.media.example.com/shoe.jpg" {
		t.Errorf("Image = %q", a.Image)
	}
}

func TestBuildAttempt_StructuredDataWinsOverSelectors(t *testing.T) {
	page := `<html><head><script type="application/ld+json">
	{"@type":"Product","name":"Canonical Name","offers":{"price":"10.00"}}
	</script></head><body><h1>Wrong Selector Name</h1></body></html>`

	a := buildAttempt(models.StrategyBrowserDesktop, page, "https://shop.example.com/x", nil)
	if a.Title != "Canonical Name" {
		t.Errorf("Title = %q, structured data must win", a.Title)
	}
}

func TestBuildAttempt_GenericSelectorsAndTitleFallback(t *testing.T) {
	page := `<html><head><title>Acme Shop — Blue Mug</title></head><body>
	<div class="product-price">12,50 €</div>
	</body></html>`

	a := buildAttempt(models.StrategyBrowserDesktop, page, "https://acme.example.com/mug", nil)
	if a.PriceRaw == "" {
		t.Error("generic price selector found nothing")
	}
	if a.Title != "Acme Shop — Blue Mug" {
		t.Errorf("Title = %q, want <title> last resort", a.Title)
	}
}

func TestBuildAttempt_PlaceholderTitleNotOK(t *testing.T) {
	page := `<html><head><title>Robot Check</title></head><body><p>detected unusual traffic</p></body></html>`
	a := buildAttempt(models.StrategyBrowserDesktop, page, "https://www.amazon.com/dp/X", domains.Lookup("amazon.com"))
	if a.OK() {
		t.Errorf("attempt with placeholder title must not be OK: %+v", a)
	}
}
