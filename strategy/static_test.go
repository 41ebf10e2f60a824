package strategy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/prodex/config"
)

func testScraperConfig() config.ScraperConfig {
	return config.ScraperConfig{
		NavTimeout:          5 * time.Second,
		SelectorWaitTimeout: time.Second,
		SettleTimeout:       time.Second,
		FetchTimeout:        5 * time.Second,
		OutboundRPS:         100,
	}
}

func TestStaticFetch_StructuredData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("request carried no user agent")
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><script type="application/ld+json">
		{"@type":"Product","name":"Steel Bottle","offers":{"price":"18.00","priceCurrency":"USD"}}
		</script></head><body></body></html>`))
	}))
	defer srv.Close()

	s := NewStaticFetch(testScraperConfig())
	attempt, err := s.Attempt(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if !attempt.OK() {
		t.Fatalf("attempt not OK: %+v", attempt)
	}
	if attempt.Title != "Steel Bottle" || attempt.PriceRaw != "18.00" || attempt.Currency != "USD" {
		t.Errorf("unexpected attempt: %+v", attempt)
	}
	if attempt.RawHTML == "" {
		t.Error("RawHTML not captured")
	}
}

func TestStaticFetch_NoStructuredDataStillReturnsAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Shop</title></head><body><p>nothing here</p></body></html>`))
	}))
	defer srv.Close()

	s := NewStaticFetch(testScraperConfig())
	attempt, err := s.Attempt(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if attempt.OK() {
		t.Errorf("attempt unexpectedly OK: %+v", attempt)
	}
	if attempt.RawHTML == "" {
		t.Error("RawHTML must be captured even without extractable fields")
	}
}

func TestStaticFetch_NonHTMLResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error":"service unavailable"}`))
	}))
	defer srv.Close()

	s := NewStaticFetch(testScraperConfig())
	if _, err := s.Attempt(context.Background(), srv.URL); err == nil {
		t.Fatal("expected an error for a non-HTML response")
	}
}

func TestStaticFetch_BlockPageWithErrorStatus(t *testing.T) {
	// Bot walls serve their interstitial with a 403/503 status. The body
	// must come back as a failed attempt, not an error, so the caller can
	// classify the block.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`<html><body>Please complete the CAPTCHA. We detected unusual traffic.</body></html>`))
	}))
	defer srv.Close()

	s := NewStaticFetch(testScraperConfig())
	attempt, err := s.Attempt(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if attempt.OK() {
		t.Errorf("interstitial attempt unexpectedly OK: %+v", attempt)
	}
	if !strings.Contains(attempt.RawHTML, "CAPTCHA") {
		t.Error("interstitial body not carried in RawHTML")
	}
}

func TestStaticFetch_TransportError(t *testing.T) {
	s := NewStaticFetch(testScraperConfig())
	if _, err := s.Attempt(context.Background(), "http://127.0.0.1:1/unreachable"); err == nil {
		t.Fatal("expected a transport error")
	}
}
