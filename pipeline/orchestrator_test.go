package pipeline

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/use-agent/prodex/cache"
	"github.com/use-agent/prodex/config"
	"github.com/use-agent/prodex/models"
	"github.com/use-agent/prodex/ratelimit"
	"github.com/use-agent/prodex/strategy"
)

type stubStrategy struct {
	name    string
	attempt *models.ExtractionAttempt
	err     error
	calls   int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Attempt(ctx context.Context, rawURL string) (*models.ExtractionAttempt, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	a := *s.attempt
	a.Strategy = s.name
	return &a, nil
}

type stubSecondary struct {
	stubStrategy
	available bool
}

func (s *stubSecondary) Available() bool { return s.available }

func okAttempt(title, priceRaw string) *models.ExtractionAttempt {
	return &models.ExtractionAttempt{
		Title:    title,
		PriceRaw: priceRaw,
		RawHTML:  "<html><head><title>" + title + "</title></head><body>page</body></html>",
	}
}

func newTestOrchestrator(opts Options) *Orchestrator {
	now := time.Now
	if opts.Cache == nil {
		opts.Cache = cache.NewWithClock(time.Hour, now)
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewWithClock(5*time.Second, now)
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = time.Hour
	}
	return New(opts)
}

func extractErr(t *testing.T, err error) *models.ExtractError {
	t.Helper()
	var ee *models.ExtractError
	if !errors.As(err, &ee) {
		t.Fatalf("error is %T, want *models.ExtractError: %v", err, err)
	}
	return ee
}

func TestFetch_StaticDomainUsesOnlyStaticStrategy(t *testing.T) {
	static := &stubStrategy{name: models.StrategyStructuredFetch, attempt: okAttempt("Ceramic Mug", "$14.00")}
	desktop := &stubStrategy{name: models.StrategyBrowserDesktop, attempt: okAttempt("x", "")}

	o := newTestOrchestrator(Options{Static: static, Desktop: desktop})
	p, cached, err := o.Fetch(context.Background(), "https://smallshop.example.com/mug", "")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if cached {
		t.Error("fresh fetch reported cached")
	}
	if desktop.calls != 0 {
		t.Error("browser strategy ran for a static domain")
	}
	if p.Title == nil || *p.Title != "Ceramic Mug" {
		t.Errorf("Title = %v", p.Title)
	}
	if p.Price == nil || *p.Price != 14.0 {
		t.Errorf("Price = %v", p.Price)
	}
	if p.Currency == nil || *p.Currency != "USD" {
		t.Errorf("Currency = %v", p.Currency)
	}
	if p.Strategy != models.StrategyStructuredFetch {
		t.Errorf("Strategy = %q", p.Strategy)
	}
}

func TestFetch_FallbackSkipsPlaceholderAttempts(t *testing.T) {
	secondary := &stubSecondary{
		stubStrategy: stubStrategy{name: models.StrategySecondaryEngine, err: errors.New("engine crashed")},
		available:    true,
	}
	desktop := &stubStrategy{name: models.StrategyBrowserDesktop, attempt: okAttempt("Robot Check", "")}
	mobile := &stubStrategy{name: models.StrategyBrowserMobile, attempt: okAttempt("Trail Shoes", "89,99 EUR")}
	static := &stubStrategy{name: models.StrategyStructuredFetch, attempt: okAttempt("never reached", "")}

	o := newTestOrchestrator(Options{Static: static, Desktop: desktop, Mobile: mobile, Secondary: secondary})
	p, _, err := o.Fetch(context.Background(), "https://www.amazon.com/dp/B0TRAIL", "")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if secondary.calls != 1 || desktop.calls != 1 || mobile.calls != 1 {
		t.Errorf("call counts secondary=%d desktop=%d mobile=%d, want 1 each", secondary.calls, desktop.calls, mobile.calls)
	}
	if static.calls != 0 {
		t.Error("static ran after a browser strategy already won")
	}
	if p.Strategy != models.StrategyBrowserMobile {
		t.Errorf("Strategy = %q", p.Strategy)
	}
	if p.Price == nil || *p.Price != 89.99 {
		t.Errorf("Price = %v", p.Price)
	}
	if p.Currency == nil || *p.Currency != "EUR" {
		t.Errorf("Currency = %v", p.Currency)
	}
}

func TestFetch_UnavailableSecondaryIsSkipped(t *testing.T) {
	secondary := &stubSecondary{
		stubStrategy: stubStrategy{name: models.StrategySecondaryEngine, attempt: okAttempt("x", "")},
		available:    false,
	}
	desktop := &stubStrategy{name: models.StrategyBrowserDesktop, attempt: okAttempt("Drill", "$10")}
	static := &stubStrategy{name: models.StrategyStructuredFetch, attempt: okAttempt("x", "")}

	o := newTestOrchestrator(Options{Static: static, Desktop: desktop, Secondary: secondary})
	if _, _, err := o.Fetch(context.Background(), "https://www.walmart.com/ip/1", ""); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if secondary.calls != 0 {
		t.Error("unavailable secondary engine was invoked")
	}
}

func TestFetch_CacheHitSkipsStrategiesAndRateLimit(t *testing.T) {
	static := &stubStrategy{name: models.StrategyStructuredFetch, attempt: okAttempt("Ceramic Mug", "$14.00")}
	o := newTestOrchestrator(Options{Static: static})

	if _, _, err := o.Fetch(context.Background(), "https://smallshop.example.com/mug", ""); err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	// Same domain within the rate window: only a cache hit lets this pass.
	p, cached, err := o.Fetch(context.Background(), "https://smallshop.example.com/mug", "")
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if !cached {
		t.Error("second fetch not served from cache")
	}
	if static.calls != 1 {
		t.Errorf("strategy ran %d times, want 1", static.calls)
	}
	if p.Title == nil || *p.Title != "Ceramic Mug" {
		t.Errorf("Title = %v", p.Title)
	}
}

func TestFetch_RateLimited(t *testing.T) {
	static := &stubStrategy{name: models.StrategyStructuredFetch, attempt: okAttempt("Mug", "$5")}
	o := newTestOrchestrator(Options{Static: static})

	if _, _, err := o.Fetch(context.Background(), "https://smallshop.example.com/a", ""); err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	_, _, err := o.Fetch(context.Background(), "https://smallshop.example.com/b", "")
	ee := extractErr(t, err)
	if ee.Code != models.ErrCodeRateLimited {
		t.Fatalf("Code = %q, want RATE_LIMITED", ee.Code)
	}
	if ee.RetryAfter < 1 {
		t.Errorf("RetryAfter = %d, want >= 1", ee.RetryAfter)
	}
}

func TestFetch_DistinctIdentifiersNotCoupled(t *testing.T) {
	static := &stubStrategy{name: models.StrategyStructuredFetch, attempt: okAttempt("Mug", "$5")}
	o := newTestOrchestrator(Options{Static: static})

	if _, _, err := o.Fetch(context.Background(), "https://smallshop.example.com/a", "alice"); err != nil {
		t.Fatalf("alice: %v", err)
	}
	if _, _, err := o.Fetch(context.Background(), "https://smallshop.example.com/b", "bob"); err != nil {
		t.Fatalf("bob: %v", err)
	}
}

func TestFetch_BlockedWinnerIsRejected(t *testing.T) {
	static := &stubStrategy{name: models.StrategyStructuredFetch, attempt: &models.ExtractionAttempt{
		Title:   "Some Product",
		RawHTML: "<html><body>Please verify you are human to continue</body></html>",
	}}
	o := newTestOrchestrator(Options{Static: static})

	_, _, err := o.Fetch(context.Background(), "https://smallshop.example.com/x", "")
	ee := extractErr(t, err)
	if ee.Code != models.ErrCodeBlocked {
		t.Fatalf("Code = %q, want BLOCKED", ee.Code)
	}
	if ee.Tag != models.TagBlocked {
		t.Errorf("Tag = %q", ee.Tag)
	}
}

func TestFetch_BlockedOnExhaustion(t *testing.T) {
	// No strategy wins, but the last page seen is an interstitial: the
	// failure must classify as BLOCKED, not as a generic exhaustion.
	static := &stubStrategy{name: models.StrategyStructuredFetch, attempt: &models.ExtractionAttempt{
		RawHTML: "<html><head><title>Access Denied</title></head><body>unusual traffic detected</body></html>",
	}}
	o := newTestOrchestrator(Options{Static: static})

	_, _, err := o.Fetch(context.Background(), "https://smallshop.example.com/x", "")
	ee := extractErr(t, err)
	if ee.Code != models.ErrCodeBlocked {
		t.Fatalf("Code = %q, want BLOCKED", ee.Code)
	}
}

func TestFetch_BlockPageServedWithErrorStatus(t *testing.T) {
	// A bot wall answering 403 with a CAPTCHA interstitial must classify
	// as BLOCKED end to end, not as generic exhaustion.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`<html><body>Please complete the CAPTCHA. We detected unusual traffic.</body></html>`))
	}))
	defer srv.Close()

	static := strategy.NewStaticFetch(config.ScraperConfig{
		FetchTimeout: 5 * time.Second,
		OutboundRPS:  100,
	})
	o := newTestOrchestrator(Options{Static: static})

	_, _, err := o.Fetch(context.Background(), srv.URL+"/item", "")
	ee := extractErr(t, err)
	if ee.Code != models.ErrCodeBlocked {
		t.Fatalf("Code = %q, want BLOCKED", ee.Code)
	}
}

func TestFetch_NetworkFailureClassification(t *testing.T) {
	static := &stubStrategy{name: models.StrategyStructuredFetch, err: &net.OpError{
		Op:  "dial",
		Err: errors.New("connection refused"),
	}}
	o := newTestOrchestrator(Options{Static: static})

	_, _, err := o.Fetch(context.Background(), "https://smallshop.example.com/x", "")
	ee := extractErr(t, err)
	if ee.Code != models.ErrCodeNetwork {
		t.Fatalf("Code = %q, want NETWORK_ERROR", ee.Code)
	}
	if ee.Tag != models.TagNetworkError {
		t.Errorf("Tag = %q, want network_error", ee.Tag)
	}
}

func TestFetch_InvalidURL(t *testing.T) {
	o := newTestOrchestrator(Options{Static: &stubStrategy{name: "static", attempt: okAttempt("x", "")}})

	for _, raw := range []string{"", "notaurl", "ftp://example.com/x", "https://"} {
		_, _, err := o.Fetch(context.Background(), raw, "")
		ee := extractErr(t, err)
		if ee.Code != models.ErrCodeInvalidURL {
			t.Errorf("Fetch(%q) Code = %q, want INVALID_URL", raw, ee.Code)
		}
	}
}

func TestFetch_AllStrategiesFailed(t *testing.T) {
	static := &stubStrategy{name: models.StrategyStructuredFetch, err: errors.New("connect: connection refused")}
	o := newTestOrchestrator(Options{Static: static})

	_, _, err := o.Fetch(context.Background(), "https://smallshop.example.com/x", "")
	ee := extractErr(t, err)
	if ee.Code != models.ErrCodeExhausted {
		t.Fatalf("Code = %q, want ALL_STRATEGIES_FAILED", ee.Code)
	}
}

func TestFetch_TimeoutClassification(t *testing.T) {
	static := &stubStrategy{name: models.StrategyStructuredFetch, err: context.DeadlineExceeded}
	o := newTestOrchestrator(Options{Static: static})

	_, _, err := o.Fetch(context.Background(), "https://smallshop.example.com/x", "")
	ee := extractErr(t, err)
	if ee.Code != models.ErrCodeExhausted {
		t.Fatalf("Code = %q", ee.Code)
	}
	if ee.Tag != models.TagTimeout {
		t.Errorf("Tag = %q, want timeout", ee.Tag)
	}
}

func TestFetch_RequestDeadlineMapsToTimeout(t *testing.T) {
	static := &stubStrategy{name: models.StrategyStructuredFetch, err: context.DeadlineExceeded}
	o := newTestOrchestrator(Options{Static: static})

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, _, err := o.Fetch(ctx, "https://smallshop.example.com/x", "")
	ee := extractErr(t, err)
	if ee.Code != models.ErrCodeTimeout {
		t.Fatalf("Code = %q, want EXTRACTION_TIMEOUT", ee.Code)
	}
}

func TestFetch_SuccessIsCachedForNextCall(t *testing.T) {
	static := &stubStrategy{name: models.StrategyStructuredFetch, attempt: okAttempt("Mug", "$5")}
	c := cache.NewWithClock(time.Hour, time.Now)
	o := newTestOrchestrator(Options{Static: static, Cache: c})

	if _, _, err := o.Fetch(context.Background(), "https://smallshop.example.com/mug", ""); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("cache Len = %d, want 1", c.Len())
	}
}
