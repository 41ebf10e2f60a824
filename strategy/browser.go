package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/prodex/config"
	"github.com/use-agent/prodex/domains"
	"github.com/use-agent/prodex/models"
	"github.com/ysmood/gson"
)

// Profile selects the user-agent persona a browser attempt presents.
// Mobile pages frequently face fewer bot defenses, so the pipeline can
// retry with ProfileMobile after a desktop miss.
type Profile struct {
	Name      string
	UserAgent string
	Width     int
	Height    int
	Mobile    bool
}

var (
	ProfileDesktop = Profile{
		Name:      models.StrategyBrowserDesktop,
		UserAgent: desktopUA,
		Width:     1366,
		Height:    900,
	}
	ProfileMobile = Profile{
		Name:      models.StrategyBrowserMobile,
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1",
		Width:     390,
		Height:    844,
		Mobile:    true,
	}
)

// Session manages the shared browser process and the page pool.
// It is safe for concurrent use.
type Session struct {
	browser     *rod.Browser
	pagePool    rod.Pool[rod.Page]
	maxPages    int
	activePages atomic.Int32
}

// NewSession launches a headless browser with automation-fingerprint
// countermeasures and initialises the reusable page pool.
func NewSession(cfg config.BrowserConfig) (*Session, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.DefaultProxy != "" {
		l = l.Proxy(cfg.DefaultProxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser launch: %w", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("browser connect: %w", err)
	}

	return &Session{
		browser:  browser,
		pagePool: rod.NewPagePool(cfg.MaxPages),
		maxPages: cfg.MaxPages,
	}, nil
}

// Stats returns a snapshot of the pool's current state.
func (s *Session) Stats() models.PoolStats {
	return models.PoolStats{
		MaxPages:    s.maxPages,
		ActivePages: int(s.activePages.Load()),
	}
}

// Close drains the page pool and kills the browser process. Call on
// graceful shutdown to prevent zombie Chrome processes.
func (s *Session) Close() {
	slog.Info("browser session shutting down: draining page pool")
	s.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	s.browser.MustClose()
	slog.Info("browser session shutdown complete")
}

// Browser drives one headless extraction per Attempt call:
// acquire page → navigate → profile wait → interact → settle → extract,
// releasing the page on every exit path.
type Browser struct {
	sess    *Session
	profile Profile
	cfg     config.ScraperConfig
}

// NewBrowser creates a browser strategy bound to the shared session and
// one user-agent profile.
func NewBrowser(sess *Session, profile Profile, cfg config.ScraperConfig) *Browser {
	return &Browser{sess: sess, profile: profile, cfg: cfg}
}

func (b *Browser) Name() string { return b.profile.Name }

func (b *Browser) Attempt(ctx context.Context, rawURL string) (*models.ExtractionAttempt, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: parse url: %w", b.Name(), err)
	}
	host := domains.Normalize(u.Hostname())
	profile := domains.Lookup(host)

	// ── Acquire page from pool ──────────────────────────────────────
	b.sess.activePages.Add(1)
	defer b.sess.activePages.Add(-1)

	page, acquireErr := b.sess.pagePool.Get(func() (*rod.Page, error) {
		return b.sess.browser.Page(proto.TargetCreateTarget{})
	})
	if acquireErr != nil {
		return nil, fmt.Errorf("%s: acquire page: %w", b.Name(), acquireErr)
	}

	// CRITICAL DEFER: release the page on every exit path. about:blank
	// uses the original page reference so cleanup succeeds even after
	// the request context has expired.
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		b.sess.pagePool.Put(page)
	}()

	// ── Stealth + persona (must precede navigation) ─────────────────
	if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
	}
	_ = proto.EmulationSetUserAgentOverride{UserAgent: b.profile.UserAgent}.Call(page)
	_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  b.profile.Width,
		Height: b.profile.Height,
		Mobile: b.profile.Mobile,
	})
	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: proto.NetworkHeaders{
			"Referer": gson.New("https://www.google.com/search?q=" + url.QueryEscape(host)),
		},
	}.Call(page)

	// ── Resource hijack (images/fonts/media slow settles) ───────────
	router := setupHijack(page)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	// ── Navigate (fatal to this attempt on timeout) ─────────────────
	navCtx, navCancel := context.WithTimeout(ctx, b.cfg.NavTimeout)
	defer navCancel()
	p := page.Context(navCtx)

	if navErr := p.Navigate(rawURL); navErr != nil {
		return nil, fmt.Errorf("%s: navigate: %w", b.Name(), navErr)
	}

	// ── Domain-specific wait (soft-failing) ─────────────────────────
	if profile != nil {
		b.waitForPriceSelector(navCtx, p, profile.Price)
		if profile.SettleDelay > 0 {
			sleepCtx(navCtx, profile.SettleDelay)
			lightScroll(p)
		}
	}

	// ── Human-like interaction (never aborts extraction) ────────────
	humanize(p)

	// ── Settle: wait for the DOM to quiet (soft-failing) ────────────
	// NOTE: WaitRequestIdle uses the Fetch domain which conflicts with
	// HijackRequests on Chromium 145+; WaitDOMStable is the safe wait.
	settlePage := page.Context(ctx).Timeout(b.cfg.SettleTimeout)
	if stableErr := settlePage.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", stableErr)
	}

	// ── Extract rendered HTML ───────────────────────────────────────
	// Read via the request context, not navCtx: the soft waits above may
	// have consumed the navigation budget, and a loaded page must still
	// be extractable.
	rawHTML, htmlErr := page.Context(ctx).HTML()
	if htmlErr != nil {
		return nil, fmt.Errorf("%s: extract html: %w", b.Name(), htmlErr)
	}

	return buildAttempt(b.Name(), rawHTML, rawURL, profile), nil
}

// waitForPriceSelector polls until any of the profile's price selectors
// is present, the wait budget runs out, or the context ends. Timeouts
// are soft; extraction proceeds with whatever rendered.
func (b *Browser) waitForPriceSelector(ctx context.Context, p *rod.Page, selectors []string) {
	if len(selectors) == 0 {
		return
	}
	deadline := time.Now().Add(b.cfg.SelectorWaitTimeout)
	for time.Now().Before(deadline) {
		for _, sel := range selectors {
			if has, _, err := p.Has(sel); err == nil && has {
				return
			}
		}
		if !sleepCtx(ctx, 250*time.Millisecond) {
			return
		}
	}
}

// sleepCtx sleeps for d, returning false when the context ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
