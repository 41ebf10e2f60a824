// Package pipeline orchestrates a single product extraction: validation,
// cache, rate limiting, the strategy fallback chain, block detection and
// normalization.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/use-agent/prodex/cache"
	"github.com/use-agent/prodex/detect"
	"github.com/use-agent/prodex/domains"
	"github.com/use-agent/prodex/models"
	"github.com/use-agent/prodex/price"
	"github.com/use-agent/prodex/ratelimit"
	"github.com/use-agent/prodex/strategy"
)

// sampleSize bounds the HTML prefix kept for block detection and the
// stored rawHtmlSample.
const sampleSize = 2000

// Strategy is one extraction tactic. Attempt returns the raw fields it
// could pull from the page; an error means the tactic itself failed, not
// that the page had no product data.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, rawURL string) (*models.ExtractionAttempt, error)
}

// SecondaryStrategy is a Strategy whose backing engine may be absent.
type SecondaryStrategy interface {
	Strategy
	Available() bool
}

// Options wires an Orchestrator. Desktop, Mobile and Secondary may be
// nil; Static must be set.
type Options struct {
	Cache    *cache.Cache
	Limiter  *ratelimit.Limiter
	CacheTTL time.Duration

	Static    Strategy
	Desktop   Strategy
	Mobile    Strategy
	Secondary SecondaryStrategy

	Log *slog.Logger
}

// Orchestrator runs the extraction pipeline. Strategies for one request
// run strictly in sequence; concurrency exists only across requests.
type Orchestrator struct {
	cache   *cache.Cache
	limiter *ratelimit.Limiter
	ttl     time.Duration

	static    Strategy
	desktop   Strategy
	mobile    Strategy
	secondary SecondaryStrategy

	log *slog.Logger
}

func New(opts Options) *Orchestrator {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		cache:     opts.Cache,
		limiter:   opts.Limiter,
		ttl:       opts.CacheTTL,
		static:    opts.Static,
		desktop:   opts.Desktop,
		mobile:    opts.Mobile,
		secondary: opts.Secondary,
		log:       log,
	}
}

// Fetch runs the full pipeline for one URL. The bool reports whether the
// result came from cache. Failures are always *models.ExtractError.
func (o *Orchestrator) Fetch(ctx context.Context, rawURL, identifier string) (*models.NormalizedProduct, bool, error) {
	u, err := validateURL(rawURL)
	if err != nil {
		return nil, false, models.NewExtractError(models.ErrCodeInvalidURL, models.TagUnknown, "invalid URL", err)
	}

	// Cache is consulted before rate limiting so a hit never burns the
	// caller's window.
	key := cache.Key(rawURL)
	if p := o.cache.Get(key); p != nil {
		o.log.Debug("cache hit", "url", rawURL)
		return p, true, nil
	}

	domain := domains.Normalize(u.Hostname())

	if res := o.limiter.Check(domain, identifier); !res.Allowed {
		e := models.NewExtractError(models.ErrCodeRateLimited, models.TagUnknown, "rate limit exceeded for "+domain, nil)
		e.RetryAfter = res.RetryAfter
		return nil, false, e
	}

	winner, lastHTML, lastErr := o.runStrategies(ctx, rawURL, domain)

	if winner == nil {
		if lastHTML != "" && detect.Block(truncate(lastHTML, sampleSize)) {
			return nil, false, models.NewExtractError(models.ErrCodeBlocked, models.TagBlocked, "site is blocking automated access", lastErr)
		}
		if ctx.Err() != nil {
			return nil, false, models.NewExtractError(models.ErrCodeTimeout, models.TagTimeout, "extraction deadline exceeded", ctx.Err())
		}
		return nil, false, exhaustedError(lastErr, lastHTML)
	}

	sample := truncate(winner.RawHTML, sampleSize)
	if detect.Block(sample) {
		return nil, false, models.NewExtractError(models.ErrCodeBlocked, models.TagBlocked, "site is blocking automated access", nil)
	}

	product := normalize(winner, rawURL, domain, sample)
	o.cache.Set(key, product, o.ttl)
	o.log.Info("extraction complete",
		"url", rawURL,
		"domain", domain,
		"strategy", winner.Strategy,
		"hasPrice", product.Price != nil,
	)
	return product, false, nil
}

// runStrategies walks the fallback chain in order and stops at the first
// usable attempt. It reports the winner, the last HTML seen by any
// attempt (for block classification on exhaustion) and the last error.
func (o *Orchestrator) runStrategies(ctx context.Context, rawURL, domain string) (*models.ExtractionAttempt, string, error) {
	var (
		lastHTML string
		lastErr  error
	)
	for _, s := range o.plan(domain) {
		attempt, err := s.Attempt(ctx, rawURL)
		if err != nil {
			if !errors.Is(err, strategy.ErrEngineUnavailable) {
				o.log.Warn("strategy failed", "strategy", s.Name(), "url", rawURL, "error", err)
				lastErr = err
			}
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if attempt != nil && attempt.RawHTML != "" {
			lastHTML = attempt.RawHTML
		}
		if attempt.OK() {
			return attempt, lastHTML, nil
		}
		o.log.Debug("strategy yielded no usable data", "strategy", s.Name(), "url", rawURL)
	}
	return nil, lastHTML, lastErr
}

// plan builds the strategy order for a domain. Static sites get the
// single cheap fetch; dynamic sites escalate from the secondary engine
// (where preferred and present) through desktop and mobile browser
// passes down to the static fetch as a last resort.
func (o *Orchestrator) plan(domain string) []Strategy {
	if !domains.IsDynamic(domain) {
		return []Strategy{o.static}
	}

	var order []Strategy
	if o.secondary != nil && domains.PrefersSecondaryEngine(domain) && o.secondary.Available() {
		order = append(order, o.secondary)
	}
	if o.desktop != nil {
		order = append(order, o.desktop)
	}
	if o.mobile != nil {
		order = append(order, o.mobile)
	}
	return append(order, o.static)
}

// normalize converts a winning attempt into the final product. This is
// the only place a numeric price is ever computed.
func normalize(a *models.ExtractionAttempt, rawURL, domain, sample string) *models.NormalizedProduct {
	p := &models.NormalizedProduct{
		Domain:   domain,
		URL:      rawURL,
		Strategy: a.Strategy,
	}

	if t := collapseSpace(a.Title); t != "" {
		p.Title = &t
	}
	if raw := strings.TrimSpace(a.PriceRaw); raw != "" {
		p.PriceRaw = &raw
		p.Price = price.CleanPrice(raw)
	}

	switch {
	case a.Currency != "":
		c := strings.ToUpper(strings.TrimSpace(a.Currency))
		p.Currency = &c
	case a.PriceRaw != "":
		if c := price.ParseCurrency(a.PriceRaw); c != nil {
			p.Currency = c
		} else if c := price.SymbolCurrency(a.PriceRaw); c != nil {
			p.Currency = c
		}
	}

	if img := strings.TrimSpace(a.Image); img != "" {
		p.Image = &img
	}
	if d := strings.TrimSpace(a.Description); d != "" {
		p.Description = &d
	}
	if sample != "" {
		p.RawHTMLSample = &sample
	}
	return p
}

// exhaustedError classifies why the whole chain came up empty. A chain
// that only ever hit transport failures reports NETWORK_ERROR; anything
// else is plain exhaustion with a coarse tag.
func exhaustedError(lastErr error, lastHTML string) *models.ExtractError {
	switch {
	case lastErr == nil && lastHTML != "":
		// Pages were fetched but nothing parseable was found.
		return models.NewExtractError(models.ErrCodeExhausted, models.TagParseError, "all extraction strategies failed", nil)
	case errors.Is(lastErr, context.DeadlineExceeded):
		return models.NewExtractError(models.ErrCodeExhausted, models.TagTimeout, "all extraction strategies failed", lastErr)
	case isNetworkError(lastErr):
		return models.NewExtractError(models.ErrCodeNetwork, models.TagNetworkError, "all extraction strategies failed", lastErr)
	case lastErr != nil:
		return models.NewExtractError(models.ErrCodeExhausted, models.TagParseError, "all extraction strategies failed", lastErr)
	default:
		return models.NewExtractError(models.ErrCodeExhausted, models.TagUnknown, "all extraction strategies failed", nil)
	}
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}

// validateURL accepts only absolute http(s) URLs with a host.
func validateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New("scheme must be http or https")
	}
	if u.Host == "" {
		return nil, errors.New("missing host")
	}
	return u, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
