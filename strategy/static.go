package strategy

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	tls "github.com/refraction-networking/utls"
	"github.com/use-agent/prodex/config"
	"github.com/use-agent/prodex/extract"
	"github.com/use-agent/prodex/models"
	"golang.org/x/time/rate"
)

const desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to
// http/1.1 only. Computed once at init time and reused per connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// Replace h2 with http/1.1 in the ALPN extension so the server never
	// negotiates HTTP/2, which Go's http.Transport cannot frame over a
	// utls connection.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// StaticFetch is the lightest strategy: one HTTP GET with browser-like
// headers and a Chrome TLS fingerprint, fed to the structured-data
// extractor. It only fails on transport errors; "no price found" is not
// an error since price is optional.
type StaticFetch struct {
	client  *http.Client
	timeout time.Duration
	limiter *rate.Limiter
}

// NewStaticFetch creates a StaticFetch strategy. The outbound limiter
// paces fetches across all concurrent requests.
func NewStaticFetch(cfg config.ScraperConfig) *StaticFetch {
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("static: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
	}
	return &StaticFetch{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		timeout: cfg.FetchTimeout,
		limiter: rate.NewLimiter(rate.Limit(cfg.OutboundRPS), 1),
	}
}

func (s *StaticFetch) Name() string { return models.StrategyStructuredFetch }

func (s *StaticFetch) Attempt(ctx context.Context, rawURL string) (*models.ExtractionAttempt, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("static: outbound pacing: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("static: build request: %w", err)
	}
	req.Header.Set("User-Agent", desktopUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("static: request failed: %w", err)
	}
	defer resp.Body.Close()

	const maxBody = 10 << 20
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("static: read body: %w", err)
	}

	ct := resp.Header.Get("Content-Type")
	if !isHTMLContentType(ct) {
		return nil, fmt.Errorf("static: non-html content-type %q (status %d)", ct, resp.StatusCode)
	}

	attempt := &models.ExtractionAttempt{
		Strategy: s.Name(),
		RawHTML:  string(body),
	}
	if resp.StatusCode >= 400 {
		// Bot walls serve their interstitial with a 403/503. Hand the body
		// back unparsed so block classification still sees it; an error
		// here would discard the only evidence of the block.
		return attempt, nil
	}
	if p := extract.Parse(attempt.RawHTML, rawURL); p != nil {
		attempt.Title = p.Title
		attempt.PriceRaw = p.PriceRaw
		attempt.Currency = p.Currency
		attempt.Image = p.Image
		attempt.Description = p.Description
	}
	return attempt, nil
}

func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}
