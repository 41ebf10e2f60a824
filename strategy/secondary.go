package strategy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/prodex/config"
	"github.com/use-agent/prodex/models"
)

// ErrEngineUnavailable means the secondary engine binary is not
// installed or not runnable. It is a clean "strategy not applicable",
// not a failure; the pipeline degrades to the next strategy.
var ErrEngineUnavailable = errors.New("secondary engine unavailable")

// probeInterval bounds how often a failed availability probe is
// repeated, so an engine installed after startup is eventually found.
const probeInterval = 5 * time.Minute

// engineRequest is the single JSON line written to the engine's stdin.
type engineRequest struct {
	URL string `json:"url"`
}

// engineResponse is the JSON document the engine writes to stdout. The
// field names match NormalizedProduct; Error is set instead on failure.
type engineResponse struct {
	Title         string `json:"title"`
	PriceRaw      string `json:"priceRaw"`
	Currency      string `json:"currency"`
	Image         string `json:"image"`
	Description   string `json:"description"`
	RawHTMLSample string `json:"rawHtmlSample"`
	Error         string `json:"error"`
}

// SecondaryEngine invokes an independent out-of-process scraping engine
// over a narrow JSON-over-stdio protocol. It is preferred ahead of the
// headless browser for the most bot-defended domains.
type SecondaryEngine struct {
	bin     string
	timeout time.Duration

	mu        sync.Mutex
	available bool
	probedAt  time.Time
}

// NewSecondaryEngine creates the strategy. The binary is probed lazily
// on first use, never at construction.
func NewSecondaryEngine(cfg config.SecondaryConfig) *SecondaryEngine {
	return &SecondaryEngine{bin: cfg.Bin, timeout: cfg.Timeout}
}

func (e *SecondaryEngine) Name() string { return models.StrategySecondaryEngine }

// Available reports whether the engine binary exists and answers a
// version check. The probe is cheap and its result is cached; failures
// are re-probed after probeInterval.
func (e *SecondaryEngine) Available() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.available {
		return true
	}
	if time.Since(e.probedAt) < probeInterval {
		return false
	}
	e.probedAt = time.Now()

	if _, err := exec.LookPath(e.bin); err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, e.bin, "--version").Run(); err != nil {
		return false
	}
	e.available = true
	return true
}

func (e *SecondaryEngine) Attempt(ctx context.Context, rawURL string) (*models.ExtractionAttempt, error) {
	if !e.Available() {
		return nil, ErrEngineUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	input, err := json.Marshal(engineRequest{URL: rawURL})
	if err != nil {
		return nil, fmt.Errorf("secondary: encode request: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.bin, "extract")
	cmd.Stdin = bytes.NewReader(append(input, '\n'))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("secondary: %w", ctx.Err())
		}
		// A vanished binary between probe and run degrades cleanly.
		if errors.Is(err, exec.ErrNotFound) {
			e.markUnavailable()
			return nil, ErrEngineUnavailable
		}
		return nil, fmt.Errorf("secondary: engine exited: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	var resp engineResponse
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &resp); err != nil {
		return nil, fmt.Errorf("secondary: decode response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("secondary: engine error: %s", resp.Error)
	}

	return &models.ExtractionAttempt{
		Strategy:    e.Name(),
		Title:       resp.Title,
		PriceRaw:    resp.PriceRaw,
		Currency:    resp.Currency,
		Image:       resp.Image,
		Description: resp.Description,
		RawHTML:     resp.RawHTMLSample,
	}, nil
}

func (e *SecondaryEngine) markUnavailable() {
	e.mu.Lock()
	e.available = false
	e.probedAt = time.Now()
	e.mu.Unlock()
}
