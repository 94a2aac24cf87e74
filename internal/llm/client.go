package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/refrain2333/legal-retrieval/internal/config"
	apperrors "github.com/refrain2333/legal-retrieval/internal/errors"
)

// cacheEntry is the cached value for one (prompt, model, temperature,
// max_tokens) key (§4.5).
type cacheEntry struct {
	text string
}

// budget tracks a rolling daily spend against DailyBudgetUSD, refusing new
// calls past RefuseThreshold (§4.5, §7).
type budget struct {
	mu      sync.Mutex
	day     string
	spent   float64
	daily   float64
	warn    float64
	refuse  float64
}

func newBudget(daily, warn, refuse float64) *budget {
	return &budget{day: time.Now().UTC().Format("2006-01-02"), daily: daily, warn: warn, refuse: refuse}
}

// costPerCall is a flat per-call cost estimate; the service tracks LLM
// spend by call count rather than token-metered billing, since provider
// responses do not reliably report token usage across both SDKs.
const costPerCall = 0.002

// reserve records one call's estimated cost and reports whether the
// refuse threshold has been crossed.
func (b *budget) reserve() (allowed bool, warnLevel bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	today := time.Now().UTC().Format("2006-01-02")
	if today != b.day {
		b.day = today
		b.spent = 0
	}

	if b.daily <= 0 {
		return true, false
	}
	ratio := b.spent / b.daily
	if ratio >= b.refuse {
		return false, true
	}
	b.spent += costPerCall
	return true, ratio+costPerCall/b.daily >= b.warn
}

// Client is the LLM Client (C5): dual-provider failover behind a circuit
// breaker, response cache, retry/backoff, and a daily budget (§4.5).
type Client struct {
	primary  Provider
	fallback Provider
	breaker  *apperrors.CircuitBreaker
	cache    *lru.Cache[string, cacheEntry]
	budget   *budget

	requestTimeout time.Duration
	maxRetries     int

	stickyMu      sync.Mutex
	stickyUntil   time.Time
}

// NewClient builds a Client from the resolved configuration and the two
// provider API keys (read from the environment by the caller, never
// logged or embedded in config files).
func NewClient(cfg config.LLMConfig, anthropicAPIKey, openaiAPIKey string) (*Client, error) {
	timeout, err := time.ParseDuration(cfg.RequestTimeout)
	if err != nil {
		return nil, apperrors.Internal(fmt.Sprintf("parse llm.request_timeout %q", cfg.RequestTimeout), err)
	}
	tripDuration, err := time.ParseDuration(cfg.CircuitBreakerTripDuration)
	if err != nil {
		return nil, apperrors.Internal(fmt.Sprintf("parse llm.circuit_breaker_trip_duration %q", cfg.CircuitBreakerTripDuration), err)
	}

	cacheCap := cfg.ResponseCacheCap
	if cacheCap <= 0 {
		cacheCap = 1000
	}
	cache, err := lru.New[string, cacheEntry](cacheCap)
	if err != nil {
		return nil, apperrors.Internal("create llm response cache", err)
	}

	primary := selectProvider(cfg.PrimaryProvider, cfg.AnthropicModel, cfg.OpenAIModel, anthropicAPIKey, openaiAPIKey)
	fallback := selectProvider(cfg.FallbackProvider, cfg.AnthropicModel, cfg.OpenAIModel, anthropicAPIKey, openaiAPIKey)

	return newClientWithProviders(primary, fallback, cache, timeout, tripDuration, cfg.MaxRetries, cfg.DailyBudgetUSD, cfg.WarnThreshold, cfg.RefuseThreshold), nil
}

// newClientWithProviders builds a Client from already-constructed providers,
// letting tests inject fakes without touching either real SDK client.
func newClientWithProviders(primary, fallback Provider, cache *lru.Cache[string, cacheEntry], timeout, tripDuration time.Duration, maxRetries int, dailyBudget, warn, refuse float64) *Client {
	return &Client{
		primary:        primary,
		fallback:       fallback,
		breaker:        apperrors.NewCircuitBreaker("llm-primary", apperrors.WithResetTimeout(tripDuration)),
		cache:          cache,
		budget:         newBudget(dailyBudget, warn, refuse),
		requestTimeout: timeout,
		maxRetries:     maxRetries,
	}
}

func selectProvider(name, anthropicModel, openaiModel, anthropicKey, openaiKey string) Provider {
	switch name {
	case "openai":
		return NewOpenAIProvider(openaiKey, openaiModel)
	default:
		return NewAnthropicProvider(anthropicKey, anthropicModel)
	}
}

// setFallbackSticky keeps calls on the fallback provider for d before the
// Client probes the primary again (§4.5). Generate passes a fixed 5m;
// LLM.FallbackStickyDuration is not read by the Client.
func (c *Client) setFallbackSticky(d time.Duration) {
	c.stickyMu.Lock()
	defer c.stickyMu.Unlock()
	c.stickyUntil = time.Now().Add(d)
}

func (c *Client) fallbackSticky() bool {
	c.stickyMu.Lock()
	defer c.stickyMu.Unlock()
	return time.Now().Before(c.stickyUntil)
}

// cacheKey hashes the full call signature so identical generations across
// requests reuse one cached response (§4.5).
func cacheKey(prompt, model string, temperature float64, maxTokens int) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%f\x00%d", prompt, model, temperature, maxTokens)
	return hex.EncodeToString(h.Sum(nil))
}

// Generate produces text for prompt, applying cache, budget, circuit
// breaker, retry/backoff, and sticky-fallback in that order (§4.5, §7):
// degrades to the fallback provider on primary failure, and to an error
// identifying the caller should degrade further (empty string) when the
// budget is exhausted or both providers fail.
func (c *Client) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	modelKey := c.primary.Name()
	key := cacheKey(prompt, modelKey, temperature, maxTokens)
	if entry, ok := c.cache.Get(key); ok {
		return entry.text, nil
	}

	allowed, _ := c.budget.reserve()
	if !allowed {
		return "", apperrors.TransientLLM("daily llm budget exhausted", nil)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	useFallback := c.fallbackSticky() || !c.breaker.Allow()

	var text string
	var err error
	if !useFallback {
		text, err = c.generateWithRetry(callCtx, c.primary, prompt, maxTokens, temperature)
		if err == nil {
			c.breaker.RecordSuccess()
			c.cache.Add(key, cacheEntry{text: text})
			return text, nil
		}
		c.breaker.RecordFailure()
		c.setFallbackSticky(5 * time.Minute)
	}

	text, err = c.generateWithRetry(callCtx, c.fallback, prompt, maxTokens, temperature)
	if err != nil {
		return "", apperrors.TransientLLM("both llm providers failed", err)
	}
	c.cache.Add(key, cacheEntry{text: text})
	return text, nil
}

// generateWithRetry retries transient provider failures with exponential
// backoff (cenkalti/backoff), bounded by maxRetries and the call's context
// deadline.
func (c *Client) generateWithRetry(ctx context.Context, p Provider, prompt string, maxTokens int, temperature float64) (string, error) {
	var result string
	op := func() error {
		text, err := p.Generate(ctx, prompt, maxTokens, temperature)
		if err != nil {
			return err
		}
		result = text
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxRetries)), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return "", err
	}
	return result, nil
}

// Health reports whether the primary provider (or, while sticky-fallback
// is active, the fallback provider) is reachable. Used by Router's
// llm_enhanced gating rule (§4.7) and the `health` CLI command.
func (c *Client) Health(ctx context.Context) error {
	if c.fallbackSticky() {
		return c.fallback.Health(ctx)
	}
	return c.primary.Health(ctx)
}
