package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/coursedex/internal/core/domain"
	"github.com/custodia-labs/coursedex/internal/core/ports/driven"
	"github.com/custodia-labs/coursedex/internal/logger"
)

// Default embedding call policy.
const (
	DefaultEmbeddingBatchSize = 50
	DefaultEmbeddingAttempts  = 3
	DefaultEmbeddingTimeout   = 30 * time.Second
	defaultRetryBaseDelay     = 500 * time.Millisecond
)

// EmbeddingGenerator turns chunk texts and queries into vectors.
// It batches document texts, applies instruction prefixes, and wraps every
// backend call with a timeout, rate limiter, circuit breaker and retries.
type EmbeddingGenerator struct {
	service   driven.EmbeddingService
	settings  domain.EmbeddingSettings
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	baseDelay time.Duration
	log       *slog.Logger
}

// GeneratorOption configures an EmbeddingGenerator.
type GeneratorOption func(*EmbeddingGenerator)

// WithRetryBaseDelay sets the first backoff delay. It doubles per retry.
func WithRetryBaseDelay(d time.Duration) GeneratorOption {
	return func(g *EmbeddingGenerator) {
		g.baseDelay = d
	}
}

// WithRateLimiter replaces the limiter derived from RequestsPerSecond.
func WithRateLimiter(l *rate.Limiter) GeneratorOption {
	return func(g *EmbeddingGenerator) {
		g.limiter = l
	}
}

// NewEmbeddingGenerator creates a generator over the backend service.
// A nil service yields a generator whose calls fail with
// domain.ErrEmbeddingUnavailable.
func NewEmbeddingGenerator(service driven.EmbeddingService, settings domain.EmbeddingSettings, opts ...GeneratorOption) *EmbeddingGenerator {
	if settings.BatchSize <= 0 {
		settings.BatchSize = DefaultEmbeddingBatchSize
	}
	if settings.MaxRetries <= 0 {
		settings.MaxRetries = DefaultEmbeddingAttempts
	}
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultEmbeddingTimeout
	}

	limit := rate.Inf
	burst := 1
	if settings.RequestsPerSecond > 0 {
		limit = rate.Limit(settings.RequestsPerSecond)
		burst = max(1, int(settings.RequestsPerSecond))
	}

	log := logger.Component("embedding")
	g := &EmbeddingGenerator{
		service:   service,
		settings:  settings,
		limiter:   rate.NewLimiter(limit, burst),
		baseDelay: defaultRetryBaseDelay,
		log:       log,
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embedding",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		// Caller mistakes do not count against the backend.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, context.Canceled)
		},
	})

	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Available reports whether a backend service is configured.
func (g *EmbeddingGenerator) Available() bool {
	return g.service != nil
}

// Dimensions returns the vector width of the backend model.
func (g *EmbeddingGenerator) Dimensions() int {
	if g.service == nil {
		return 0
	}
	return g.service.Dimensions()
}

// ModelName returns the backend model name.
func (g *EmbeddingGenerator) ModelName() string {
	if g.service == nil {
		return ""
	}
	return g.service.ModelName()
}

// Ping checks the backend is reachable.
func (g *EmbeddingGenerator) Ping(ctx context.Context) error {
	if g.service == nil {
		return domain.ErrEmbeddingUnavailable
	}
	callCtx, cancel := context.WithTimeout(ctx, g.settings.Timeout)
	defer cancel()
	return g.service.Ping(callCtx)
}

// EmbedDocuments embeds chunk texts in batches, preserving input order.
// Failures are returned as *domain.EmbeddingError.
func (g *EmbeddingGenerator) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if g.service == nil {
		return nil, &domain.EmbeddingError{Err: domain.ErrEmbeddingUnavailable}
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += g.settings.BatchSize {
		end := min(start+g.settings.BatchSize, len(texts))
		batch := make([]string, end-start)
		for i, t := range texts[start:end] {
			batch[i] = g.settings.DocumentPrefix + t
		}

		vectors, err := g.embedBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
		g.log.Debug("embedded batch", "from", start, "to", end, "total", len(texts))
	}
	return out, nil
}

// EmbedQuery embeds a search query with the query instruction prefix.
func (g *EmbeddingGenerator) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if g.service == nil {
		return nil, &domain.EmbeddingError{Err: domain.ErrEmbeddingUnavailable}
	}
	vectors, err := g.embedBatch(ctx, []string{g.settings.QueryPrefix + query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// embedBatch performs one logical batch call with retries.
func (g *EmbeddingGenerator) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	attempt := 0
	for attempt < g.settings.MaxRetries {
		attempt++

		if err := g.limiter.Wait(ctx); err != nil {
			return nil, &domain.EmbeddingError{Attempts: attempt, Err: err}
		}

		vectors, err := g.call(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if !retryable(ctx, err) || attempt == g.settings.MaxRetries {
			break
		}

		delay := g.baseDelay << (attempt - 1)
		g.log.Debug("embedding call failed, will retry", "attempt", attempt, "delay", delay, "error", err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, &domain.EmbeddingError{Attempts: attempt, Err: ctx.Err()}
		case <-timer.C:
		}
	}
	return nil, &domain.EmbeddingError{Attempts: attempt, Err: lastErr}
}

// call runs one backend request under the per-call timeout and breaker,
// then checks the response shape.
func (g *EmbeddingGenerator) call(ctx context.Context, texts []string) ([][]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.settings.Timeout)
	defer cancel()

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.service.EmbedBatch(callCtx, texts)
	})
	if err != nil {
		return nil, err
	}

	vectors, _ := result.([][]float32)
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: backend returned %d vectors for %d texts",
			domain.ErrInvalidInput, len(vectors), len(texts))
	}
	want := g.service.Dimensions()
	for i, v := range vectors {
		if len(v) == 0 || (want > 0 && len(v) != want) {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d",
				domain.ErrDimensionMismatch, i, len(v), want)
		}
	}
	return vectors, nil
}

// retryable reports whether another attempt could succeed.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	switch {
	case errors.Is(err, domain.ErrDimensionMismatch),
		errors.Is(err, domain.ErrEmbeddingUnavailable),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, gobreaker.ErrOpenState):
		return false
	}
	return true
}
