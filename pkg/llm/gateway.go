package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"query-responder-be/internal/pkg/logger"
	"query-responder-be/pkg/rag"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// GatewayConfig bounds how hard the pipeline may hit the provider
type GatewayConfig struct {
	RequestsPerSecond float64
	Burst             int
	MaxConcurrent     int
	CallTimeout       time.Duration
	MaxRetries        int
	InitialBackoff    time.Duration
}

func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		RequestsPerSecond: 5,
		Burst:             5,
		MaxConcurrent:     8,
		CallTimeout:       60 * time.Second,
		MaxRetries:        2,
		InitialBackoff:    500 * time.Millisecond,
	}
}

// Gateway is the single entry point every stage uses to reach a language model.
// It queues callers behind a token bucket and a concurrency cap instead of failing
// them, retries transient provider errors, and tags failures with rag.ErrGeneration.
type Gateway struct {
	provider LLMProvider
	name     string
	cfg      GatewayConfig
	limiter  *rate.Limiter
	slots    chan struct{}
	logger   logger.ILogger
	trace    logger.ILogger
	tracer   trace.Tracer
}

var _ LLMProvider = &Gateway{}

func NewGateway(provider LLMProvider, name string, cfg GatewayConfig, log logger.ILogger, promptTrace logger.ILogger) *Gateway {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	if promptTrace == nil {
		promptTrace = logger.NewNopLogger()
	}
	return &Gateway{
		provider: provider,
		name:     name,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, cfg.Burst),
		slots:    make(chan struct{}, cfg.MaxConcurrent),
		logger:   log,
		trace:    promptTrace,
		tracer:   otel.Tracer("query-responder-be/llm"),
	}
}

// Name returns the configured provider name.
func (g *Gateway) Name() string {
	return g.name
}

func (g *Gateway) Generate(ctx context.Context, prompt string, options ...Option) (string, error) {
	return g.Chat(ctx, []Message{{Role: RoleUser, Content: prompt}}, options...)
}

func (g *Gateway) Chat(ctx context.Context, history []Message, options ...Option) (string, error) {
	opts := ApplyOptions(Options{}, options...)
	stage := opts.Stage
	if stage == "" {
		stage = "unknown"
	}

	ctx, span := g.tracer.Start(ctx, "llm.chat", trace.WithAttributes(
		attribute.String("llm.provider", g.name),
		attribute.String("llm.stage", stage),
	))
	defer span.End()

	start := time.Now()
	attempts := 0

	op := func() (string, error) {
		attempts++
		if err := g.acquire(ctx); err != nil {
			return "", backoff.Permanent(err)
		}
		defer g.release()

		callCtx := ctx
		if g.cfg.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.cfg.CallTimeout)
			defer cancel()
		}

		out, err := g.provider.Chat(callCtx, history, options...)
		if err != nil {
			if ctx.Err() != nil || !Retryable(err) {
				return "", backoff.Permanent(err)
			}
			g.logger.Warn("LLMGateway", "Transient provider error, retrying", map[string]interface{}{
				"provider": g.name,
				"stage":    stage,
				"attempt":  attempts,
				"error":    err.Error(),
			})
			return "", err
		}
		return out, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = g.cfg.InitialBackoff
	bo.MaxInterval = 10 * time.Second

	out, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(g.cfg.MaxRetries+1)),
	)

	g.trace.Info("LLMGateway", "LLM call", map[string]interface{}{
		"provider":    g.name,
		"stage":       stage,
		"attempts":    attempts,
		"duration_ms": time.Since(start).Milliseconds(),
		"prompt":      lastContent(history),
		"response":    out,
		"failed":      err != nil,
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.Error("LLMGateway", "LLM call failed", map[string]interface{}{
			"provider": g.name,
			"stage":    stage,
			"attempts": attempts,
			"error":    err,
		})
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w", rag.ErrGeneration, err)
		}
		return "", rag.Wrap(rag.ErrGeneration, err)
	}

	span.SetAttributes(attribute.Int("llm.attempts", attempts))
	return out, nil
}

// acquire waits for a rate token and a concurrency slot, honouring ctx.
func (g *Gateway) acquire(ctx context.Context) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gateway) release() {
	<-g.slots
}

func lastContent(history []Message) string {
	if len(history) == 0 {
		return ""
	}
	return history[len(history)-1].Content
}
