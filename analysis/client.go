package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Generator is the outbound text generation capability: one system+user instruction in,
// raw reply text out. Implementations must honor ctx cancellation.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}

// generationClient performs exactly one bounded round trip per call. It never retries;
// retry policy lives in the repair loop and the degradation controller.
type generationClient struct {
	gen     Generator
	timeout time.Duration
	logger  *zap.Logger
	metrics *Metrics
}

func (c generationClient) call(ctx context.Context, task, systemPrompt, userPrompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ctx, span := tracer.Start(ctx, "generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("task", task), attribute.Int("prompt_chars", len(systemPrompt)+len(userPrompt))),
	)
	defer span.End()

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := c.gen.Generate(callCtx, systemPrompt, userPrompt)
	elapsed := time.Since(start)

	if err == nil {
		c.metrics.call(task, "ok", elapsed.Seconds())
		c.logger.Debug("generation call", zap.String("task", task), zap.Duration("elapsed", elapsed), zap.Int("reply_chars", len(out)))
		return out, nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	switch {
	case ctx.Err() != nil:
		// The caller gave up; report cancellation as-is.
		c.metrics.call(task, "canceled", elapsed.Seconds())
		return "", ctx.Err()
	case errors.Is(callCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded):
		c.metrics.call(task, "timeout", elapsed.Seconds())
		c.logger.Warn("generation call timed out", zap.String("task", task), zap.Duration("timeout", c.timeout))
		return "", fmt.Errorf("%s after %s: %w", task, c.timeout, ErrTimeout)
	default:
		c.metrics.call(task, "transport_error", elapsed.Seconds())
		c.logger.Warn("generation call failed", zap.String("task", task), zap.Error(err))
		return "", &TransportError{Task: task, Err: err}
	}
}
