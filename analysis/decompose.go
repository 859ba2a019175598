package analysis

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// subtask is one independently schema-typed, independently repairable generation unit.
type subtask[T any] struct {
	name     string
	prompt   string
	skeleton string
	schema   schema[T]
	fallback func() T
}

type subtaskResult[T any] struct {
	value T
	// generated is false when value is the local default.
	generated bool
	retried   bool
}

func attemptSubtask[T any](ctx context.Context, c generationClient, name, prompt string, s schema[T]) (T, error) {
	var zero T
	raw, err := c.call(ctx, name, entrySystemPrompt, prompt)
	if err != nil {
		return zero, err
	}
	return parseWithRepair(ctx, c, s, raw, SubtaskRepairs)
}

// runSubtask tries the sub-task once, then once more with its JSON skeleton appended, and
// finally settles on the local default. It never fails and never panics.
func runSubtask[T any](ctx context.Context, c generationClient, t subtask[T]) (res subtaskResult[T]) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("sub-task panicked, using local default", zap.String("subtask", t.name), zap.Any("panic", r))
			res = subtaskResult[T]{value: t.fallback(), retried: res.retried}
		}
	}()

	v, err := attemptSubtask(ctx, c, t.name, t.prompt, t.schema)
	if err == nil {
		return subtaskResult[T]{value: v, generated: true}
	}
	c.logger.Warn("sub-task failed", zap.String("subtask", t.name), zap.Error(err))
	if ctx.Err() != nil {
		return subtaskResult[T]{value: t.fallback()}
	}

	v, err = attemptSubtask(ctx, c, t.name+"_retry", withSkeleton(t.prompt, t.skeleton), t.schema)
	if err == nil {
		return subtaskResult[T]{value: v, generated: true, retried: true}
	}
	c.logger.Warn("sub-task retry failed, using local default", zap.String("subtask", t.name), zap.Error(err))
	return subtaskResult[T]{value: t.fallback(), retried: true}
}

// decomposition is the merged outcome of both sub-tasks.
type decomposition struct {
	result    AnalysisResult
	generated int
	retried   bool
}

func (a *Analyzer) decompose(ctx context.Context, req AnalysisRequest) decomposition {
	signalsTask := subtask[signalsOutput]{
		name:     "signals",
		prompt:   composeSignalsPrompt(req),
		skeleton: signalsSkeleton,
		schema:   signalsSchema,
		fallback: defaultSignals,
	}
	narrativeTask := subtask[narrativeOutput]{
		name:     "narrative",
		prompt:   composeNarrativePrompt(req),
		skeleton: narrativeSkeleton,
		schema:   narrativeSchema,
		fallback: defaultNarrative,
	}

	var sig subtaskResult[signalsOutput]
	var nar subtaskResult[narrativeOutput]
	if a.sequential {
		sig = runSubtask(ctx, a.client, signalsTask)
		nar = runSubtask(ctx, a.client, narrativeTask)
	} else {
		var g errgroup.Group
		g.Go(func() error {
			sig = runSubtask(ctx, a.client, signalsTask)
			return nil
		})
		g.Go(func() error {
			nar = runSubtask(ctx, a.client, narrativeTask)
			return nil
		})
		_ = g.Wait()
	}

	d := decomposition{
		result:  mergeOutputs(sig.value, nar.value),
		retried: sig.retried || nar.retried,
	}
	for _, ok := range []bool{sig.generated, nar.generated} {
		if ok {
			d.generated++
		}
	}
	return d
}
