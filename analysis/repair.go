package analysis

import (
	"context"

	"go.uber.org/zap"
)

// Repair limits per call site.
const (
	SubtaskRepairs    = 1
	SingleCallRepairs = 2
	LanguageRepairs   = 1
	WeeklyRepairs     = 2
)

// parseWithRepair extracts and validates raw against s. On a format failure it asks the
// generator to rewrite the offending text, at most maxRepairs times. Transport failures and
// timeouts during a repair call end the loop immediately.
func parseWithRepair[T any](ctx context.Context, c generationClient, s schema[T], raw string, maxRepairs int) (T, error) {
	var zero T
	text := raw
	for attempt := 0; ; attempt++ {
		v, err := s.parse(text)
		if err == nil {
			if attempt > 0 {
				c.logger.Debug("repair succeeded", zap.String("schema", s.name), zap.Int("repairs", attempt))
			}
			return v, nil
		}
		if !isFormatError(err) {
			return zero, err
		}
		if attempt >= maxRepairs {
			return zero, &RepairExhaustedError{Schema: s.name, Attempts: attempt, Last: err}
		}
		c.logger.Debug("output failed validation, repairing",
			zap.String("schema", s.name),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		c.metrics.repair(s.name)
		text, err = c.call(ctx, "repair_"+s.name, s.repair, repairInput(text))
		if err != nil {
			return zero, err
		}
	}
}

// repairInput guards against an empty user message, which some providers reject.
func repairInput(text string) string {
	if text == "" {
		return "(empty response)"
	}
	return text
}
