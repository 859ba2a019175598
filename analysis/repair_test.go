package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(g Generator, m *Metrics) generationClient {
	return generationClient{gen: g, timeout: time.Second, logger: zap.NewNop(), metrics: m}
}

func TestParseWithRepair_ValidNeedsNoCall(t *testing.T) {
	t.Parallel()

	g := &scriptedGenerator{respond: happyResponder}
	out, err := parseWithRepair(t.Context(), newTestClient(g, nil), narrativeSchema, validNarrativeJSON, SubtaskRepairs)
	require.NoError(t, err)
	assert.Equal(t, "Take a short walk", out.Recommendations.Daily[0])
	assert.Equal(t, 0, g.total())
}

func TestParseWithRepair_RepairSucceeds(t *testing.T) {
	t.Parallel()

	g := &scriptedGenerator{respond: func(kind, system, user string) (string, error) {
		require.Equal(t, kindRepair, kind)
		require.Equal(t, narrativeSchema.repair, system)
		require.Equal(t, "I am not able to answer in JSON.", user)
		return validNarrativeJSON, nil
	}}
	m := NewMetrics(prometheus.NewRegistry())

	out, err := parseWithRepair(t.Context(), newTestClient(g, m), narrativeSchema, "I am not able to answer in JSON.", SubtaskRepairs)
	require.NoError(t, err)
	assert.NotEmpty(t, out.Reflection)
	assert.Equal(t, 1, g.count(kindRepair))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.repairs.WithLabelValues("narrative")))
}

func TestParseWithRepair_ExhaustedCarriesLastError(t *testing.T) {
	t.Parallel()

	g := &scriptedGenerator{respond: func(kind, system, user string) (string, error) {
		return `{"reflection":""}`, nil
	}}

	_, err := parseWithRepair(t.Context(), newTestClient(g, nil), analysisSchema, "no json here", SingleCallRepairs)
	var re *RepairExhaustedError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "analysis", re.Schema)
	assert.Equal(t, SingleCallRepairs, re.Attempts)
	assert.Equal(t, SingleCallRepairs, g.count(kindRepair))

	var se *SchemaValidationError
	require.ErrorAs(t, err, &se, "last error should be the validation failure of the last repair")
	var ee *ExtractionError
	assert.False(t, errors.As(err, &ee))
}

func TestParseWithRepair_EmptyRawIsRepairable(t *testing.T) {
	t.Parallel()

	g := &scriptedGenerator{respond: func(kind, system, user string) (string, error) {
		require.Equal(t, "(empty response)", user)
		return `{"language":"en"}`, nil
	}}

	out, err := parseWithRepair(t.Context(), newTestClient(g, nil), languageSchema, "", LanguageRepairs)
	require.NoError(t, err)
	assert.Equal(t, LanguageEN, out.Language)
}

func TestParseWithRepair_TransportErrorStopsLoop(t *testing.T) {
	t.Parallel()

	g := &scriptedGenerator{respond: func(kind, system, user string) (string, error) {
		return "", errUnreachable
	}}

	_, err := parseWithRepair(t.Context(), newTestClient(g, nil), weeklySchema, "{", WeeklyRepairs)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "repair_weekly_report", te.Task)
	assert.ErrorIs(t, err, errUnreachable)
	assert.Equal(t, 1, g.total())
}

func TestGenerationClient_Timeout(t *testing.T) {
	t.Parallel()

	slow := GeneratorFunc(func(ctx context.Context, system, user string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	c := newTestClient(slow, nil)
	c.timeout = 20 * time.Millisecond

	_, err := c.call(t.Context(), "signals", "sys", "user")
	require.ErrorIs(t, err, ErrTimeout)
	var te *TransportError
	assert.False(t, errors.As(err, &te))
}

func TestGenerationClient_Canceled(t *testing.T) {
	t.Parallel()

	g := &scriptedGenerator{respond: happyResponder}
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := newTestClient(g, nil).call(ctx, "signals", "sys", "user")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, g.total(), "a cancelled context must not reach the generator")
}
