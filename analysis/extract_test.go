package analysis

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestExtractJSONObject(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"clean", `{"a":1}`, `{"a":1}`},
		{"surrounding whitespace", "  \n{\"a\":1}\n ", `{"a":1}`},
		{"markdown fence", "```json\n{\"a\": {\"b\": 2}}\n```", `{"a": {"b": 2}}`},
		{"prose around", `Here you go: {"a":"x"} hope it helps!`, `{"a":"x"}`},
		{"braces inside strings", `note {"a":"}{"} end`, `{"a":"}{"}`},
		{"escaped quote in string", `{"a":"say \"}\" now"}`, `{"a":"say \"}\" now"}`},
		{"prefers valid candidate", `Use {name} here. {"a":1}`, `{"a":1}`},
		{"two objects", `{"a":1} and {"b":2}`, `{"a":1}`},
		{"invalid only candidate", `x {not json} y`, `{not json}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ExtractJSONObject(tc.in)
			if err != nil {
				t.Fatalf("ExtractJSONObject: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got=%q want=%q", got, tc.want)
			}
		})
	}
}

func TestExtractJSONObject_NoCandidate(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "I could not do that.", "only { an opening brace", "} backwards {"} {
		_, err := ExtractJSONObject(in)
		var ee *ExtractionError
		if !errors.As(err, &ee) {
			t.Fatalf("ExtractJSONObject(%q) err=%v, want *ExtractionError", in, err)
		}
	}
}

func TestExtractJSONObject_Idempotent(t *testing.T) {
	t.Parallel()

	prose := rapid.StringMatching(`[A-Za-z .,:!\n]{0,40}`)
	key := rapid.StringMatching(`[a-z_]{1,8}`)
	value := rapid.OneOf(
		rapid.StringMatching(`[A-Za-z{} "\\]{0,12}`).AsAny(),
		rapid.IntRange(-100, 100).AsAny(),
		rapid.Bool().AsAny(),
	)

	rapid.Check(t, func(rt *rapid.T) {
		obj := rapid.MapOf(key, value).Draw(rt, "object")
		b, err := json.Marshal(obj)
		require.NoError(rt, err)
		text := prose.Draw(rt, "before") + string(b) + prose.Draw(rt, "after")

		once, err := ExtractJSONObject(text)
		require.NoError(rt, err)
		require.JSONEq(rt, string(b), once)

		twice, err := ExtractJSONObject(once)
		require.NoError(rt, err)
		require.Equal(rt, once, twice)
	})
}
