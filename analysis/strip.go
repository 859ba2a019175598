package analysis

import (
	"regexp"
	"strings"
)

var (
	metaPrefixRE = regexp.MustCompile(`(?i)^\s*(kurz\s*&?\s*freundlich|brief\s*&?\s*friendly|short\s*and\s*sweet|in\s*short|summary)\s*:\s*`)
	metaHeaderRE = regexp.MustCompile(`(?i)^\s*(was\s+ich\s+wahrnehme|was\s+ich\s+sehe|beobachtung|reflection|themes|analysis)\s*:?\s*$`)
)

// headerScanLines is how many leading lines may be dropped as header-only labels.
const headerScanLines = 6

// StripMetaLabels removes boilerplate lead-in labels from user-facing text. It runs to a
// fixed point, so StripMetaLabels(StripMetaLabels(s)) == StripMetaLabels(s).
func StripMetaLabels(s string) string {
	for {
		next := stripOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func stripOnce(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		if i < headerScanLines && metaHeaderRE.MatchString(line) {
			continue
		}
		out = append(out, metaPrefixRE.ReplaceAllString(line, ""))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func stripAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := StripMetaLabels(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// stripResult cleans reflection, rationale and every recommendation.
func stripResult(r AnalysisResult) AnalysisResult {
	r.Reflection = StripMetaLabels(r.Reflection)
	r.RationaleSummary = StripMetaLabels(r.RationaleSummary)
	r.Recommendations.Daily = stripAll(r.Recommendations.Daily)
	r.Recommendations.Weekly = stripAll(r.Recommendations.Weekly)
	return r
}
