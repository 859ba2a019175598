package analysis

import (
	"strings"
	"unicode/utf8"
)

const (
	emergencyMessageDE = "Wenn du in einer Krise bist, wende dich bitte an eine lokale Hilfsorganisation oder Notfallnummer."
	emergencyMessageEN = "If you are in crisis, please reach out to a local help organization or emergency hotline."
)

// EmergencyMessage returns the crisis notice for lang. Anything but German gets English.
func EmergencyMessage(lang Language) string {
	if lang == LanguageDE {
		return emergencyMessageDE
	}
	return emergencyMessageEN
}

// ApplySafetyGate enforces the crisis policy: when self-harm or crisis is flagged the
// reflection ends with exactly one copy of the emergency message and both recommendation
// lists are cleared. Results without those flags pass through unchanged. Idempotent.
func ApplySafetyGate(r AnalysisResult, lang Language) AnalysisResult {
	if !r.RiskFlags.SelfHarm && !r.RiskFlags.Crisis {
		return r
	}
	msg := EmergencyMessage(lang)

	body := strings.TrimSpace(strings.ReplaceAll(r.Reflection, msg, ""))
	if body == "" {
		r.Reflection = msg
	} else {
		room := MaxReflection - utf8.RuneCountInString(msg) - 2
		if utf8.RuneCountInString(body) > room {
			body = strings.TrimSpace(string([]rune(body)[:room]))
		}
		r.Reflection = body + "\n\n" + msg
	}
	r.Recommendations = Recommendations{Daily: []string{}, Weekly: []string{}}
	return r
}
