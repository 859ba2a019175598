package analysis

const (
	fallbackReflectionEN = "I couldn't generate a full analysis right now, but I'm here with you. " +
		"If you can, take one slow breath in and out, and name one small thing you need today. " +
		"You can also write one sentence: 'Right now I feel ___, and I need ___.'."
	fallbackReflectionDE = "Ich konnte gerade keine vollständige Analyse erstellen, aber ich bin da. " +
		"Wenn es dir möglich ist, atme einmal langsam ein und aus und benenne eine kleine Sache, die du heute brauchst. " +
		"Du kannst auch einen Satz schreiben: 'Gerade fühle ich ___, und ich brauche ___.'."
	fallbackRationale = "Fallback analysis."

	noWeeklyDataEN  = "No data available for this week."
	noWeeklyDataDE  = "Keine Daten für diese Woche verfügbar."
	weeklySummaryEN = "A detailed weekly report could not be generated right now. The pillar averages above are computed directly from this week's entries."
	weeklySummaryDE = "Ein ausführlicher Wochenbericht konnte gerade nicht erstellt werden. Die Säulen-Durchschnitte oben sind direkt aus den Einträgen dieser Woche berechnet."
)

func neutralWeights() PillarWeights {
	return PillarWeights{Geist: 0.2, Herz: 0.2, Seele: 0.2, Koerper: 0.2, Aura: 0.2}
}

func neutralScores() PillarScores {
	return PillarScores{Geist: 5, Herz: 5, Seele: 5, Koerper: 5, Aura: 5}
}

// defaultSignals is the local default for a failed signals & scores sub-task.
func defaultSignals() signalsOutput {
	return signalsOutput{
		Emotions:      []Emotion{},
		Themes:        []string{DefaultTheme},
		PillarWeights: neutralWeights(),
		PillarScores:  neutralScores(),
		Signals:       Signals{Keywords: []string{}, Phrases: []string{}, Triggers: []string{}},
	}
}

// defaultNarrative is the local default for a failed narrative sub-task.
func defaultNarrative() narrativeOutput {
	return narrativeOutput{
		Recommendations: Recommendations{Daily: []string{}, Weekly: []string{}},
	}
}

// StaticDefault is the fixed, language-selected record returned when every generation path
// failed. It never touches the network.
func StaticDefault(lang Language) AnalysisResult {
	reflection := fallbackReflectionDE
	if lang == LanguageEN {
		reflection = fallbackReflectionEN
	}
	return AnalysisResult{
		Emotions:         []Emotion{},
		Themes:           []string{DefaultTheme},
		PillarWeights:    neutralWeights(),
		PillarScores:     neutralScores(),
		Reflection:       reflection,
		Recommendations:  Recommendations{Daily: []string{}, Weekly: []string{}},
		Signals:          Signals{Keywords: []string{}, Phrases: []string{}, Triggers: []string{}},
		RationaleSummary: fallbackRationale,
	}
}

func noWeeklyDataSummary(lang Language) string {
	if lang == LanguageEN {
		return noWeeklyDataEN
	}
	return noWeeklyDataDE
}

func weeklyFallbackSummary(lang Language) string {
	if lang == LanguageEN {
		return weeklySummaryEN
	}
	return weeklySummaryDE
}
