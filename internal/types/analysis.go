package types

// Gap severities as emitted by the analysis prompt.
const (
	SeverityCritical = "critical"
	SeverityModerate = "moderate"
	SeverityMinor    = "minor"
)

// MaxGaps caps how many gaps one analysis may carry. The analysis prompt
// instructs the model to rank by severity and stop at three; the analyzer
// truncates defensively regardless of what comes back.
const MaxGaps = 3

type GapAnalysis struct {
	Skill      string `json:"skill"`
	Severity   string `json:"severity"`
	Category   string `json:"category"`
	Suggestion string `json:"suggestion"`
}

type AnalysisResult struct {
	Score         int           `json:"score"`
	Gaps          []GapAnalysis `json:"gaps"`
	Keywords      []string      `json:"keywords"`
	MatchedSkills []string      `json:"matchedSkills"`
	JobTitle      string        `json:"jobTitle"`
	Company       string        `json:"company"`
}
