package services

import "strings"

// SentimentClassifier decides whether a candidate's reply to "do you have
// this skill?" sounds affirmative. Its verdict is advisory context for the
// strategist prompt, not a hard gate; the model's structured output is the
// actual source of the strategy. Kept behind an interface so the keyword
// heuristic can be swapped for a real classifier without touching the
// chat engine.
type SentimentClassifier interface {
	HasRelatedExperience(message string) bool
}

// keywordSentiment is a crude substring-containment heuristic over fixed
// phrase lists (French plus the English words candidates mix in).
// A negation always wins over a positive hit.
type keywordSentiment struct {
	positive []string
	negative []string
}

func NewKeywordSentiment() SentimentClassifier {
	return &keywordSentiment{
		positive: []string{
			"oui",
			"yes",
			"j'ai",
			"j'ai fait",
			"j'ai utilisé",
			"j'ai travaillé",
			"j'ai eu",
			"un peu",
			"quelques",
			"experience",
			"expérience",
			"projet",
			"stage",
			"connais",
			"sais",
			"maîtrise",
			"appris",
		},
		negative: []string{
			"non",
			"no",
			"jamais",
			"pas",
			"aucun",
			"never",
			"pas encore",
			"pas vraiment",
			"pas du tout",
		},
	}
}

func (k *keywordSentiment) HasRelatedExperience(message string) bool {
	lower := strings.ToLower(message)
	hasPositive := containsAny(lower, k.positive)
	hasNegative := containsAny(lower, k.negative)
	return hasPositive && !hasNegative
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
