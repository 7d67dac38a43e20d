package intent

import "strings"

// Intent is the coarse category assigned to a user message. It decides
// which response strategy applies.
type Intent string

const (
	Appointment Intent = "appointment"
	Symptom     Intent = "symptom"
	General     Intent = "general"
)

// Classification pairs the matched intent with the keyword that triggered
// it. Keyword is empty for General.
type Classification struct {
	Intent  Intent `json:"intent"`
	Keyword string `json:"keyword,omitempty"`
}

// rule binds an intent to the substrings that trigger it. Rules run top to
// bottom and keywords left to right; the first hit wins, so both orders
// are part of the contract.
type rule struct {
	intent   Intent
	keywords []string
}

// Classifier maps raw user text to an intent with ordered substring rules.
// It is a best-effort triage layer: no tokenization, no stemming, no
// negation handling.
type Classifier struct {
	rules []rule
}

var (
	defaultAppointmentKeywords = []string{"appointment", "book", "schedule"}
	defaultSymptomKeywords     = []string{"fever", "cough", "cold", "congestion", "pain"}
)

// NewClassifier builds a classifier with the default keyword sets.
// Appointment keywords outrank symptom keywords on purpose: "book an
// appointment about my cough" opens the booking flow instead of triage.
func NewClassifier() *Classifier {
	return NewClassifierWith(defaultAppointmentKeywords, defaultSymptomKeywords)
}

// NewClassifierWith builds a classifier from custom keyword sets, keeping
// the appointment-before-symptom precedence.
func NewClassifierWith(appointmentKeywords, symptomKeywords []string) *Classifier {
	return &Classifier{rules: []rule{
		{intent: Appointment, keywords: append([]string(nil), appointmentKeywords...)},
		{intent: Symptom, keywords: append([]string(nil), symptomKeywords...)},
	}}
}

// Classify lowercases the input and tests the rules in order. Empty input
// classifies as General.
func (c *Classifier) Classify(text string) Classification {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return Classification{Intent: General}
	}

	for _, r := range c.rules {
		for _, word := range r.keywords {
			if word == "" {
				continue
			}
			if strings.Contains(normalized, strings.ToLower(word)) {
				return Classification{Intent: r.intent, Keyword: strings.ToLower(word)}
			}
		}
	}

	return Classification{Intent: General}
}
