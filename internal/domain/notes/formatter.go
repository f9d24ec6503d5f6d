package notes

import (
	"errors"
	"strings"
)

var ErrEmptyRawNote = errors.New("raw note is empty")

type template struct {
	name       string
	keywords   []string
	objective  string
	assessment string
	plan       string
}

// Matched in order; the first group with a keyword contained in the
// occupation wins. "therapist" is in the first group, so a "Speech
// Therapist" gets the mental-health template.
var templates = []template{
	{
		name:       "mental-health",
		keywords:   []string{"mental health", "therapist"},
		objective:  "Client appeared well-groomed and cooperative. [Add mental status observations here.]",
		assessment: "[Include diagnostic impressions and clinical formulation.]",
		plan:       "Continue CBT weekly. Plan to address emotional regulation next session.",
	},
	{
		name:       "physical-therapy",
		keywords:   []string{"physical therapist"},
		objective:  "ROM measured, gait observed. [Add mobility and physical findings.]",
		assessment: "Progress consistent with rehab plan. [Add barriers or improvements.]",
		plan:       "Continue strength exercises 3x/week. Reevaluate in 2 weeks.",
	},
	{
		name:       "speech",
		keywords:   []string{"speech", "slp"},
		objective:  "Articulation and fluency assessed. [Insert therapy data.]",
		assessment: "Client shows improvement in /s/ and /r/ sounds.",
		plan:       "Focus on multisyllabic words and sentence practice next session.",
	},
}

var genericTemplate = template{
	name:       "generic",
	objective:  "[Add observations here]",
	assessment: "[Add assessment here]",
	plan:       "[Add plan here]",
}

func templateFor(occupation string) template {
	occ := strings.ToLower(occupation)
	for _, t := range templates {
		for _, kw := range t.keywords {
			if strings.Contains(occ, kw) {
				return t
			}
		}
	}
	return genericTemplate
}

// TemplateName returns the name of the template Format would use.
func TemplateName(occupation string) string {
	return templateFor(occupation).name
}

// Format turns a raw session note into a SOAP note for the given occupation.
// The raw text becomes the Subjective section verbatim.
func Format(rawText, occupation string) (string, error) {
	if strings.TrimSpace(rawText) == "" {
		return "", ErrEmptyRawNote
	}
	t := templateFor(occupation)

	var b strings.Builder
	b.WriteString("**S (Subjective):** ")
	b.WriteString(rawText)
	b.WriteString("\n\n**O (Objective):** ")
	b.WriteString(t.objective)
	b.WriteString("\n\n**A (Assessment):** ")
	b.WriteString(t.assessment)
	b.WriteString("\n\n**P (Plan):** ")
	b.WriteString(t.plan)
	return b.String(), nil
}
