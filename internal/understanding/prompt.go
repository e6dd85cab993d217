package understanding

import (
	"fmt"
	"strings"

	"triage/internal/ticket"
)

// ClassificationPrompt captures the instructions sent to the configured LLM
// when sorting raw feedback into a category. Update this text centrally so
// every call stays in sync.
const ClassificationPrompt = `You are an assistant that classifies customer feedback for a product team.

Available categories:

- "bug": the user reports something broken, crashing, or behaving incorrectly.

- "feature_request": the user asks for a capability the product does not have.

- "praise": the user expresses satisfaction without asking for anything.

- "complaint": the user is dissatisfied but does not describe a concrete defect or request.

- "unclassified": the text is spam, empty of meaning, or cannot be placed in any category above.

Rules:

- Choose exactly one category.

- Reports of incorrect behavior are "bug" even when the tone is angry; use "complaint" only when no concrete defect is described.

- Use "unclassified" for gibberish, advertising, or content unrelated to the product.

- Confidence is your own certainty in the chosen category, from 0 to 1.

You must respond ONLY with a JSON object like: {"category": "bug", "confidence": 0.92, "reason": "short explanation"}

Now classify this feedback:`

// CritiquePrompt instructs the model acting as the quality gate. The verdict
// vocabulary must match ticket.ParseVerdict.
const CritiquePrompt = `You are a strict reviewer of support tickets drafted from customer feedback.

Judge whether the ticket is actionable for an engineer or product manager who has not read the original feedback.

Verdicts:

- "accept": every field is specific, grounded in the feedback, and actionable as written.

- "revise": the ticket is salvageable but a field is vague, generic, or missing detail present in the feedback. The note must say exactly what to improve.

- "reject": the ticket misrepresents the feedback or cannot be made actionable.

Rules:

- Do not accept placeholder text such as "N/A", "unknown", or restatements of the field name.

- If prior review notes are listed, verify they were addressed; unaddressed notes mean "revise" again.

- The note is required for "revise" and "reject" and must be one or two concrete sentences.

You must respond ONLY with a JSON object like: {"verdict": "revise", "note": "short instruction"}

Now review this ticket:`

const extractionPromptHeader = `You are an assistant that extracts structured ticket fields from customer feedback.

Extract exactly the fields listed below. Every field must be filled with specific information taken from the feedback; never invent details and never answer with placeholders.

`

var fieldGuidance = map[string]string{
	"reproduction_steps":   "the actions that trigger the problem, as a short numbered or ordered description",
	"severity_guess":       "one of: low, medium, high, critical, judged from user impact",
	"user_impact":          "who is affected and how their work or experience suffers",
	"requested_capability": "the capability the user is asking for, in one sentence",
	"summary":              "one or two sentences capturing the substance of the feedback",
}

// BuildExtractionPrompt renders the system prompt for a category's field
// contract, folding in review notes from earlier revisions when present.
func BuildExtractionPrompt(category ticket.Category, criticNotes []string) (string, error) {
	fields, ok := ticket.ContractFields(category)
	if !ok {
		return "", fmt.Errorf("build extraction prompt: category %q has no field contract", category)
	}

	var b strings.Builder
	b.WriteString(extractionPromptHeader)
	fmt.Fprintf(&b, "Category: %s\n\nFields:\n\n", category)
	for _, field := range fields {
		guidance := fieldGuidance[field]
		if guidance == "" {
			guidance = "a specific value grounded in the feedback"
		}
		fmt.Fprintf(&b, "- %q: %s\n\n", field, guidance)
	}
	if len(criticNotes) > 0 {
		b.WriteString("A reviewer rejected earlier drafts. Address every note below in this attempt:\n\n")
		for _, note := range criticNotes {
			fmt.Fprintf(&b, "- %s\n\n", note)
		}
	}
	fmt.Fprintf(&b, "You must respond ONLY with a JSON object whose keys are exactly the field names above, for example: %s\n\n", exampleFor(fields))
	b.WriteString("Now extract from this feedback:")
	return b.String(), nil
}

func exampleFor(fields []string) string {
	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = fmt.Sprintf("%q: \"...\"", field)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
