package prompts

import "regexp"

// KnowledgeBaseToolName is the function name declared on the realtime
// session when knowledge-base lookups are enabled.
const KnowledgeBaseToolName = "queryKnowledgeBase"

// ToolSynthesisSystem instructs the knowledge-base endpoint to keep spoken
// answers short; long answers read badly over a phone line.
const ToolSynthesisSystem = "You are an AI FAQ assistant. Information will be provided to help answer the user's questions. " +
	"Always summarize your response to be as brief as possible and be extremely concise. " +
	"Your responses should be fewer than a couple of sentences. " +
	"Do not reference the material provided in your response."

// ExtractionSystem instructs the post-call completion to pull the customer
// details out of a finished transcript.
const ExtractionSystem = "You are an assistant that extracts customer details from a phone call transcript. " +
	"Extract the customer's name, their availability, and any special notes worth following up on. " +
	"If a field is not mentioned in the transcript, use an empty string."

var placeholderPattern = regexp.MustCompile(`\{(\w+)\}`)

// Fill substitutes {Key} placeholders in template with values from data.
// Placeholders with no matching key are left untouched, so a template can
// be rendered with partial data without losing information.
func Fill(template string, data map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := match[1 : len(match)-1]
		if value, ok := data[key]; ok {
			return value
		}
		return match
	})
}
