package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// Templates use the {query}, {kb_context} and {web_context} placeholders.
const (
	// PromptAnswerItalian answers in Italian using both contexts.
	PromptAnswerItalian = "answer_it"

	// PromptAnswerEnglish answers in English using both contexts.
	PromptAnswerEnglish = "answer_en"

	// PromptAnswerItalianConcise is a shorter Italian variant.
	PromptAnswerItalianConcise = "answer_it_concise"
)

// Template placeholders, filled by plain substitution.
const (
	PlaceholderQuery      = "{query}"
	PlaceholderKBContext  = "{kb_context}"
	PlaceholderWebContext = "{web_context}"
)
