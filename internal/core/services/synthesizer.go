package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
	"github.com/custodia-labs/wikirag/internal/logger"
)

// CharsPerToken approximates how many characters one model token covers.
const CharsPerToken = 4

// AnswerSynthesizer renders the answer template and calls the LLM.
type AnswerSynthesizer struct {
	llm       driven.LLMService
	prompts   driven.PromptStore
	config    domain.GenerationConfig
	templates map[domain.Language]string
}

// NewAnswerSynthesizer creates a synthesizer.
// cfg is passed explicitly so each synthesizer carries its own context budget.
func NewAnswerSynthesizer(llm driven.LLMService, prompts driven.PromptStore, cfg domain.GenerationConfig) *AnswerSynthesizer {
	return &AnswerSynthesizer{
		llm:     llm,
		prompts: prompts,
		config:  cfg,
		templates: map[domain.Language]string{
			domain.LanguageItalian: driven.PromptAnswerItalian,
			domain.LanguageEnglish: driven.PromptAnswerEnglish,
		},
	}
}

// SetTemplate selects the prompt used for a language
// (e.g. driven.PromptAnswerItalianConcise).
func (s *AnswerSynthesizer) SetTemplate(lang domain.Language, name string) {
	s.templates[lang] = name
}

// Synthesize renders the template for lang with the bundle and returns the
// model output verbatim.
func (s *AnswerSynthesizer) Synthesize(
	ctx context.Context, bundle *domain.ContextBundle, lang domain.Language,
) (*domain.Answer, error) {
	logger.Section("Answer Synthesis")

	name, ok := s.templates[lang]
	if !ok {
		return nil, &domain.ConfigurationError{
			Op:  "select answer template",
			Err: fmt.Errorf("%w: %q", domain.ErrUnsupportedLanguage, lang),
		}
	}
	if bundle == nil {
		return nil, fmt.Errorf("%w: nil context bundle", domain.ErrInvalidInput)
	}
	if s.llm == nil {
		return nil, &domain.GenerationError{Err: domain.ErrLLMUnavailable}
	}

	tmpl, err := s.prompts.Load(name)
	if err != nil {
		return nil, &domain.ConfigurationError{Op: "load template " + name, Err: err}
	}

	prompt := RenderPrompt(tmpl, bundle, s.config.ContextWindow*CharsPerToken)
	logger.Debug("Template %s, prompt %d chars", name, len(prompt))

	text, err := s.llm.Generate(ctx, prompt, driven.GenerateOptions{
		MaxTokens:     s.config.MaxTokens,
		Temperature:   0,
		ContextWindow: s.config.ContextWindow,
	})
	if err != nil {
		return nil, &domain.GenerationError{Model: s.llm.ModelName(), Err: err}
	}

	return &domain.Answer{
		Text:     text,
		Language: lang,
		Model:    s.llm.ModelName(),
		Bundle:   bundle,
	}, nil
}

// RenderPrompt fills the template placeholders by plain substitution.
// When budget is positive the result is kept within budget characters by
// shortening the knowledge-base context first, then the web context.
// The query is never shortened.
func RenderPrompt(tmpl string, bundle *domain.ContextBundle, budget int) string {
	kb, web := bundle.KBContext, bundle.WebContext

	if budget > 0 {
		kbSlots := strings.Count(tmpl, driven.PlaceholderKBContext)
		webSlots := strings.Count(tmpl, driven.PlaceholderWebContext)
		fixed := runeLen(render(tmpl, bundle.Query, "", ""))
		room := budget - fixed

		size := func() int { return kbSlots*runeLen(kb) + webSlots*runeLen(web) }
		if size() > room {
			before := size()
			if kbSlots > 0 {
				kb = truncate(kb, max(0, room-webSlots*runeLen(web))/kbSlots)
			}
			if size() > room && webSlots > 0 {
				web = truncate(web, max(0, room-kbSlots*runeLen(kb))/webSlots)
			}
			logger.Debug("Context trimmed from %d to %d chars to fit %d", before, size(), budget)
		}
	}

	return render(tmpl, bundle.Query, kb, web)
}

func render(tmpl, query, kb, web string) string {
	return strings.NewReplacer(
		driven.PlaceholderQuery, query,
		driven.PlaceholderKBContext, kb,
		driven.PlaceholderWebContext, web,
	).Replace(tmpl)
}

func runeLen(s string) int {
	return len([]rune(s))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
