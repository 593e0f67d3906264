package cli

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/wikirag/internal/core/domain"
)

func TestAskCmd_Use(t *testing.T) {
	assert.Equal(t, "ask [question]", askCmd.Use)
	assert.Equal(t, "retrieve [question]", retrieveCmd.Use)
}

func TestAskCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := execute(t, &Services{Answer: &mockAnswerService{}}, "ask")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestAskCmd_Flags(t *testing.T) {
	for _, name := range []string{"lang", "no-web", "top-k", "threshold", "json", "concise"} {
		assert.NotNil(t, askCmd.Flags().Lookup(name), name)
	}
	assert.Nil(t, retrieveCmd.Flags().Lookup("concise"))
	assert.Equal(t, "4", askCmd.Flags().Lookup("top-k").DefValue)
	assert.Equal(t, "0.5", askCmd.Flags().Lookup("threshold").DefValue)
}

func TestAskCmd_PrintsAnswerAndSources(t *testing.T) {
	answer := &mockAnswerService{answer: &domain.Answer{
		Text:     "Ad Atene, nel 1896.",
		Language: domain.LanguageItalian,
		Model:    "llama3.1",
		Bundle:   olympicsBundle(),
	}}

	out, err := execute(t, &Services{Answer: answer}, "ask", "Dove si sono svolte le prime Olimpiadi?")

	require.NoError(t, err)
	assert.Equal(t, "Dove si sono svolte le prime Olimpiadi?", answer.query)
	assert.True(t, strings.HasPrefix(out, "Ad Atene, nel 1896.\n"))
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "[1] Giochi olimpici (0.91)")
	assert.Contains(t, out, "https://it.wikipedia.org/wiki/Giochi_olimpici")
}

func TestAskCmd_NoSourcesSection(t *testing.T) {
	answer := &mockAnswerService{answer: &domain.Answer{
		Text:   "Non lo so.",
		Bundle: &domain.ContextBundle{},
	}}

	out, err := execute(t, &Services{Answer: answer}, "ask", "q")

	require.NoError(t, err)
	assert.NotContains(t, out, "Sources:")
}

func TestAskCmd_UsesConfiguredDefaults(t *testing.T) {
	configured := domain.SearchParams{
		TopK:           6,
		ScoreThreshold: 0.4,
		ExpandContext:  true,
		Language:       domain.LanguageEnglish,
	}
	answer := &mockAnswerService{answer: &domain.Answer{Text: "ok"}}

	_, err := execute(t, &Services{Answer: answer, Search: configured}, "ask", "q")

	require.NoError(t, err)
	assert.Equal(t, configured, answer.params)
}

func TestAskCmd_FlagsOverrideDefaults(t *testing.T) {
	answer := &mockAnswerService{answer: &domain.Answer{Text: "ok"}}

	_, err := execute(t, &Services{Answer: answer},
		"ask", "--lang", "en", "--no-web", "--top-k", "2", "--threshold", "0.3", "q")

	require.NoError(t, err)
	assert.Equal(t, domain.SearchParams{
		TopK:           2,
		ScoreThreshold: 0.3,
		ExpandContext:  false,
		Language:       domain.LanguageEnglish,
	}, answer.params)
}

func TestAskCmd_InvalidParams(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"unsupported language", []string{"--lang", "fr"}, domain.ErrUnsupportedLanguage},
		{"threshold above one", []string{"--threshold", "1.5"}, nil},
		{"zero top-k", []string{"--top-k", "0"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer := &mockAnswerService{answer: &domain.Answer{Text: "ok"}}
			args := append([]string{"ask"}, tt.args...)
			args = append(args, "q")

			_, err := execute(t, &Services{Answer: answer}, args...)

			require.Error(t, err)
			assert.True(t, domain.IsConfigurationError(err))
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			assert.Empty(t, answer.query, "the question must not be asked")
		})
	}
}

func TestAskCmd_JSON(t *testing.T) {
	answer := &mockAnswerService{answer: &domain.Answer{
		Text:     "Ad Atene.",
		Language: domain.LanguageItalian,
		Model:    "llama3.1",
		Bundle:   olympicsBundle(),
	}}

	out, err := execute(t, &Services{Answer: answer}, "ask", "--json", "q")

	require.NoError(t, err)
	var view answerView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "Ad Atene.", view.Answer)
	assert.Equal(t, "it", view.Language)
	assert.Equal(t, "llama3.1", view.Model)
	require.Len(t, view.Sources, 1)
	assert.Equal(t, "Giochi olimpici", view.Sources[0].Title)
	assert.Empty(t, view.Sources[0].Content)
	assert.NotContains(t, out, "vector")
}

func TestAskCmd_ServiceError(t *testing.T) {
	answer := &mockAnswerService{err: &domain.GenerationError{Model: "llama3.1", Err: domain.ErrLLMUnavailable}}

	_, err := execute(t, &Services{Answer: answer}, "ask", "q")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ask failed")
	var genErr *domain.GenerationError
	assert.True(t, errors.As(err, &genErr))
}

func TestAskCmd_NotConfigured(t *testing.T) {
	_, err := execute(t, &Services{}, "ask", "q")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "answer service not configured")
}

func TestPrepareAsk_Concise(t *testing.T) {
	t.Cleanup(func() { askConcise = false })

	var opts BootstrapOptions
	require.NoError(t, prepareAsk(askCmd, &opts))
	assert.Nil(t, opts.Templates)

	askConcise = true
	require.NoError(t, prepareAsk(askCmd, &opts))
	assert.Equal(t, "answer_it_concise", opts.Templates[domain.LanguageItalian])
}

func TestRetrieveCmd_PrintsBundle(t *testing.T) {
	retrieval := &mockRetrievalService{bundle: olympicsBundle()}

	out, err := execute(t, &Services{Retrieval: retrieval}, "retrieve", "--no-web", "q")

	require.NoError(t, err)
	assert.False(t, retrieval.params.ExpandContext)
	assert.Contains(t, out, "Knowledge base (1 matches)")
	assert.Contains(t, out, "[1] Giochi olimpici (0.91)")
	assert.Contains(t, out, "si tennero ad Atene nel 1896.")
	assert.Contains(t, out, "Web context")
	assert.Contains(t, out, "Atene, Grecia")
}

func TestRetrieveCmd_EmptyBundle(t *testing.T) {
	retrieval := &mockRetrievalService{bundle: &domain.ContextBundle{Query: "q"}}

	out, err := execute(t, &Services{Retrieval: retrieval}, "retrieve", "q")

	require.NoError(t, err)
	assert.Contains(t, out, "Knowledge base (0 matches)")
	assert.Contains(t, out, "No matches above the threshold.")
	assert.Contains(t, out, "(none)")
}

func TestRetrieveCmd_JSON(t *testing.T) {
	retrieval := &mockRetrievalService{bundle: olympicsBundle()}

	out, err := execute(t, &Services{Retrieval: retrieval}, "retrieve", "--json", "q")

	require.NoError(t, err)
	var view bundleView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "Atene, Grecia", view.WebContext)
	assert.Equal(t, olympicsChunk().Chunk.Payload.Content, view.KBContext)
	require.Len(t, view.Matches, 1)
	assert.Equal(t, view.KBContext, view.Matches[0].Content)
	assert.InDelta(t, 0.91, view.Matches[0].Score, 1e-9)
}

func TestRetrieveCmd_ServiceError(t *testing.T) {
	retrieval := &mockRetrievalService{err: &domain.ConfigurationError{Op: "collection wikipedia", Err: domain.ErrNotFound}}

	_, err := execute(t, &Services{Retrieval: retrieval}, "retrieve", "q")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieve failed")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b c", snippet("a\n b\t c", 10))
	assert.Equal(t, "àèìòù...", snippet("àèìòùabc", 5))
	assert.Equal(t, "", snippet("", 5))
}
