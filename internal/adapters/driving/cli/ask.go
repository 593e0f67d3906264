package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driven"
)

var (
	queryLanguage  string
	queryNoWeb     bool
	queryTopK      int
	queryThreshold float64
	queryJSON      bool
	askConcise     bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the knowledge base",
	Long: `Retrieves the chunks closest to the question, adds a web snippet
unless --no-web is given, and asks the language model to answer in the
selected language.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [question]",
	Short: "Show the context that would be used to answer a question",
	Args:  cobra.ExactArgs(1),
	RunE:  runRetrieve,
}

func init() {
	for _, cmd := range []*cobra.Command{askCmd, retrieveCmd} {
		cmd.Flags().StringVarP(&queryLanguage, "lang", "l", "", "answer language: it or en (default: search.language)")
		cmd.Flags().BoolVar(&queryNoWeb, "no-web", false, "skip the web search branch")
		cmd.Flags().IntVarP(&queryTopK, "top-k", "k", domain.DefaultTopK, "maximum knowledge-base matches")
		cmd.Flags().Float64VarP(&queryThreshold, "threshold", "t", domain.DefaultScoreThreshold,
			"minimum cosine similarity in [0, 1]")
		cmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	}
	askCmd.Flags().BoolVar(&askConcise, "concise", false, "use the short Italian answer template")
	preparers[askCmd] = prepareAsk

	rootCmd.AddCommand(askCmd, retrieveCmd)
}

func prepareAsk(_ *cobra.Command, opts *BootstrapOptions) error {
	if askConcise {
		opts.Templates = map[domain.Language]string{
			domain.LanguageItalian: driven.PromptAnswerItalianConcise,
		}
	}
	return nil
}

// queryParams merges the query flags that were set into the configured
// search defaults.
func queryParams(cmd *cobra.Command) (domain.SearchParams, error) {
	params := searchDefaults()
	flags := cmd.Flags()
	if flags.Changed("lang") {
		lang, err := domain.ParseLanguage(queryLanguage)
		if err != nil {
			return params, err
		}
		params.Language = lang
	}
	if flags.Changed("top-k") {
		params.TopK = queryTopK
	}
	if flags.Changed("threshold") {
		params.ScoreThreshold = queryThreshold
	}
	if queryNoWeb {
		params.ExpandContext = false
	}
	return params, params.Validate()
}

func runAsk(cmd *cobra.Command, args []string) error {
	svc, err := answerService()
	if err != nil {
		return err
	}
	params, err := queryParams(cmd)
	if err != nil {
		return err
	}

	answer, err := svc.Ask(cmd.Context(), args[0], params)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if queryJSON {
		return printJSON(cmd, newAnswerView(answer))
	}
	printAnswer(cmd, answer)
	return nil
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	svc, err := retrievalService()
	if err != nil {
		return err
	}
	params, err := queryParams(cmd)
	if err != nil {
		return err
	}

	bundle, err := svc.Retrieve(cmd.Context(), args[0], params)
	if err != nil {
		return fmt.Errorf("retrieve failed: %w", err)
	}

	if queryJSON {
		return printJSON(cmd, newBundleView(bundle))
	}
	printBundle(cmd, bundle)
	return nil
}

// matchView is a knowledge-base hit without its vector.
type matchView struct {
	Title   string  `json:"title"`
	URL     string  `json:"url,omitempty"`
	Score   float64 `json:"score"`
	Content string  `json:"content,omitempty"`
}

type answerView struct {
	Answer   string      `json:"answer"`
	Language string      `json:"language"`
	Model    string      `json:"model,omitempty"`
	Sources  []matchView `json:"sources"`
}

type bundleView struct {
	Query      string      `json:"query"`
	KBContext  string      `json:"kb_context"`
	WebContext string      `json:"web_context"`
	Matches    []matchView `json:"matches"`
}

func newMatchViews(hits []domain.ScoredChunk, withContent bool) []matchView {
	out := make([]matchView, 0, len(hits))
	for _, h := range hits {
		m := matchView{Title: h.Chunk.Payload.Title, URL: h.Chunk.Payload.URL, Score: h.Score}
		if withContent {
			m.Content = h.Chunk.Payload.Content
		}
		out = append(out, m)
	}
	return out
}

func newAnswerView(a *domain.Answer) answerView {
	v := answerView{Answer: a.Text, Language: a.Language.String(), Model: a.Model}
	if a.Bundle != nil {
		v.Sources = newMatchViews(a.Bundle.Matches, false)
	} else {
		v.Sources = []matchView{}
	}
	return v
}

func newBundleView(b *domain.ContextBundle) bundleView {
	return bundleView{
		Query:      b.Query,
		KBContext:  b.KBContext,
		WebContext: b.WebContext,
		Matches:    newMatchViews(b.Matches, true),
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// printAnswer prints the model output verbatim followed by its sources.
func printAnswer(cmd *cobra.Command, answer *domain.Answer) {
	p := newPalette(cmd.OutOrStdout())

	cmd.Println(answer.Text)
	if answer.Bundle == nil || len(answer.Bundle.Matches) == 0 {
		return
	}
	cmd.Println()
	cmd.Println(p.Subtitle.Render("Sources:"))
	printMatches(cmd, p, answer.Bundle.Matches)
}

func printBundle(cmd *cobra.Command, bundle *domain.ContextBundle) {
	p := newPalette(cmd.OutOrStdout())

	cmd.Println(p.Title.Render(fmt.Sprintf("Knowledge base (%d matches)", len(bundle.Matches))))
	if len(bundle.Matches) == 0 {
		cmd.Println(p.Muted.Render("  No matches above the threshold."))
	}
	for i, m := range bundle.Matches {
		printMatch(cmd, p, i, m)
		cmd.Printf("      %s\n", snippet(m.Chunk.Payload.Content, 200))
	}
	cmd.Println()
	cmd.Println(p.Title.Render("Web context"))
	if bundle.WebContext == "" {
		cmd.Println(p.Muted.Render("  (none)"))
		return
	}
	cmd.Printf("  %s\n", bundle.WebContext)
}

func printMatches(cmd *cobra.Command, p palette, hits []domain.ScoredChunk) {
	for i, m := range hits {
		printMatch(cmd, p, i, m)
	}
}

// printMatch prints "[N] Title (score)" and the page URL.
func printMatch(cmd *cobra.Command, p palette, i int, m domain.ScoredChunk) {
	title := m.Chunk.Payload.Title
	if title == "" {
		title = m.Chunk.ID
	}
	cmd.Printf("  [%d] %s %s\n", i+1, title, p.Muted.Render(fmt.Sprintf("(%.2f)", m.Score)))
	if m.Chunk.Payload.URL != "" {
		cmd.Printf("      %s\n", p.Muted.Render(m.Chunk.Payload.URL))
	}
}

// snippet shortens text to at most n runes on one line.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}
