package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/wikirag/internal/core/domain"
	"github.com/custodia-labs/wikirag/internal/core/ports/driving"
)

// settingsOnly marks commands that need the settings service alone.
var settingsOnly = map[string]string{annotationBootstrap: bootstrapSettings}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change the settings stored in ~/.wikirag/config.toml.

Every key can also be set through the environment as WIKIRAG_<KEY>, with
dots replaced by underscores (e.g. WIKIRAG_SEARCH_TOP_K=6).`,
	Annotations: settingsOnly,
	RunE:        runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show current settings",
	Annotations: settingsOnly,
	RunE:        runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long: `Validates and stores a single setting, for example:

  wikirag settings set search.top_k 6
  wikirag settings set llm.model llama3.2

Run 'wikirag settings keys' for the full list.`,
	Args:        cobra.ExactArgs(2),
	Annotations: settingsOnly,
	RunE:        runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:         "keys",
	Short:       "List the setting keys",
	Args:        cobra.NoArgs,
	Annotations: settingsOnly,
	RunE:        runSettingsKeys,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:         "embedding",
	Short:       "Configure embedding provider",
	Long:        `Choose the embedding provider and model interactively and check the provider responds.`,
	Annotations: settingsOnly,
	RunE:        runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:         "llm",
	Short:       "Configure LLM provider",
	Long:        `Choose the answer model interactively and check the provider responds.`,
	Annotations: settingsOnly,
	RunE:        runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}

	entries, err := svc.Entries()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	p := newPalette(cmd.OutOrStdout())
	cmd.Println(p.Title.Render("Current Settings"))

	section := ""
	for _, e := range entries {
		name, _, _ := strings.Cut(e.Key, ".")
		if name != section {
			section = name
			cmd.Println()
			cmd.Println(p.Subtitle.Render("[" + section + "]"))
		}
		value := e.Value
		if value == "" {
			value = "(not set)"
		}
		cmd.Printf("  %s = %s %s\n", e.Key, value, p.Muted.Render("("+e.Source+")"))
	}
	cmd.Println()

	if _, err := svc.Get(); err != nil {
		cmd.Println(p.Warning.Render(fmt.Sprintf("Warning: %v", err)))
		cmd.Println("Run 'wikirag settings set <key> <value>' to fix configuration issues.")
		return nil
	}
	cmd.Println(p.Success.Render("Configuration is valid."))
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}
	if err := svc.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	cmd.Printf("%s updated\n", args[0])
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}
	for _, k := range svc.Keys() {
		cmd.Println(k)
	}
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}
	return configureProvider(cmd, svc, bufio.NewReader(os.Stdin), providerPrompt{
		title:     "Select Embedding Provider",
		section:   "embedding",
		providers: domain.AllEmbeddingProviders(),
		models:    domain.DefaultEmbeddingModels(),
		validate:  svc.CheckEmbedding,
	})
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}
	return configureProvider(cmd, svc, bufio.NewReader(os.Stdin), providerPrompt{
		title:     "Select LLM Provider",
		section:   "llm",
		providers: domain.AllLLMProviders(),
		models:    domain.DefaultLLMModels(),
		validate:  svc.CheckLLM,
	})
}

// providerPrompt describes one interactive provider choice.
type providerPrompt struct {
	title     string
	section   string
	providers []domain.AIProvider
	models    map[domain.AIProvider]string
	validate  func(context.Context) error
}

func configureProvider(cmd *cobra.Command, svc driving.SettingsService, reader *bufio.Reader, pp providerPrompt) error {
	cmd.Println(pp.title)
	for i, p := range pp.providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(pp.providers), 1)
	provider := pp.providers[idx-1]

	defaultModel := pp.models[provider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	updates := [][2]string{
		{pp.section + ".provider", string(provider)},
		{pp.section + ".model", model},
	}
	if apiKey != "" {
		updates = append(updates, [2]string{pp.section + ".api_key", apiKey})
	}
	for _, u := range updates {
		if err := svc.Set(u[0], u[1]); err != nil {
			return fmt.Errorf("failed to configure %s provider: %w", pp.section, err)
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.Print("Checking provider... ")
	if err := pp.validate(ctx); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration validation failed: %w", pp.section, err)
	}
	cmd.Println("OK")

	cmd.Printf("%s provider configured: %s (%s)\n", pp.section, provider.Description(), model)
	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo from a terminal, else a plain line.
func readPassword(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}
