package cli

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/wikirag/internal/core/domain"
)

var (
	acquireInput  string
	acquireOutput string

	chunkInput  string
	chunkOutput string

	loadInput string

	ingestInput      string
	ingestOutputDocs string
)

var acquireCmd = &cobra.Command{
	Use:   "acquire [reference...]",
	Short: "Download and clean documents",
	Long: `Fetches each reference and writes one document record per page.

A reference is a Wikipedia URL, a bare title prefixed with "wikipedia:",
or a local file or directory (txt, md, html, pdf). References come from
the arguments and from --input, which is either a list with one reference
per line or a YAML manifest with sources, titles and files.`,
	RunE: runAcquire,
}

var chunkCmd = &cobra.Command{
	Use:   "chunk",
	Short: "Split and embed document records",
	Long: `Reads the document records in --input, splits each document into
overlapping chunks, embeds them and writes one chunk record per chunk.`,
	Args: cobra.NoArgs,
	RunE: runChunk,
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Upsert chunk records into the collection",
	Long: `Creates the collection if needed and upserts every chunk record in
--input. Exits non-zero when any record fails.`,
	Args: cobra.NoArgs,
	RunE: runLoad,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [reference...]",
	Short: "Run the full pipeline: acquire, chunk, embed and load",
	RunE:  runIngest,
}

func init() {
	acquireCmd.Flags().StringVarP(&acquireInput, "input", "i", "", "reference list or YAML manifest")
	acquireCmd.Flags().StringVarP(&acquireOutput, "output", "o", "data/raw", "directory for document records")
	acquireCmd.Flags().StringP("language", "l", "", "language for references that do not name one (it, en)")
	preparers[acquireCmd] = prepareAcquisition

	chunkCmd.Flags().StringVarP(&chunkInput, "input", "i", "data/raw", "directory of document records")
	chunkCmd.Flags().StringVarP(&chunkOutput, "output", "o", "data/chunks", "directory for chunk records")
	chunkCmd.Flags().Int("chunk-size", domain.DefaultChunkSize, "maximum characters per chunk")
	chunkCmd.Flags().Int("chunk-overlap", domain.DefaultChunkOverlap, "characters shared by consecutive chunks")
	chunkCmd.Flags().String("embedding-model", "", "embedding model (default: configured model)")
	preparers[chunkCmd] = prepareChunking

	loadCmd.Flags().StringVarP(&loadInput, "input", "i", "data/chunks", "directory of chunk records")
	addCollectionFlags(loadCmd)
	preparers[loadCmd] = prepareCollection

	ingestCmd.Flags().StringVarP(&ingestInput, "input", "i", "", "reference list or YAML manifest")
	ingestCmd.Flags().StringVar(&ingestOutputDocs, "output-docs", "", "also write document records to this directory")
	ingestCmd.Flags().StringP("language", "l", "", "language for references that do not name one (it, en)")
	ingestCmd.Flags().Int("chunk-size", domain.DefaultChunkSize, "maximum characters per chunk")
	ingestCmd.Flags().Int("chunk-overlap", domain.DefaultChunkOverlap, "characters shared by consecutive chunks")
	ingestCmd.Flags().String("embedding-model", "", "embedding model (default: configured model)")
	addCollectionFlags(ingestCmd)
	preparers[ingestCmd] = prepareIngest

	rootCmd.AddCommand(acquireCmd, chunkCmd, loadCmd, ingestCmd)
}

func addCollectionFlags(cmd *cobra.Command) {
	cmd.Flags().String("collection", "", "collection name (default: configured collection)")
	cmd.Flags().String("host", "", "vector store host (default: from vector_store.url)")
	cmd.Flags().Int("port", 0, "vector store port (default: from vector_store.url)")
}

func runAcquire(cmd *cobra.Command, args []string) error {
	refs, err := readReferences(acquireInput, args)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return errors.New("no references: pass --input or arguments")
	}
	svc, err := ingestionService()
	if err != nil {
		return err
	}

	done := trackProgress(svc, cmd.ErrOrStderr())
	summary, err := svc.Acquire(cmd.Context(), refs, acquireOutput)
	done()
	if err != nil {
		return fmt.Errorf("acquire failed: %w", err)
	}
	printSummary(cmd, summary)
	cmd.Printf("Documents written to %s\n", acquireOutput)
	return nil
}

func runChunk(cmd *cobra.Command, _ []string) error {
	svc, err := ingestionService()
	if err != nil {
		return err
	}

	done := trackProgress(svc, cmd.ErrOrStderr())
	summary, err := svc.Chunk(cmd.Context(), chunkInput, chunkOutput)
	done()
	if err != nil {
		return fmt.Errorf("chunk failed: %w", err)
	}
	printSummary(cmd, summary)
	cmd.Printf("Chunks written to %s\n", chunkOutput)
	return nil
}

func runLoad(cmd *cobra.Command, _ []string) error {
	svc, err := ingestionService()
	if err != nil {
		return err
	}

	done := trackProgress(svc, cmd.ErrOrStderr())
	summary, err := svc.Load(cmd.Context(), loadInput)
	done()
	if err != nil {
		return fmt.Errorf("load failed: %w", err)
	}
	printSummary(cmd, summary)
	if summary.HasFailures() {
		return fmt.Errorf("%d of %d chunk records failed to load", summary.Failed, summary.Total())
	}
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	refs, err := readReferences(ingestInput, args)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return errors.New("no references: pass --input or arguments")
	}
	svc, err := ingestionService()
	if err != nil {
		return err
	}

	done := trackProgress(svc, cmd.ErrOrStderr())
	summary, err := svc.Run(cmd.Context(), refs)
	done()
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printSummary(cmd, summary)
	return nil
}

// printSummary prints the stage counts followed by the failed items.
func printSummary(cmd *cobra.Command, summary *domain.IngestionSummary) {
	p := newPalette(cmd.OutOrStdout())

	style := p.Success
	if summary.HasFailures() {
		style = p.Warning
	}
	cmd.Println(style.Render(summary.String()))
	if summary.Chunks > 0 {
		cmd.Printf("Chunks: %d\n", summary.Chunks)
	}
	if !summary.HasFailures() {
		return
	}
	cmd.Println(p.Subtitle.Render("Failed:"))
	for _, f := range summary.FailedItems {
		cmd.Printf("  - %s: %s\n", f.Item, p.Error.Render(f.Reason))
	}
}

func prepareAcquisition(cmd *cobra.Command, opts *BootstrapOptions) error {
	opts.Override = acquisitionOverride(cmd)
	return nil
}

func prepareChunking(cmd *cobra.Command, opts *BootstrapOptions) error {
	opts.Override = chunkingOverride(cmd)
	return nil
}

func prepareCollection(cmd *cobra.Command, opts *BootstrapOptions) error {
	opts.Override = collectionOverride(cmd)
	return nil
}

func prepareIngest(cmd *cobra.Command, opts *BootstrapOptions) error {
	acquisition := acquisitionOverride(cmd)
	chunking := chunkingOverride(cmd)
	collection := collectionOverride(cmd)
	opts.Override = func(s *domain.AppSettings) error {
		for _, fn := range []func(*domain.AppSettings) error{acquisition, chunking, collection} {
			if err := fn(s); err != nil {
				return err
			}
		}
		return nil
	}
	opts.DocumentsDir = ingestOutputDocs
	return nil
}

func acquisitionOverride(cmd *cobra.Command) func(*domain.AppSettings) error {
	return func(s *domain.AppSettings) error {
		if !cmd.Flags().Changed("language") {
			return nil
		}
		value, _ := cmd.Flags().GetString("language")
		lang, err := domain.ParseLanguage(value)
		if err != nil {
			return err
		}
		s.Acquisition.Language = lang
		return nil
	}
}

func chunkingOverride(cmd *cobra.Command) func(*domain.AppSettings) error {
	return func(s *domain.AppSettings) error {
		flags := cmd.Flags()
		if flags.Changed("chunk-size") {
			s.Chunking.Size, _ = flags.GetInt("chunk-size")
		}
		if flags.Changed("chunk-overlap") {
			s.Chunking.Overlap, _ = flags.GetInt("chunk-overlap")
		}
		if flags.Changed("embedding-model") {
			s.Embedding.Model, _ = flags.GetString("embedding-model")
			s.Embedding.Dimensions = 0
			if d := s.Embedding.EffectiveDimensions(); d > 0 {
				s.VectorStore.Dimensions = d
			}
		}
		return s.Chunking.Validate()
	}
}

func collectionOverride(cmd *cobra.Command) func(*domain.AppSettings) error {
	return func(s *domain.AppSettings) error {
		flags := cmd.Flags()
		if flags.Changed("collection") {
			s.VectorStore.Collection, _ = flags.GetString("collection")
		}
		if !flags.Changed("host") && !flags.Changed("port") {
			return nil
		}
		host, _ := flags.GetString("host")
		port, _ := flags.GetInt("port")
		u, err := withHostPort(s.VectorStore.URL, host, port)
		if err != nil {
			return err
		}
		s.VectorStore.URL = u
		return nil
	}
}

// withHostPort replaces the host and/or port of a vector store URL.
// Empty host and zero port keep the current values.
func withHostPort(raw, host string, port int) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		u = &url.URL{Scheme: "http", Host: "localhost:6333"}
	}
	h, p := u.Hostname(), u.Port()
	if host != "" {
		h = host
	}
	if port != 0 {
		if port < 0 || port > 65535 {
			return "", &domain.ConfigurationError{
				Op:  "parse --port",
				Err: fmt.Errorf("%w: port %d out of range", domain.ErrInvalidInput, port),
			}
		}
		p = strconv.Itoa(port)
	}
	if p == "" {
		u.Host = h
	} else {
		u.Host = net.JoinHostPort(h, p)
	}
	return u.String(), nil
}
