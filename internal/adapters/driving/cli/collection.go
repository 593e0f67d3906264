package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/wikirag/internal/core/domain"
)

var collectionJSON bool

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Inspect or create the vector collection",
}

var collectionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the collection health, dimension and size",
	Args:  cobra.NoArgs,
	RunE:  runCollectionStatus,
}

var collectionEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create the collection if it does not exist",
	Long: `Creates the collection with the embedding dimension and cosine
distance. An existing collection is checked against both instead.`,
	Args: cobra.NoArgs,
	RunE: runCollectionEnsure,
}

func init() {
	for _, cmd := range []*cobra.Command{collectionStatusCmd, collectionEnsureCmd} {
		cmd.Flags().BoolVar(&collectionJSON, "json", false, "output as JSON")
		addCollectionFlags(cmd)
		preparers[cmd] = prepareCollection
		collectionCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(collectionCmd)
}

func runCollectionStatus(cmd *cobra.Command, _ []string) error {
	svc, err := collectionService()
	if err != nil {
		return err
	}
	c, err := svc.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("collection status failed: %w", err)
	}
	return printCollection(cmd, c)
}

func runCollectionEnsure(cmd *cobra.Command, _ []string) error {
	svc, err := collectionService()
	if err != nil {
		return err
	}
	c, err := svc.Ensure(cmd.Context())
	if err != nil {
		return fmt.Errorf("collection ensure failed: %w", err)
	}
	return printCollection(cmd, c)
}

func printCollection(cmd *cobra.Command, c *domain.Collection) error {
	if collectionJSON {
		return printJSON(cmd, c)
	}

	p := newPalette(cmd.OutOrStdout())
	status := p.Success.Render(string(c.Status))
	if !c.IsHealthy() {
		status = p.Error.Render(string(c.Status))
	}

	cmd.Println(p.Title.Render("Collection " + c.Name))
	cmd.Printf("  Status:    %s\n", status)
	cmd.Printf("  Dimension: %d\n", c.Dimension)
	cmd.Printf("  Distance:  %s\n", c.Distance)
	cmd.Printf("  Points:    %d\n", c.PointCount)
	return nil
}
