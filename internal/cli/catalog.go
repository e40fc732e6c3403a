package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"amplie/internal/adapter/fs"
	"amplie/internal/usecase"
)

var (
	importPrune bool
	listJSON    bool
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the local track catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import [path]",
	Short: "Import seed files into the catalog",
	Long: `Import JSON or YAML seed files found under path. Each file holds an
array of tracks with id, title, artist and policy.

Examples:
  amplie catalog import .
  amplie catalog import ./seeds --prune`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCatalogImport,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog tracks",
	RunE:  runCatalogList,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogImportCmd, catalogListCmd)
	catalogImportCmd.Flags().BoolVar(&importPrune, "prune", false, "delete catalog tracks missing from the seed files")
	catalogListCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
}

func runCatalogImport(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	cfg := GetConfig()
	st, err := openCatalog()
	if err != nil {
		return err
	}
	defer st.Close()

	walker := fs.NewWalker(cfg.Embed.Includes, cfg.Embed.Excludes)
	result, err := usecase.NewImportUseCase(st, walker, logger).Import(path, importPrune)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("Import complete:\n")
	fmt.Printf("  Tracks imported: %d\n", result.ItemsImported)
	if importPrune {
		fmt.Printf("  Tracks deleted:  %d\n", result.ItemsDeleted)
		if result.ItemsDeleted > 0 {
			fmt.Printf("  Deleted tracks stay in the vector collection until it is rebuilt.\n")
		}
	}
	fmt.Printf("  Catalog size:    %d\n", result.Total)
	return nil
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	st, err := openCatalog()
	if err != nil {
		return err
	}
	defer st.Close()

	items, err := st.ListItems()
	if err != nil {
		return err
	}

	if listJSON {
		output, _ := json.MarshalIndent(items, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(items) == 0 {
		fmt.Println("Catalog is empty. Run 'amplie catalog import' first.")
		return nil
	}
	for _, item := range items {
		p := item.Policy
		fmt.Printf("%-24s %s - %s  (%.0f bpm, energy %.2f, valence %.2f, %s)\n",
			item.ID, item.Artist, item.Title, p.Tempo, p.Energy, p.Valence, strings.Join(p.Genres, ", "))
	}
	return nil
}
