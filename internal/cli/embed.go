package cli

import (
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"amplie/internal/adapter/chroma"
	"amplie/internal/usecase"
)

var embedForce bool

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Write catalog tracks to the vector store",
	Long: `Encode catalog tracks and upsert them into the configured Chroma
collection. Only tracks added or changed since the last run are written
unless --force is given.

Examples:
  amplie embed
  amplie embed --force`,
	Args: cobra.NoArgs,
	RunE: runEmbed,
}

func init() {
	rootCmd.AddCommand(embedCmd)
	embedCmd.Flags().BoolVar(&embedForce, "force", false, "write every catalog track")
}

func runEmbed(cmd *cobra.Command, args []string) error {
	st, err := openCatalog()
	if err != nil {
		return err
	}
	defer st.Close()

	store, err := newBackend()
	if err != nil {
		return err
	}
	embedUC := newEmbedUseCase(store, st)

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time

	progressCallback := func(done, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		bar.Set(done)

		if done > 0 && done < total {
			elapsed := time.Since(startTime)
			rate := float64(done) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Embedding[reset] ETA: %s", formatDuration(eta)))
			}
		}
	}

	result, err := embedUC.Embed(cmd.Context(), usecase.EmbedOptions{
		Force:    embedForce,
		Progress: progressCallback,
	})
	if err != nil {
		if result != nil && result.Written > 0 {
			fmt.Printf("\n%d tracks were written before the failure.\n", result.Written)
		}
		return fmt.Errorf("embed failed: %w", err)
	}

	if result.Total == 0 {
		fmt.Println("Nothing to embed, the collection is up to date.")
		return nil
	}

	fmt.Printf("\nEmbed complete:\n")
	fmt.Printf("  Collection:     %s (%s)\n", result.Collection.Name, result.Collection.ID)
	fmt.Printf("  Tracks written: %d\n", result.Written)
	fmt.Printf("  Batches:        %d\n", result.Batches)
	if result.Reembedded {
		fmt.Printf("  Full re-embed:  encoder or collection changed\n")
	}
	if client, ok := store.(*chroma.Client); ok {
		if shape, ok := client.PinnedShape(); ok {
			fmt.Printf("  API shape:      %s\n", shape)
		}
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
