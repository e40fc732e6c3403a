package cli

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"amplie/internal/domain"
)

var (
	retrieveEmotion string
	retrieveMode    string
	retrieveTempo   float64
	retrieveEnergy  float64
	retrieveValence float64
	retrieveGenres  []string
	retrieveTopK    int
	retrieveJSON    bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve",
	Short: "Find tracks closest to a mood",
	Long: `Retrieve the nearest tracks for a policy. The policy comes either from an
emotion (and optional mode) or from explicit tempo, energy, valence and genres.

Examples:
  amplie retrieve --emotion sad --mode minor
  amplie retrieve --tempo 128 --energy 0.8 --valence 0.9 --genres pop,edm -k 10 --json`,
	Args: cobra.NoArgs,
	RunE: runRetrieve,
}

func init() {
	rootCmd.AddCommand(retrieveCmd)
	retrieveCmd.Flags().StringVarP(&retrieveEmotion, "emotion", "e", "", "listener emotion")
	retrieveCmd.Flags().StringVarP(&retrieveMode, "mode", "m", "", "major or minor (default major)")
	retrieveCmd.Flags().Float64Var(&retrieveTempo, "tempo", 0, "tempo in bpm")
	retrieveCmd.Flags().Float64Var(&retrieveEnergy, "energy", 0, "energy in [0,1]")
	retrieveCmd.Flags().Float64Var(&retrieveValence, "valence", 0, "valence in [0,1]")
	retrieveCmd.Flags().StringSliceVar(&retrieveGenres, "genres", nil, "comma separated genres")
	retrieveCmd.Flags().IntVarP(&retrieveTopK, "top-k", "k", 0, "number of results (default from config)")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output as JSON")
	retrieveCmd.MarkFlagsMutuallyExclusive("emotion", "tempo")
	retrieveCmd.MarkFlagsMutuallyExclusive("emotion", "genres")
	retrieveCmd.MarkFlagsOneRequired("emotion", "tempo")
}

type retrieveOutput struct {
	Policy domain.Policy  `json:"policy"`
	Items  []retrieveItem `json:"items"`
}

type retrieveItem struct {
	ID       string         `json:"id"`
	Distance *float64       `json:"distance"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	store, err := newBackend()
	if err != nil {
		return err
	}
	retrieveUC := newRetrieveUseCase(newVectorStore(store))

	var (
		policy  domain.Policy
		matches []domain.Match
	)
	if retrieveEmotion != "" {
		policy, matches, err = retrieveUC.RetrieveForEmotion(cmd.Context(), retrieveEmotion, retrieveMode, retrieveTopK)
	} else {
		policy = domain.Policy{
			Tempo:   retrieveTempo,
			Energy:  retrieveEnergy,
			Valence: retrieveValence,
			Genres:  retrieveGenres,
		}
		matches, err = retrieveUC.Retrieve(cmd.Context(), policy, retrieveTopK)
	}
	if err != nil {
		return fmt.Errorf("retrieve failed: %w", err)
	}

	if retrieveJSON {
		out := retrieveOutput{Policy: policy, Items: make([]retrieveItem, len(matches))}
		for i, m := range matches {
			out.Items[i] = retrieveItem{ID: m.ID, Metadata: m.Metadata}
			if !math.IsInf(m.Distance, 0) {
				d := m.Distance
				out.Items[i].Distance = &d
			}
		}
		output, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Policy: %.0f bpm, energy %.2f, valence %.2f, genres [%s]\n\n",
		policy.Tempo, policy.Energy, policy.Valence, strings.Join(policy.Genres, ", "))
	if len(matches) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	for i, m := range matches {
		title, _ := m.Metadata["title"].(string)
		artist, _ := m.Metadata["artist"].(string)
		fmt.Printf("%2d. %-24s %s - %s (distance: %.4f)\n", i+1, m.ID, artist, title, m.Distance)
	}
	return nil
}
