package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"amplie/internal/adapter/encoder"
	"amplie/internal/adapter/policy"
)

var (
	policyEmotion string
	policyMode    string
	policyVector  bool
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Show the policy for an emotion",
	Long: `Print the musical policy an emotion maps to, optionally with its vector.

Examples:
  amplie policy --emotion happy
  amplie policy --emotion sad --mode minor --vector`,
	Args: cobra.NoArgs,
	RunE: runPolicy,
}

func init() {
	rootCmd.AddCommand(policyCmd)
	policyCmd.Flags().StringVarP(&policyEmotion, "emotion", "e", "", "listener emotion (required)")
	policyCmd.Flags().StringVarP(&policyMode, "mode", "m", "", "major or minor (default major)")
	policyCmd.Flags().BoolVar(&policyVector, "vector", false, "include the encoded vector")
	policyCmd.MarkFlagRequired("emotion")
}

func runPolicy(cmd *cobra.Command, args []string) error {
	p, err := policy.NewFixtures().GetPolicy(cmd.Context(), policyEmotion, policyMode)
	if err != nil {
		return err
	}

	out := map[string]any{"policy": p}
	if policyVector {
		out["vector"] = encoder.Encode(p)
	}
	output, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(output))
	return nil
}
