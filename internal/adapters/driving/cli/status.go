package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

// statusCmd checks connectivity to the services the pipeline depends on.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check service connectivity and corpus size",
	Long: `Pings the embedding and generation services and reports the number of
indexed passages in the vector store.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}
	if embedder == nil || generator == nil || vectorStore == nil {
		return errors.New("services not configured")
	}

	ctx := cmd.Context()
	failed := false

	cmd.Printf("Embedding service (%s): ", embedder.ModelName())
	if err := embedder.Ping(ctx); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		failed = true
	} else {
		cmd.Println("OK")
	}

	cmd.Print("Generation service: ")
	if err := generator.Ping(ctx); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		failed = true
	} else {
		cmd.Println("OK")
	}

	cmd.Printf("Vector store (%s): ", vectorStore.Metric())
	count, err := vectorStore.Count(ctx)
	if err != nil {
		cmd.Printf("FAILED: %v\n", err)
		failed = true
	} else {
		cmd.Printf("%d passages\n", count)
	}

	if ruleStore != nil {
		rules := ruleStore.Rules()
		cmd.Printf("Rules: %d query rules, %d models, %d prompt modes\n",
			len(rules.QueryRules), len(rules.Models), len(rules.Prompts))
	}

	if failed {
		return errors.New("one or more services are unavailable")
	}
	return nil
}
