package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/afiq-labs/afiq-cli/internal/core/domain"
)

var (
	askNResults  int
	askMinScore  float64
	askDoc       string
	askChapter   string
	askFolder    string
	askModel     string
	askMaxTokens int
	askStrict    bool
	askNoFilter  bool
	askJSON      bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from indexed AFI/DAFI documents",
	Long: `Answers a compliance question grounded in retrieved AFI/DAFI passages.

Retrieval can be narrowed to one instruction or chapter. When no relevant
passages are found the answer falls back to model knowledge and says so.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askNResults, "n-results", "n", 0, "number of passages to retrieve (default 5)")
	askCmd.Flags().Float64Var(&askMinScore, "min-score", -1, "minimum similarity score (default 0.15)")
	askCmd.Flags().StringVar(&askDoc, "doc", "", "restrict to one instruction, e.g. 21-101 or \"DAFI 21-101\"")
	askCmd.Flags().StringVar(&askChapter, "chapter", "", "restrict to one chapter")
	askCmd.Flags().StringVar(&askFolder, "folder", "", "restrict to one folder")
	askCmd.Flags().StringVarP(&askModel, "model", "m", "", "generation model override")
	askCmd.Flags().IntVar(&askMaxTokens, "max-tokens", 0, "completion token budget (default 1500)")
	askCmd.Flags().BoolVar(&askStrict, "strict", false, "answer only from retrieved context")
	askCmd.Flags().BoolVar(&askNoFilter, "no-filter", false, "skip the LLM relevance filter")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the full response envelope as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	query := args[0]

	if err := ensureServices(cmd); err != nil {
		return err
	}
	if askService == nil {
		return errors.New("ask service not configured")
	}

	opts := domain.AskOptions{
		NResults:  askNResults,
		DocNumber: askDoc,
		Chapter:   askChapter,
		Folder:    askFolder,
		Model:     askModel,
		MaxTokens: askMaxTokens,
	}
	if askMinScore >= 0 {
		minScore := askMinScore
		opts.MinScore = &minScore
	}
	if askStrict {
		opts.Mode = domain.ModeStrict
	}
	if askNoFilter {
		useFilter := false
		opts.UseFilter = &useFilter
	}

	answer, err := askService.Ask(cmd.Context(), query, opts)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return outputAnswerJSON(cmd, answer)
	}
	return outputAnswerText(cmd, answer)
}

func outputAnswerJSON(cmd *cobra.Command, answer *domain.Answer) error {
	data, err := json.MarshalIndent(answer, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnswerText(cmd *cobra.Command, answer *domain.Answer) error {
	cmd.Println(answer.Answer)
	cmd.Println()

	if answer.KnowledgeFallback {
		cmd.Println("Note: no relevant passages were retrieved; answered from model knowledge.")
	}
	if answer.FilterFallback {
		cmd.Println("Note: relevance filter fell back to similarity ranking.")
	}
	if answer.ContextTruncated {
		cmd.Printf("Note: context truncated to %d tokens.\n", answer.ContextTokenLimit)
	}

	if len(answer.Sources) > 0 {
		cmd.Println("Sources:")
		for i := range answer.Sources {
			cmd.Printf("  %s (%.2f)\n", answer.Sources[i].Label(), answer.Sources[i].Similarity)
		}
		cmd.Println()
	}

	cmd.Printf("Retrieved %d, kept %d. Model: %s. Request: %s\n",
		answer.SearchResultsCount, answer.FilteredResultsCount, answer.Model, answer.RequestID)
	if total, ok := answer.Timings[domain.TimingTotal]; ok {
		cmd.Printf("Total: %.0f ms\n", total)
	}
	return nil
}
