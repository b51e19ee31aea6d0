package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/afiq-labs/afiq-cli/internal/adapters/driving/tui"
)

// chatCmd represents the chat command.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Launch the interactive chat interface",
	Long: `Launch the interactive terminal chat interface.

Questions run through the full retrieval pipeline and answers cite the
AFI/DAFI paragraphs they are grounded in.

Controls:
  Enter - Ask
  Esc   - Quit`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	// Panic recovery keeps stack traces visible when the TUI crashes
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in chat: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	if err := ensureServices(cmd); err != nil {
		return err
	}

	app, err := tui.NewApp(&tui.Ports{Ask: askService})
	if err != nil {
		return fmt.Errorf("failed to create chat interface: %w", err)
	}
	app.WithContext(cmd.Context())

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat error: %w", err)
	}
	return nil
}
