package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/afiq-labs/afiq-cli/internal/core/domain"
)

// exchange is one question/answer pair in the transcript.
type exchange struct {
	query  string
	answer *domain.Answer
}

// askResultMsg carries a completed answer into the update loop.
type askResultMsg struct {
	query  string
	answer *domain.Answer
}

// askErrMsg carries an ask failure into the update loop.
type askErrMsg struct {
	err error
}

// App is the chat application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	// styles holds the TUI styles.
	styles *Styles

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	// history is the transcript of completed exchanges.
	history []exchange

	// waiting is true while a question is in flight.
	waiting bool

	// pending is the question currently in flight.
	pending string

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has received its initial size.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new chat application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	ti := textinput.New()
	ti.Placeholder = "Ask about AFI/DAFI compliance..."
	ti.Focus()
	ti.CharLimit = 512

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &App{
		ports:   ports,
		ctx:     context.Background(),
		styles:  DefaultStyles(),
		input:   ti,
		spinner: sp,
	}, nil
}

// WithContext sets the context used for ask requests.
func (a *App) WithContext(ctx context.Context) {
	if ctx != nil {
		a.ctx = ctx
	}
}

// Init initialises the application.
func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and updates the application state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = msg.Width - 8
		vpHeight := msg.Height - 6
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !a.ready {
			a.viewport = viewport.New(msg.Width, vpHeight)
			a.ready = true
		} else {
			a.viewport.Width = msg.Width
			a.viewport.Height = vpHeight
		}
		a.viewport.SetContent(a.renderTranscript())
		return a, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return a, tea.Quit
		case tea.KeyEnter:
			return a.submit()
		}

	case askResultMsg:
		a.waiting = false
		a.pending = ""
		a.err = nil
		a.history = append(a.history, exchange{query: msg.query, answer: msg.answer})
		a.viewport.SetContent(a.renderTranscript())
		a.viewport.GotoBottom()
		return a, nil

	case askErrMsg:
		a.waiting = false
		a.pending = ""
		a.err = msg.err
		return a, nil

	case spinner.TickMsg:
		if !a.waiting {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	cmds = append(cmds, cmd)
	a.viewport, cmd = a.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

// submit sends the current input as a question.
func (a *App) submit() (tea.Model, tea.Cmd) {
	query := strings.TrimSpace(a.input.Value())
	if query == "" || a.waiting {
		return a, nil
	}

	a.waiting = true
	a.pending = query
	a.err = nil
	a.input.Reset()
	return a, tea.Batch(a.spinner.Tick, a.ask(query))
}

// ask runs one pipeline request off the update loop.
func (a *App) ask(query string) tea.Cmd {
	return func() tea.Msg {
		answer, err := a.ports.Ask.Ask(a.ctx, query, domain.AskOptions{})
		if err != nil {
			return askErrMsg{err: err}
		}
		return askResultMsg{query: query, answer: answer}
	}
}

// View renders the application.
func (a *App) View() string {
	if !a.ready {
		return "Starting AFIQ chat..."
	}

	var b strings.Builder
	b.WriteString(a.styles.Title.Render("AFIQ Chat"))
	b.WriteString("\n")
	b.WriteString(a.viewport.View())
	b.WriteString("\n")

	if a.waiting {
		b.WriteString(a.styles.Muted.Render(a.spinner.View() + " Thinking..."))
		b.WriteString("\n")
	} else if a.err != nil {
		b.WriteString(a.styles.Error.Render("Error: " + a.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString(a.styles.InputField.Render(a.input.View()))
	b.WriteString("\n")
	b.WriteString(a.styles.StatusBar.Render("enter: ask • esc: quit"))
	return b.String()
}

// renderTranscript renders the full question/answer history.
func (a *App) renderTranscript() string {
	if len(a.history) == 0 {
		return a.styles.Muted.Render("Ask a question to get started.")
	}

	var b strings.Builder
	for i := range a.history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(a.styles.Question.Render("> " + a.history[i].query))
		b.WriteString("\n\n")
		b.WriteString(a.renderAnswer(a.history[i].answer))
	}
	return b.String()
}

// renderAnswer renders one answer with its provenance notes.
func (a *App) renderAnswer(answer *domain.Answer) string {
	var b strings.Builder
	b.WriteString(answer.Answer)

	if answer.KnowledgeFallback {
		b.WriteString("\n")
		b.WriteString(a.styles.Warning.Render("No relevant passages retrieved; answered from model knowledge."))
	}
	if answer.FilterFallback {
		b.WriteString("\n")
		b.WriteString(a.styles.Warning.Render("Relevance filter fell back to similarity ranking."))
	}

	if len(answer.Sources) > 0 {
		b.WriteString("\n")
		for i := range answer.Sources {
			b.WriteString("\n")
			line := fmt.Sprintf("%s (%.2f)", answer.Sources[i].Label(), answer.Sources[i].Similarity)
			b.WriteString(a.styles.Citation.Render(line))
		}
	}

	meta := fmt.Sprintf("retrieved %d, kept %d, model %s",
		answer.SearchResultsCount, answer.FilteredResultsCount, answer.Model)
	b.WriteString("\n")
	b.WriteString(a.styles.Muted.Render(meta))
	return b.String()
}
