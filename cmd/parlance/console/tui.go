package consolecmder

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/parlancehq/parlance/api"
	searchcmder "github.com/parlancehq/parlance/cmd/parlance/search"
	"github.com/parlancehq/parlance/pkg/cliui"
	"github.com/parlancehq/parlance/pkg/document"
	"github.com/parlancehq/parlance/pkg/search"
)

func init() {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)
}

var (
	consoleTitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	consoleMutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	consoleAccentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("215"))
	consoleSectionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	consoleHighlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("235")).Background(lipgloss.Color("214")).Bold(true)
	consoleSourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
	consoleErrStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type consoleKeyMap struct {
	Search key.Binding
	Up     key.Binding
	Down   key.Binding
	Lang   key.Binding
	Clear  key.Binding
	Quit   key.Binding
}

func (k consoleKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Down, k.Up, k.Lang, k.Clear, k.Quit}
}

func (k consoleKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Search, k.Down, k.Up}, {k.Lang, k.Clear, k.Quit}}
}

func defaultConsoleKeyMap() consoleKeyMap {
	return consoleKeyMap{
		Search: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search")),
		Up:     key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "prev")),
		Down:   key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "next")),
		Lang:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "language")),
		Clear:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

type searchDoneMsg struct {
	result *api.SearchResponse
	err    error
}

type consoleOpts struct {
	apiTarget string
	language  string
	topK      int
	languages []string
}

type consoleModel struct {
	opts      consoleOpts
	langCycle []string
	langIndex int

	input    textinput.Model
	viewport viewport.Model
	help     help.Model
	keys     consoleKeyMap

	result    *api.SearchResponse
	hits      []search.Hit
	cursor    int
	searching bool
	err       error

	width  int
	height int
	ready  bool
}

func runConsoleTUI(opts consoleOpts) error {
	program := bubbletea.NewProgram(newConsoleModel(opts),
		bubbletea.WithAltScreen(),
	)
	_, err := program.Run()
	return err
}

func newConsoleModel(opts consoleOpts) consoleModel {
	ti := textinput.New()
	ti.Placeholder = "Search the corpus..."
	ti.Prompt = "❯ "
	ti.CharLimit = 512
	ti.Focus()

	// An empty entry means "server default"; Tab walks the cycle.
	langCycle := []string{""}
	for _, lang := range opts.languages {
		if lang != "" {
			langCycle = append(langCycle, lang)
		}
	}

	langIndex := 0
	if opts.language != "" {
		found := false
		for i, lang := range langCycle {
			if lang == opts.language {
				langIndex = i
				found = true
				break
			}
		}
		if !found {
			langCycle = append(langCycle, opts.language)
			langIndex = len(langCycle) - 1
		}
	}

	return consoleModel{
		opts:      opts,
		langCycle: langCycle,
		langIndex: langIndex,
		input:     ti,
		help:      help.New(),
		keys:      defaultConsoleKeyMap(),
	}
}

func (m consoleModel) Init() bubbletea.Cmd {
	return textinput.Blink
}

func (m consoleModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 4

		vpHeight := msg.Height - 3
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = vpHeight
		}
		m.viewport.SetContent(m.renderResults())
		return m, nil

	case searchDoneMsg:
		m.searching = false
		if msg.err != nil {
			m.err = msg.err
			m.result = nil
			m.hits = nil
		} else {
			m.err = nil
			m.result = msg.result
			m.hits = msg.result.Results
			m.cursor = 0
		}
		if m.ready {
			m.viewport.SetContent(m.renderResults())
			m.viewport.GotoTop()
		}
		return m, nil

	case bubbletea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m consoleModel) View() string {
	if !m.ready {
		return "loading..."
	}

	lang := m.langCycle[m.langIndex]
	if lang == "" {
		lang = "auto"
	}
	status := consoleMutedStyle.Render("language: " + lang)
	if m.searching {
		status = consoleAccentStyle.Render("searching...")
	}

	header := fmt.Sprintf("%s  %s", consoleTitleStyle.Render("parlance console"), status)

	return fmt.Sprintf("%s\n%s\n%s\n%s",
		header,
		m.viewport.View(),
		m.input.View(),
		m.help.View(m.keys),
	)
}

func (m consoleModel) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, bubbletea.Quit
	case "esc":
		m.input.SetValue("")
		return m, nil
	case "enter":
		query := strings.TrimSpace(m.input.Value())
		if query == "" || m.searching {
			return m, nil
		}
		m.searching = true
		m.err = nil
		return m, m.searchCmd(query)
	case "tab":
		m.langIndex = (m.langIndex + 1) % len(m.langCycle)
		return m, nil
	case "up":
		if len(m.hits) > 0 && m.cursor > 0 {
			m.cursor--
			m.viewport.SetContent(m.renderResults())
		}
		return m, nil
	case "down":
		if len(m.hits) > 0 && m.cursor < len(m.hits)-1 {
			m.cursor++
			m.viewport.SetContent(m.renderResults())
		}
		return m, nil
	case "pgup", "pgdown", "ctrl+u", "ctrl+d":
		var cmd bubbletea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd bubbletea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m consoleModel) searchCmd(query string) bubbletea.Cmd {
	target := m.opts.apiTarget
	lang := m.langCycle[m.langIndex]
	topK := m.opts.topK

	return func() bubbletea.Msg {
		result, err := searchcmder.SearchAPI(target, query, lang, topK)
		return searchDoneMsg{result: result, err: err}
	}
}

func (m consoleModel) renderResults() string {
	if m.err != nil {
		return consoleErrStyle.Render(m.err.Error())
	}
	if m.result == nil {
		return consoleMutedStyle.Render("Type a query and press Enter.")
	}
	if len(m.hits) == 0 {
		return consoleMutedStyle.Render(fmt.Sprintf("No results for %q.", m.result.Query))
	}

	var b strings.Builder

	b.WriteString(consoleSectionStyle.Render(fmt.Sprintf("Results for %q", m.result.Query)))
	b.WriteString(consoleMutedStyle.Render(fmt.Sprintf("  %s, %s",
		m.result.Language, cliui.FormatDuration(m.result.Stats.Elapsed))))
	b.WriteString("\n\n")

	for i, hit := range m.hits {
		line := fmt.Sprintf("#%d  %.4f  %s", i+1, hit.Score, hit.Source)
		if i == m.cursor {
			b.WriteString(consoleHighlightStyle.Render(" " + line + " "))
		} else {
			b.WriteString(consoleAccentStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	selected := m.hits[m.cursor]
	b.WriteString("\n")
	b.WriteString(consoleSourceStyle.Render(selected.Source))
	b.WriteString("\n")

	rendered, err := cliui.RenderMarkdown(selected.Text)
	if err != nil {
		rendered = selected.Text
	}
	b.WriteString(rendered)

	b.WriteString("\n")
	b.WriteString(consoleMutedStyle.Render(m.languageFooter()))
	b.WriteString("\n")

	return b.String()
}

// languageFooter summarizes per-language match counts and top scores.
func (m consoleModel) languageFooter() string {
	per := m.result.Stats.PerLanguage
	langs := make([]string, 0, len(per))
	for lang := range per {
		langs = append(langs, string(lang))
	}
	sort.Strings(langs)

	parts := make([]string, 0, len(langs))
	for _, lang := range langs {
		ls := per[document.Language(lang)]
		parts = append(parts, fmt.Sprintf("%s: %d (%.2f)", lang, ls.Results, ls.TopScore))
	}
	return strings.Join(parts, "   ")
}
