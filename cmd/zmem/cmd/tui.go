package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cosmiclasagnadev/zmem/internal/core"
	"github.com/cosmiclasagnadev/zmem/internal/ui"
)

func newTUICmd() *cobra.Command {
	var workspace string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Interactively recall memory items as you type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTUI(cmd, workspace)
		},
	}

	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace to search")

	return cmd
}

func runTUI(cmd *cobra.Command, workspace string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	m := newRecallModel(a, a.cfg.ResolveWorkspace(workspace))
	p := tea.NewProgram(m, tea.WithContext(cmd.Context()))
	_, err = p.Run()
	return err
}

type recallItem struct {
	hit core.RecallHit
}

func (i recallItem) Title() string { return i.hit.Title }
func (i recallItem) Description() string {
	return fmt.Sprintf("score %.3f · %s · %s", i.hit.Score, i.hit.Source, i.hit.Snippet)
}
func (i recallItem) FilterValue() string { return i.hit.Title }

type recallResultMsg struct {
	query string
	hits  []core.RecallHit
	err   error
}

type recallModel struct {
	app       *app
	workspace string
	input     textinput.Model
	results   list.Model
	styles    ui.Styles
	err       error
	searching bool
}

func newRecallModel(a *app, workspace string) recallModel {
	ti := textinput.New()
	ti.Placeholder = "recall..."
	ti.Focus()
	ti.CharLimit = 256

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "results"
	l.SetShowHelp(false)

	return recallModel{
		app:       a,
		workspace: workspace,
		input:     ti,
		results:   l,
		styles:    ui.GetStyles(ui.DetectNoColor()),
	}
}

func (m recallModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m recallModel) recallCmd(query string) tea.Cmd {
	return func() tea.Msg {
		if query == "" {
			return recallResultMsg{query: query}
		}
		hits, err := m.app.engine.Recall(context.Background(), query, core.RecallOptions{
			Workspace: m.workspace,
			Mode:      core.RecallHybrid,
			TopK:      20,
		})
		return recallResultMsg{query: query, hits: hits, err: err}
	}
}

func (m recallModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		}

		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.searching = true
		return m, tea.Batch(cmd, m.recallCmd(m.input.Value()))

	case recallResultMsg:
		m.searching = false
		if msg.query != m.input.Value() {
			return m, nil
		}
		m.err = msg.err
		items := make([]list.Item, len(msg.hits))
		for i, h := range msg.hits {
			items[i] = recallItem{hit: h}
		}
		m.results.SetItems(items)
		return m, nil

	case tea.WindowSizeMsg:
		m.results.SetSize(msg.Width, msg.Height-4)
		return m, nil
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

func (m recallModel) View() string {
	header := m.styles.Header.Render(fmt.Sprintf("zmem tui · %s", m.workspace))
	status := ""
	if m.err != nil {
		status = m.styles.Error.Render(m.err.Error())
	} else if m.searching {
		status = m.styles.Dim.Render("searching...")
	}
	return fmt.Sprintf("%s\n%s\n%s\n\n%s", header, m.input.View(), status, m.results.View())
}
