package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/metalagman/normareg/internal/audit"
	"github.com/metalagman/normareg/internal/orchestrator"
	"github.com/metalagman/normareg/internal/state"
)

func watchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch recent audit records in a terminal UI, colorized by risk level",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var records []*state.SharedState
			if err := withApp(func(ctx context.Context, orch *orchestrator.Orchestrator, _ *audit.Store) error {
				r, err := orch.ListAudit(ctx, limit)
				records = r
				return err
			}); err != nil {
				return err
			}

			_, err := tea.NewProgram(newWatchModel(records)).Run()
			return err
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of records to show")
	return cmd
}

// auditItem adapts a SharedState to bubbles/list's Item interface.
type auditItem struct {
	st *state.SharedState
}

func (i auditItem) FilterValue() string { return i.st.ExecutionID }

func (i auditItem) Title() string {
	return fmt.Sprintf("%s  %s", i.st.ExecutionID, riskLabel(i.st.RiskLevel))
}

func (i auditItem) Description() string {
	changed := "unknown"
	if i.st.ChangeDetected != nil {
		changed = fmt.Sprintf("%t", *i.st.ChangeDetected)
	}
	return fmt.Sprintf("change_detected=%s  %s", changed, i.st.ExecutionTimestamp.Format("2006-01-02 15:04"))
}

func riskLabel(risk state.RiskLevel) string {
	style := riskStyle(risk)
	label := string(risk)
	if label == "" {
		label = "unknown"
	}
	return style.Render(label)
}

func riskStyle(risk state.RiskLevel) lipgloss.Style {
	switch risk {
	case state.RiskHigh:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	case state.RiskMedium:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	}
}

type watchModel struct {
	list list.Model
}

func newWatchModel(records []*state.SharedState) watchModel {
	items := make([]list.Item, 0, len(records))
	for _, r := range records {
		items = append(items, auditItem{st: r})
	}
	l := list.New(items, list.NewDefaultDelegate(), 80, 24)
	l.Title = "normareg audit"
	return watchModel{list: l}
}

func (m watchModel) Init() tea.Cmd { return nil }

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m watchModel) View() string {
	return m.list.View()
}
