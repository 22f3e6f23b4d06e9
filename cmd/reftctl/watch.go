package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	cl "reftourney/internal/cli"
	"reftourney/internal/tournament"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	frameStyle = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8"))
)

type snapshotMsg struct {
	snap tournament.Snapshot
	err  error
}

type tickMsg time.Time

type watchModel struct {
	ctx    context.Context
	client *cl.Client
	every  time.Duration
	table  table.Model
	snap   tournament.Snapshot
	err    error
}

func newWatchModel(ctx context.Context, client *cl.Client, every time.Duration) watchModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Pos", Width: 5},
			{Title: "Participant", Width: 28},
			{Title: "Referrals", Width: 10},
		}),
		table.WithHeight(tournament.DefaultLeaderboardSize+1),
		table.WithFocused(true),
	)
	return watchModel{ctx: ctx, client: client, every: every, table: t}
}

func (m watchModel) fetch() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, 15*time.Second)
		defer cancel()
		snap, err := m.client.Leaderboard(ctx)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m watchModel) tick() tea.Cmd {
	return tea.Tick(m.every, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m watchModel) Init() tea.Cmd {
	return m.fetch()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, m.fetch()
		}
	case tickMsg:
		return m, m.fetch()
	case snapshotMsg:
		m.err = msg.err
		if msg.err == nil {
			m.snap = msg.snap
			m.table.SetRows(leaderboardRows(msg.snap))
		}
		return m, m.tick()
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m watchModel) View() string {
	out := titleStyle.Render("Referral Leaderboard") + "\n"
	out += frameStyle.Render(m.table.View()) + "\n"
	if !m.snap.PublishedAt.IsZero() {
		out += mutedStyle.Render(fmt.Sprintf("published %s", m.snap.PublishedAt.Local().Format("15:04:05"))) + "\n"
	}
	if m.err != nil {
		out += errStyle.Render(m.err.Error()) + "\n"
	}
	out += mutedStyle.Render("r refresh • q quit")
	return out
}

func leaderboardRows(snap tournament.Snapshot) []table.Row {
	rows := make([]table.Row, 0, len(snap.Entries))
	for _, e := range snap.Entries {
		rows = append(rows, table.Row{
			strconv.Itoa(e.Position),
			truncate(e.Name(), 28),
			comma(e.ReferralCount),
		})
	}
	return rows
}

func runWatch(ctx context.Context, client *cl.Client, every time.Duration) error {
	if every <= 0 {
		every = 10 * time.Second
	}
	if !isTerminal(os.Stdout) {
		printError("watch needs an interactive terminal")
		return fmt.Errorf("stdout is not a terminal")
	}
	_, err := tea.NewProgram(newWatchModel(ctx, client, every), tea.WithContext(ctx)).Run()
	return err
}
