package views

import (
	"fmt"

	"tui/db"
	"tui/styles"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var levelFilters = []string{"info", "warn", "error"}

type logsMsg struct {
	logs []db.IngestLog
	err  error
}

// Logs shows the run log entries recorded in ingest_logs.
type Logs struct {
	db            *db.Client
	width, height int
	logs          []db.IngestLog
	err           error
	level         int
	scroll        int
}

func NewLogs(dbClient *db.Client) Logs {
	return Logs{db: dbClient}
}

func (l Logs) Init() tea.Cmd {
	return l.Refresh()
}

func (l Logs) Refresh() tea.Cmd {
	level := levelFilters[l.level]
	return func() tea.Msg {
		logs, err := l.db.GetLogs(level, 500)
		return logsMsg{logs, err}
	}
}

func (l Logs) SetSize(w, h int) Logs {
	l.width = w
	l.height = h
	return l
}

func (l Logs) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case logsMsg:
		l.logs = msg.logs
		l.err = msg.err
		if l.scroll >= len(l.logs) {
			l.scroll = 0
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			l.scroll = max(l.scroll-1, 0)
		case "down", "j":
			l.scroll = max(min(l.scroll+1, len(l.logs)-1), 0)
		case "pgup":
			l.scroll = max(l.scroll-10, 0)
		case "pgdown":
			l.scroll = max(min(l.scroll+10, len(l.logs)-1), 0)
		case "v":
			l.level = (l.level + 1) % len(levelFilters)
			l.scroll = 0
			return l, l.Refresh()
		}
	}
	return l, nil
}

func (l Logs) View() string {
	header := styles.Title.Render("Run Logs") +
		styles.Muted.Render(fmt.Sprintf("  [v] Level: %s+", levelFilters[l.level]))
	if l.err != nil {
		return lipgloss.JoinVertical(lipgloss.Left, header, styles.StatusError.Render(l.err.Error()))
	}
	if len(l.logs) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, header, styles.Muted.Render("No log entries"))
	}

	visible := 25
	if l.height > 0 {
		visible = max(l.height-4, 5)
	}
	end := min(l.scroll+visible, len(l.logs))
	width := max(l.width-54, 20)

	var rows string
	for _, e := range l.logs[l.scroll:end] {
		run := "-"
		if e.RunID != nil {
			run = fmt.Sprintf("#%d", *e.RunID)
		}
		lead := "-"
		if e.LeadID != "" {
			lead = e.LeadID
		}
		rows += fmt.Sprintf("%s %-6s %s %-9s %-9s %-10s %s\n",
			styles.LogTimestamp.Render(e.Timestamp.Local().Format("01-02 15:04:05")),
			run,
			styles.ForStatus(e.Level).Render(fmt.Sprintf("%-5s", e.Level)),
			truncate(e.Source, 9),
			truncate(e.Operation, 9),
			truncate(lead, 10),
			truncate(e.Message, width),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, rows)
}
