package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"tui/admin"
	"tui/db"
	"tui/styles"
	"tui/views"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
)

type tab int

const (
	tabDashboard tab = iota
	tabLeads
	tabLogs
)

type model struct {
	admin         *admin.Client
	activeTab     tab
	width, height int
	notification  string
	notifyUntil   time.Time
	running       bool

	dashboard views.Dashboard
	leads     views.Leads
	logs      views.Logs
}

type tickMsg time.Time
type logTickMsg time.Time

type runDoneMsg struct {
	totals *admin.RunTotals
	err    error
}

func initialModel(dbClient *db.Client, adminClient *admin.Client, logPath, dealURL string) model {
	return model{
		admin:     adminClient,
		activeTab: tabDashboard,
		dashboard: views.NewDashboard(dbClient, logPath),
		leads:     views.NewLeads(dbClient, dealURL),
		logs:      views.NewLogs(dbClient),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.dashboard.Init(),
		m.leads.Init(),
		m.logs.Init(),
		tickCmd(),
		logTickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(30*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func logTickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return logTickMsg(t)
	})
}

func (m model) triggerRun() tea.Cmd {
	return func() tea.Msg {
		totals, err := m.admin.TriggerRun(context.Background())
		return runDoneMsg{totals, err}
	}
}

func (m *model) notify(text string) {
	m.notification = text
	m.notifyUntil = time.Now().Add(3 * time.Second)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "d":
			m.activeTab = tabDashboard
		case "p":
			m.activeTab = tabLeads
		case "l":
			m.activeTab = tabLogs
		case "tab":
			m.activeTab = (m.activeTab + 1) % 3
		case "r":
			m.notify("Refreshed")
			return m, m.refreshActive()
		case "s":
			if m.running {
				m.notify("Run already in progress")
				return m, nil
			}
			m.running = true
			m.notify("Run started...")
			return m, m.triggerRun()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.dashboard = m.dashboard.SetSize(msg.Width, msg.Height-4)
		m.leads = m.leads.SetSize(msg.Width, msg.Height-4)
		m.logs = m.logs.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case runDoneMsg:
		m.running = false
		if msg.err != nil {
			m.notify("Run failed: " + msg.err.Error())
		} else {
			created, dupes, failed := msg.totals.Sum()
			m.notify(fmt.Sprintf("Run %s: %d created, %d duplicates, %d failed", msg.totals.RunKey, created, dupes, failed))
		}
		return m, tea.Batch(m.dashboard.Refresh(), m.leads.Refresh(), m.logs.Refresh())

	case tickMsg:
		cmds = append(cmds, m.refreshActive(), tickCmd())

	case logTickMsg:
		cmds = append(cmds, m.dashboard.RefreshLog(), logTickCmd())
	}

	// Keys go to the active tab only; data messages go to every view.
	switch msg.(type) {
	case tea.KeyMsg:
		switch m.activeTab {
		case tabDashboard:
			newDashboard, cmd := m.dashboard.Update(msg)
			m.dashboard = newDashboard.(views.Dashboard)
			cmds = append(cmds, cmd)
		case tabLeads:
			newLeads, cmd := m.leads.Update(msg)
			m.leads = newLeads.(views.Leads)
			cmds = append(cmds, cmd)
		case tabLogs:
			newLogs, cmd := m.logs.Update(msg)
			m.logs = newLogs.(views.Logs)
			cmds = append(cmds, cmd)
		}
	default:
		newDashboard, cmd1 := m.dashboard.Update(msg)
		m.dashboard = newDashboard.(views.Dashboard)

		newLeads, cmd2 := m.leads.Update(msg)
		m.leads = newLeads.(views.Leads)

		newLogs, cmd3 := m.logs.Update(msg)
		m.logs = newLogs.(views.Logs)

		cmds = append(cmds, cmd1, cmd2, cmd3)
	}

	return m, tea.Batch(cmds...)
}

func (m model) refreshActive() tea.Cmd {
	switch m.activeTab {
	case tabDashboard:
		return m.dashboard.Refresh()
	case tabLeads:
		return m.leads.Refresh()
	case tabLogs:
		return m.logs.Refresh()
	}
	return nil
}

func (m model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left, m.renderTabs(), m.renderContent(), m.renderStatusBar())
}

func (m model) renderTabs() string {
	var rendered []string
	for i, name := range []string{"Dashboard", "Leads", "Logs"} {
		if tab(i) == m.activeTab {
			rendered = append(rendered, styles.TabActive.Render(name))
		} else {
			rendered = append(rendered, styles.TabInactive.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...) + "\n"
}

func (m model) renderContent() string {
	switch m.activeTab {
	case tabDashboard:
		return m.dashboard.View()
	case tabLeads:
		return m.leads.View()
	case tabLogs:
		return m.logs.View()
	}
	return ""
}

func (m model) renderStatusBar() string {
	left := "d Dash  p Leads  l Logs  r Refresh  s Run now  q Quit"
	right := ""
	if time.Now().Before(m.notifyUntil) || m.running {
		right = styles.Notification.Render(m.notification)
	}

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 0)
	return styles.StatusBar.Render(left) + lipgloss.NewStyle().Width(gap).Render("") + right
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func main() {
	_ = godotenv.Load()

	// Same store the daemon writes: Postgres when configured, else SQLite.
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = getEnv("DB_PATH", "leads.db")
	}

	dbClient, err := db.New(dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	adminClient := admin.New(getEnv("ADMIN_URL", "http://localhost:8080"))
	logPath := getEnv("LOG_DIR", "logs") + "/daemon.log"

	p := tea.NewProgram(
		initialModel(dbClient, adminClient, logPath, os.Getenv("BITRIX_DEAL_URL")),
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
