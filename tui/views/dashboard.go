package views

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"tui/db"
	"tui/styles"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type dashboardDataMsg struct {
	summary  db.Summary
	channels []db.ChannelCount
	runs     []db.IngestRun
	err      error
}

type logTailMsg struct {
	lines   []string
	modTime time.Time
}

type Dashboard struct {
	db            *db.Client
	width, height int
	summary       db.Summary
	channels      []db.ChannelCount
	runs          []db.IngestRun
	err           error
	logLines      []string
	logPath       string
	logScroll     int // 0 = newest
	logViewport   int
	logBuffer     int
	logModTime    time.Time
}

func NewDashboard(dbClient *db.Client, logPath string) Dashboard {
	if logPath == "" {
		logPath = "logs/daemon.log"
	}
	return Dashboard{
		db:          dbClient,
		logPath:     logPath,
		logViewport: 15,
		logBuffer:   200,
	}
}

func (d Dashboard) Init() tea.Cmd {
	return tea.Batch(d.Refresh(), d.RefreshLog())
}

func (d Dashboard) Refresh() tea.Cmd {
	return func() tea.Msg {
		summary, err := d.db.GetSummary()
		if err != nil {
			return dashboardDataMsg{err: err}
		}
		channels, _ := d.db.GetChannelCounts()
		runs, _ := d.db.GetRecentRuns(10)
		return dashboardDataMsg{summary: summary, channels: channels, runs: runs}
	}
}

func (d Dashboard) RefreshLog() tea.Cmd {
	return func() tea.Msg {
		lines, modTime := readLastLines(d.logPath, d.logBuffer)
		return logTailMsg{lines, modTime}
	}
}

func readLastLines(path string, n int) ([]string, time.Time) {
	f, err := os.Open(path)
	if err != nil {
		return []string{"(no log file)"}, time.Time{}
	}
	defer f.Close()

	var modTime time.Time
	if info, err := f.Stat(); err == nil {
		modTime = info.ModTime()
	}

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}

	if len(lines) == 0 {
		return []string{"(empty log)"}, modTime
	}
	return lines, modTime
}

func (d Dashboard) SetSize(w, h int) Dashboard {
	d.width = w
	d.height = h
	return d
}

func (d Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		d.err = msg.err
		if msg.err == nil {
			d.summary = msg.summary
			d.channels = msg.channels
			d.runs = msg.runs
		}
	case logTailMsg:
		d.logLines = msg.lines
		d.logModTime = msg.modTime
	case tea.KeyMsg:
		maxScroll := len(d.logLines) - d.logViewport
		if maxScroll < 0 {
			maxScroll = 0
		}
		switch msg.String() {
		case "up", "k":
			d.logScroll = min(d.logScroll+1, maxScroll)
		case "down", "j":
			d.logScroll = max(d.logScroll-1, 0)
		case "pgup":
			d.logScroll = min(d.logScroll+10, maxScroll)
		case "pgdown":
			d.logScroll = max(d.logScroll-10, 0)
		case "home":
			d.logScroll = maxScroll
		case "end":
			d.logScroll = 0
		}
	}
	return d, nil
}

func (d Dashboard) View() string {
	if d.err != nil {
		return styles.StatusError.Render("Database error: " + d.err.Error())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		styles.Title.Render("Dashboard"),
		d.renderStatCards(),
		"",
		d.renderChannelCards(),
		"",
		styles.Title.Render("Recent Runs"),
		d.renderRunsTable(),
		"",
		d.renderLogTail(),
	)
}

func (d Dashboard) renderStatCards() string {
	lastRun := "never"
	if d.summary.LastRunAt != nil {
		lastRun = relativeTime(*d.summary.LastRunAt)
	}
	status := "-"
	if d.summary.LastRunStatus != nil {
		status = *d.summary.LastRunStatus
	}

	cards := []string{
		renderStatCard("Leads", fmt.Sprintf("%d", d.summary.ProcessedLeads)),
		renderStatCard("With deal", fmt.Sprintf("%d", d.summary.WithDeal)),
		renderStatCard("Runs", fmt.Sprintf("%d", d.summary.Runs)),
		renderStatCard("Failed runs", fmt.Sprintf("%d", d.summary.FailedRuns)),
		styles.CardBorder.Width(18).Render(lipgloss.JoinVertical(lipgloss.Center,
			styles.ForStatus(status).Render(status),
			styles.StatLabel.Render("Last: "+lastRun),
		)),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func renderStatCard(label, value string) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		styles.StatValue.Render(value),
		styles.StatLabel.Render(label),
	)
	return styles.CardBorder.Width(14).Render(content)
}

func (d Dashboard) renderChannelCards() string {
	if len(d.channels) == 0 {
		return styles.Muted.Render("No leads processed yet")
	}

	var cards []string
	for _, c := range d.channels {
		content := lipgloss.JoinVertical(lipgloss.Left,
			styles.StatValue.Render(fmt.Sprintf("%d", c.Count)),
			styles.StatLabel.Render(fmt.Sprintf("%s %s", c.Platform, c.LeadType)),
		)
		cards = append(cards, styles.ChannelCardBorder.Width(18).Render(content))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func (d Dashboard) renderRunsTable() string {
	if len(d.runs) == 0 {
		return styles.Muted.Render("No runs yet")
	}

	header := fmt.Sprintf("%-10s %-10s %-9s %6s %6s %6s %5s %6s",
		"Run", "Status", "Started", "Found", "Deals", "Dupes", "Rec", "Errors")
	rows := styles.TableHeader.Render(header) + "\n"

	for _, r := range d.runs {
		row := fmt.Sprintf("%-10s %s %-9s %6d %6d %6d %5d %6d",
			truncate(r.RunKey, 10),
			styles.ForStatus(r.Status).Render(fmt.Sprintf("%-10s", r.Status)),
			r.StartedAt.Local().Format("15:04:05"),
			r.LeadsFound,
			r.DealsNew,
			r.Duplicates,
			r.Recordings,
			r.ErrorsCount,
		)
		rows += row + "\n"
	}
	return rows
}

func (d Dashboard) renderLogTail() string {
	width := max(d.width-4, 20)
	if len(d.logLines) == 0 {
		return styles.LogBox.Width(width).Render(styles.Muted.Render("(waiting for logs...)"))
	}

	total := len(d.logLines)
	endIdx := max(total-d.logScroll, 0)
	startIdx := max(endIdx-d.logViewport, 0)

	var lines []string
	for _, line := range d.logLines[startIdx:endIdx] {
		lines = append(lines, styleLogLine(truncate(line, width-4)))
	}

	indicator := styles.StatusSuccess.Render(" ● LIVE ")
	if d.logScroll > 0 {
		indicator = styles.StatusPending.Render(fmt.Sprintf(" ↑%d ", d.logScroll))
	} else if !d.logModTime.IsZero() && time.Since(d.logModTime) > 10*time.Minute {
		indicator = styles.StatusPending.Render(" ● IDLE ")
	}

	header := styles.Title.Render("Daemon Log") + indicator +
		styles.Muted.Render(fmt.Sprintf("[%d-%d/%d]", startIdx+1, endIdx, total))
	return styles.LogBox.Width(width).Render(header + "\n" + strings.Join(lines, "\n"))
}

// styleLogLine colours "[level] source: msg" lines by level.
func styleLogLine(line string) string {
	switch {
	case strings.Contains(line, "[error]"):
		return styles.StatusError.Render(line)
	case strings.Contains(line, "[warn]"):
		return styles.StatusPending.Render(line)
	case strings.Contains(line, "[info]"):
		return styles.LogInfo.Render(line)
	}
	return line
}

func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	return s[:max-1] + "…"
}
