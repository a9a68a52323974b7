package views

import (
	"fmt"

	"tui/db"
	"tui/styles"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var platformFilters = []string{"", "bayut", "dubizzle"}

type leadsMsg struct {
	leads []db.Lead
	total int
}

// Leads pages through the processed-lead log with its deal ids.
type Leads struct {
	db            *db.Client
	width, height int
	leads         []db.Lead
	total         int
	selectedRow   int
	filter        int // index into platformFilters
	page          int
	pageSize      int
	dealURL       string
}

// NewLeads builds the view. dealURL is the CRM deal page prefix, e.g.
// https://example.bitrix24.com/crm/deal/details/ and may be empty.
func NewLeads(dbClient *db.Client, dealURL string) Leads {
	return Leads{db: dbClient, pageSize: 100, dealURL: dealURL}
}

func (l Leads) Init() tea.Cmd {
	return l.Refresh()
}

func (l Leads) Refresh() tea.Cmd {
	platform := platformFilters[l.filter]
	limit, offset := l.pageSize, l.page*l.pageSize
	return func() tea.Msg {
		leads, _ := l.db.GetLeads(platform, limit, offset)
		total, _ := l.db.GetLeadCount(platform)
		return leadsMsg{leads, total}
	}
}

func (l Leads) SetSize(w, h int) Leads {
	l.width = w
	l.height = h
	return l
}

// SelectedDealURL returns the CRM link of the highlighted lead's deal.
func (l Leads) SelectedDealURL() string {
	if l.dealURL == "" || l.selectedRow >= len(l.leads) {
		return ""
	}
	if deal := l.leads[l.selectedRow].DealID; deal != nil {
		return fmt.Sprintf("%s%d/", l.dealURL, *deal)
	}
	return ""
}

func (l Leads) totalPages() int {
	if l.pageSize == 0 || l.total == 0 {
		return 1
	}
	return (l.total + l.pageSize - 1) / l.pageSize
}

func (l Leads) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case leadsMsg:
		l.leads = msg.leads
		l.total = msg.total
		if l.selectedRow >= len(l.leads) {
			l.selectedRow = 0
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			l.selectedRow = max(l.selectedRow-1, 0)
		case "down", "j":
			l.selectedRow = max(min(l.selectedRow+1, len(l.leads)-1), 0)
		case "pgup", "ctrl+u":
			l.selectedRow = max(l.selectedRow-10, 0)
		case "pgdown", "ctrl+d":
			l.selectedRow = max(min(l.selectedRow+10, len(l.leads)-1), 0)
		case "f":
			l.filter = (l.filter + 1) % len(platformFilters)
			l.page, l.selectedRow = 0, 0
			return l, l.Refresh()
		case "[":
			if l.page > 0 {
				l.page--
				l.selectedRow = 0
				return l, l.Refresh()
			}
		case "]":
			if l.page < l.totalPages()-1 {
				l.page++
				l.selectedRow = 0
				return l, l.Refresh()
			}
		}
	}
	return l, nil
}

func (l Leads) visibleRows() int {
	if l.height <= 0 {
		return 25
	}
	return max(l.height-6, 5)
}

func (l Leads) View() string {
	filter := platformFilters[l.filter]
	if filter == "" {
		filter = "all"
	}

	header := styles.Title.Render("Processed Leads") +
		styles.StatValue.Render(fmt.Sprintf("  %d", l.total)) +
		styles.StatLabel.Render(fmt.Sprintf("  Page %d/%d", l.page+1, l.totalPages())) +
		"  " + styles.Muted.Render(fmt.Sprintf("[f] Platform: %s  [[ ]] Prev/Next", filter))

	cols := fmt.Sprintf("%-24s %-10s %-9s %10s %-19s", "Lead", "Platform", "Type", "Deal", "Processed")
	rows := styles.TableHeader.Render(cols) + "\n"

	visible := l.visibleRows()
	offset := 0
	if l.selectedRow >= visible {
		offset = l.selectedRow - visible + 1
	}
	end := min(offset+visible, len(l.leads))

	for i := offset; i < end; i++ {
		lead := l.leads[i]
		deal := "-"
		if lead.DealID != nil {
			deal = fmt.Sprintf("%d", *lead.DealID)
		}
		at := "-"
		if lead.ProcessedAt != nil {
			at = lead.ProcessedAt.Local().Format("2006-01-02 15:04:05")
		}

		row := fmt.Sprintf("%-24s %-10s %-9s %10s %-19s",
			truncate(lead.LeadID, 24), lead.Platform, lead.LeadType, deal, at)
		if i == l.selectedRow {
			row = styles.TableSelected.Render(row)
		}
		rows += row + "\n"
	}

	if len(l.leads) == 0 {
		rows += styles.Muted.Render("No leads")
	}

	footer := ""
	if url := l.SelectedDealURL(); url != "" {
		footer = styles.Muted.Render(url)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, rows, footer)
}
