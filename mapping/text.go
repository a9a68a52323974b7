package mapping

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"portal_leads/models"
)

var linkPattern = regexp.MustCompile(`Link:\s(https?://\S+)`)

// SplitMessageLink separates a trailing "Link: <url>" fragment from a whatsapp
// message. link is nil when the text carries no URL.
func SplitMessageLink(text string) (message string, link *string) {
	if m := linkPattern.FindStringSubmatch(text); m != nil {
		url := m[1]
		link = &url
	}
	if i := strings.Index(text, "Link:"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text), link
}

// DurationSeconds converts "H:MM:SS" (or "M:SS") to whole seconds.
func DurationSeconds(d string) (int, error) {
	parts := strings.Split(strings.TrimSpace(d), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("duration %q: want H:MM:SS", d)
	}

	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("duration %q: bad component %q", d, p)
		}
		total = total*60 + n
	}
	return total, nil
}

// PropertyLink is the public listing URL for a property id, "" without an id.
// Both platforms share the bayut URL scheme.
func PropertyLink(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	return fmt.Sprintf("https://www.bayut.com/property/details-%s.html", id)
}

// Title builds "{Platform} - {Channel} - {ref}".
func Title(p models.Platform, t models.LeadType, ref string) string {
	return fmt.Sprintf("%s - %s - %s", p.Title(), t.Channel(), ref)
}

func callComments(l *models.Lead) string {
	lines := []string{
		"Receiver Number: " + l.ReceiverNumber.String(),
		"Call Status: " + l.CallStatus.String(),
		"Call Duration: " + l.CallTotalDuration.String(),
		"Call Connected Duration: " + l.CallConnectedDuration.String(),
		"Call Recording URL: " + l.CallRecordingURL,
	}
	return strings.Join(lines, "\n")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
