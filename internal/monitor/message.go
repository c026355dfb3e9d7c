package monitor

import (
	"fmt"
	"strings"
)

// FormatAlert builds the Markdown chat message for an analysis.
func FormatAlert(a *Analysis) string {
	name := a.Profile.Text("name")
	if name == "" {
		name = "N/A"
	}

	var b strings.Builder
	b.WriteString("🚨 *CARDIOWATCH ALERT* 🚨\n\n")
	fmt.Fprintf(&b, "*Patient:* %s\n", escapeMarkdown(name))
	if a.Latest != nil {
		fmt.Fprintf(&b, "*BPM:* %d\n", a.Latest.BPM)
	}
	fmt.Fprintf(&b, "*Status:* %s\n", statusLine(a.Status))
	if a.Latest != nil {
		fmt.Fprintf(&b, "*Time:* %s", a.Latest.Time.Format("15:04:05"))
	}
	return b.String()
}

func statusLine(s Status) string {
	switch s {
	case StatusAnomaly:
		return "Pattern anomaly detected!"
	case StatusTachycardia:
		return "Tachycardia"
	case StatusBradycardia:
		return "Bradycardia"
	default:
		return s.String()
	}
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
