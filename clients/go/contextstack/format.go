package contextstack

import (
	"fmt"
	"strings"

	"github.com/eldtechnologies/contextstack/internal/models"
)

// FormatContext renders a ContextResponse as plain text for terminals and
// chat integrations.
func FormatContext(resp *models.ContextResponse) string {
	var b strings.Builder

	source := "fresh"
	if resp.FromCache {
		source = "cached"
	}
	fmt.Fprintf(&b, "Context (%s, %dms)\n", source, resp.Meta.LatencyMs)

	b.WriteString("\nRecent messages:\n")
	if len(resp.Messages) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, m := range resp.Messages {
		author := m.AuthorName
		if author == "" {
			author = "unknown"
		}
		fmt.Fprintf(&b, "  [%s] %s: %s\n", m.CreatedAt.Format("2006-01-02 15:04"), author, m.Text)
	}

	b.WriteString("\nAction items:\n")
	if len(resp.Actions) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, a := range resp.Actions {
		line := "  - " + a.Text
		if a.Owner != "" {
			line += " (@" + a.Owner + ")"
		}
		if a.Deadline != "" {
			line += " due " + a.Deadline
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\nRelated docs:\n")
	if len(resp.RelevantDocs) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, d := range resp.RelevantDocs {
		fmt.Fprintf(&b, "  - %s (%.0f%%)", d.Title, d.Score*100)
		if d.URL != "" {
			b.WriteString(" " + d.URL)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nSuggested reply: %s\n", resp.SuggestedReply)
	return b.String()
}
