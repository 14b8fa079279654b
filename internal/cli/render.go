package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/salekh/genseo-workshop/internal/domain"
	"github.com/salekh/genseo-workshop/internal/mission"
)

var (
	statusStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	dataStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	skipStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	logStyle      = lipgloss.NewStyle().Faint(true)
	completeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
)

// renderEvent formats one mission event as a single terminal line.
func renderEvent(ev mission.Event) string {
	switch ev.Type {
	case mission.EventStatus:
		return statusStyle.Render("==> " + ev.Message)
	case mission.EventData:
		return dataStyle.Render(fmt.Sprintf("  • %s: %s", ev.Key, summarizeData(ev.Data)))
	case mission.EventLog:
		switch {
		case strings.HasPrefix(ev.Message, "[OK]"):
			return okStyle.Render("  " + ev.Message)
		case strings.HasPrefix(ev.Message, "[SKIP]"):
			return skipStyle.Render("  " + ev.Message)
		case strings.HasPrefix(ev.Message, "[FAIL]"):
			return failStyle.Render("  " + ev.Message)
		}
		return logStyle.Render("  " + ev.Message)
	case mission.EventError:
		return failStyle.Render(fmt.Sprintf("  ✗ %s: %s", ev.Source, ev.Message))
	case mission.EventComplete:
		return completeStyle.Render("✓ Mission complete")
	}
	return ev.Message
}

func summarizeData(data any) string {
	switch v := data.(type) {
	case []string:
		return strings.Join(v, ", ")
	case []mission.Candidate:
		return fmt.Sprintf("%d candidates", len(v))
	case domain.SemanticAnalysis:
		if v.Error != "" {
			return "failed: " + v.Error
		}
		return fmt.Sprintf("%d topic clusters, %d content gaps", len(v.TopicClusters), len(v.ContentGaps))
	case string:
		return fmt.Sprintf("%d characters", len([]rune(v)))
	}
	return fmt.Sprintf("%v", data)
}
