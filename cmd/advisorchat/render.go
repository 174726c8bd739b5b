package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/Desarso/advisorchat/models"
	"github.com/Desarso/advisorchat/sessions"
)

var (
	userLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true)

	systemLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214")).
				Bold(true)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	contentStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	actionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			PaddingLeft(2)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

var toastStyles = map[models.NotificationType]lipgloss.Style{
	models.NotificationSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	models.NotificationError:   errorStyle,
	models.NotificationWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
	models.NotificationInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
}

func renderMessage(m models.Message) string {
	var label string
	switch m.Role {
	case models.RoleUser:
		label = userLabelStyle.Render("you")
	case models.RoleSystem:
		label = systemLabelStyle.Render("system")
	default:
		label = assistantLabelStyle.Render("assistant")
	}

	var b strings.Builder
	b.WriteString(label)
	if !m.Timestamp.IsZero() {
		b.WriteString(" " + timestampStyle.Render(m.Timestamp.Local().Format("15:04")))
	}
	b.WriteString("\n")

	body := contentStyle.Render(m.Content)
	if m.Metadata != nil && m.Metadata.Context == sessions.ErrorContext {
		body = contentStyle.Render(errorStyle.Render(m.Content))
	}
	b.WriteString(body)

	if md := m.Metadata; md != nil {
		if len(md.ToolCalls) > 0 {
			names := make([]string, 0, len(md.ToolCalls))
			for _, call := range md.ToolCalls {
				if name := call.Name(); name != "" {
					names = append(names, name)
				}
			}
			if len(names) > 0 {
				b.WriteString("\n" + contentStyle.Render(metaStyle.Render("tools: "+strings.Join(names, ", "))))
			}
		}
		if md.ActionRequired {
			b.WriteString("\n" + actionStyle.Render("action required"))
		}
	}
	return b.String()
}

// printer serialises terminal output; session observers and pushes arrive
// on other goroutines.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *printer) println(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, s)
}

// Notify renders toasts inline.
func (p *printer) Notify(kind models.NotificationType, message string) {
	style, ok := toastStyles[kind]
	if !ok {
		style = toastStyles[models.NotificationInfo]
	}
	p.println(style.Render("["+string(kind)+"]") + " " + message)
}
