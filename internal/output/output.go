// Package output provides styled terminal output helpers (success, error,
// warning, user formatting) using lipgloss.
package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/marcus/roster/internal/models"
)

var (
	// Styles
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("WARNING: " + fmt.Sprintf(format, args...)))
}

// Info prints a subtle informational message
func Info(format string, args ...interface{}) {
	fmt.Println(subtleStyle.Render(fmt.Sprintf(format, args...)))
}

// UserLine renders a single user as one list line.
func UserLine(u models.User) string {
	var b strings.Builder
	b.WriteString(idStyle.Render(fmt.Sprintf("%6d", u.ID)))
	b.WriteString("  ")
	b.WriteString(titleStyle.Render(u.DisplayName()))
	if u.Email != "" {
		b.WriteString("  ")
		b.WriteString(subtleStyle.Render("<" + u.Email + ">"))
	}
	if u.Pending() {
		b.WriteString("  ")
		b.WriteString(pendingStyle.Render("[pending sync]"))
	}
	return b.String()
}

// UserList renders a list of users, one per line, with a trailing summary.
func UserList(users []models.User) string {
	if len(users) == 0 {
		return subtleStyle.Render("(no users)")
	}
	var b strings.Builder
	for _, u := range users {
		b.WriteString(UserLine(u))
		b.WriteString("\n")
	}
	b.WriteString(subtleStyle.Render(fmt.Sprintf("%d user(s)", len(users))))
	return b.String()
}
