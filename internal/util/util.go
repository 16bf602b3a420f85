package util

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	IsDebug bool

	// Error styling
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4757")).
			Bold(true)

	debugErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF4757")).
			Padding(1, 2)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA726")).
			Bold(true)
)

// SetDebugMode sets the debug mode
func SetDebugMode(debug bool) {
	IsDebug = debug
}

// ErrorHandler returns a stylized error message with beautiful formatting
func ErrorHandler(err error) string {
	if IsDebug {
		// Create a beautiful debug error display with full details
		errorIcon := "🚨"
		debugIcon := "🔍"

		errorMessage := fmt.Sprintf("%s %s %s", errorIcon, "DEBUG ERROR", debugIcon)
		fullError := fmt.Sprintf("%+v", err)

		styledHeader := errorStyle.Render(errorMessage)
		styledError := debugErrorStyle.Render(fullError)

		return fmt.Sprintf("%s\n%s", styledHeader, styledError)
	}

	// Create a clean, styled error message for normal users
	errorIcon := "❌"
	hintIcon := "💡"

	baseError := fmt.Sprintf("%v", err)
	hint := "run the program with --debug to see details"

	styledError := errorStyle.Render(fmt.Sprintf("%s %s", errorIcon, baseError))
	styledHint := warningStyle.Render(fmt.Sprintf("%s %s", hintIcon, hint))

	return fmt.Sprintf("%s\n%s", styledError, styledHint)
}
