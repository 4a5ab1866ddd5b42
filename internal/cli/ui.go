package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/netlens/pkg/community"
	"github.com/matzehuels/netlens/pkg/notify"
	"github.com/matzehuels/netlens/pkg/stats"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleHeader = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleKey    = lipgloss.NewStyle().Foreground(colorGray).Width(14)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconOn      = "●"
	iconOff     = "○"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a written output file.
func printFile(w io.Writer, path string) {
	fmt.Fprintln(w, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

func printKeyValue(w io.Writer, key, value string) {
	fmt.Fprintln(w, styleKey.Render(key)+" "+StyleValue.Render(value))
}

// printNotifications prints recorded toasts in order.
func printNotifications(w io.Writer, msgs []notify.Message) {
	for _, m := range msgs {
		if m.Level == notify.LevelError {
			printError(w, "%s", m.Text)
		} else {
			printSuccess(w, "%s", m.Text)
		}
	}
}

// =============================================================================
// Network Output
// =============================================================================

// printSummary prints the statistics of one network under a title.
func printSummary(w io.Writer, title string, s stats.Summary) {
	fmt.Fprintln(w, StyleTitle.Render(title))
	printKeyValue(w, "Nodes", strconv.Itoa(s.NumNodes))
	printKeyValue(w, "Links", strconv.Itoa(s.NumEdges))
	printKeyValue(w, "Reciprocal", strconv.Itoa(s.ReciprocalEdges))
	printKeyValue(w, "Reciprocity", s.FormatReciprocity())
	printKeyValue(w, "Density", fmt.Sprintf("%.4f", s.Density))
	printKeyValue(w, "Diameter", strconv.Itoa(s.Diameter))
	printKeyValue(w, "Communities", strconv.Itoa(s.Communities))
}

// communityTable lays out communities with the row at cursor emphasized.
// A negative cursor emphasizes nothing.
func communityTable(comms []community.Community, cursor int) string {
	rows := make([][]string, len(comms))
	for i, c := range comms {
		rows[i] = []string{
			strconv.Itoa(c.ID),
			strconv.Itoa(c.Size),
			fmt.Sprintf("%.4f", c.AvgBetweenness),
			fmt.Sprintf("%.4f", c.AvgPageRank),
		}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Community", "Size", "Avg Betweenness", "Avg PageRank").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return styleHeader
			case row == cursor:
				return lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		}).
		Render()
}

// flagMark renders a filter flag.
func flagMark(on bool) string {
	if on {
		return StyleSuccess.Render(iconOn)
	}
	return StyleDim.Render(iconOff)
}
