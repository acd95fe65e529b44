package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/unhoist/unhoist/pkg/resolve"
)

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleVersion = lipgloss.NewStyle().Foreground(colorGray)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
)

func printSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", styleIconSuccess.Render(iconSuccess), fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", styleIconError.Render(iconError), fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", styleIconWarning.Render(iconWarning), fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", styleIconInfo.Render(iconInfo), fmt.Sprintf(format, args...))
}

func printDetail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "  %s\n", styleDim.Render(fmt.Sprintf(format, args...)))
}

// renderTree writes a resolved forest with box-drawing guides, package names
// highlighted and versions dimmed.
func renderTree(w io.Writer, roots []*resolve.Node) {
	for _, root := range roots {
		fmt.Fprintln(w, styleTitle.Render(root.ID.Name)+styleVersion.Render("@"+root.ID.Version))
		renderSubtree(w, root.Children, "")
	}
}

func renderSubtree(w io.Writer, nodes []*resolve.Node, prefix string) {
	for i, n := range nodes {
		guide, childPrefix := "├─ ", prefix+"│  "
		if i == len(nodes)-1 {
			guide, childPrefix = "└─ ", prefix+"   "
		}
		label := styleValue.Render(n.ID.Name)
		if n.ID.Version != "" {
			label += styleVersion.Render("@" + n.ID.Version)
		}
		fmt.Fprintln(w, styleDim.Render(prefix+guide)+label)
		renderSubtree(w, n.Children, childPrefix)
	}
}
