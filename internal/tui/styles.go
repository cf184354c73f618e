package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/joeycumines/jrbench/internal/workbench"
	"github.com/muesli/termenv"
	"github.com/rivo/uniseg"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	focusedSectionStyle = sectionStyle.
				BorderForeground(lipgloss.Color("62"))

	labelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	buttonStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Padding(0, 1)
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	statusStyles = map[workbench.Severity]lipgloss.Style{
		workbench.SeverityInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		workbench.SeveritySuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		workbench.SeverityError:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}

	thumbStyle = lipgloss.NewStyle().Background(lipgloss.Color("57"))
	trackStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// applyColorMode forces the color profile for "always" and "never"; "auto"
// keeps lipgloss' terminal detection.
func applyColorMode(mode string) {
	switch strings.ToLower(mode) {
	case "never":
		lipgloss.SetColorProfile(termenv.Ascii)
	case "always":
		lipgloss.SetColorProfile(termenv.ANSI256)
	}
}

// truncate shortens s to at most width terminal cells, ending it with an
// ellipsis when anything was cut. Grapheme clusters are never split.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if uniseg.StringWidth(s) <= width {
		return s
	}

	var (
		b     strings.Builder
		used  int
		state = -1
	)
	for s != "" {
		var (
			cluster string
			w       int
		)
		cluster, s, w, state = uniseg.FirstGraphemeClusterInString(s, state)
		if used+w > width-1 {
			break
		}
		b.WriteString(cluster)
		used += w
	}
	b.WriteString("…")
	return b.String()
}

// scrollbar renders a vertical bar height rows tall. The thumb is sized by
// the visible share of content and placed by offset.
func scrollbar(contentHeight, height, offset int) string {
	if height <= 0 {
		return ""
	}

	thumbTop, thumbHeight := 0, height
	if contentHeight > height {
		maxOffset := contentHeight - height
		offset = max(0, min(offset, maxOffset))

		thumbHeight = max(1, min(height, height*height/contentHeight))
		if maxTop := height - thumbHeight; maxTop > 0 {
			thumbTop = offset * maxTop / maxOffset
		}
	}

	rows := make([]string, height)
	for i := range rows {
		if i >= thumbTop && i < thumbTop+thumbHeight {
			// non-breaking, as lipgloss drops the background of a plain space
			rows[i] = thumbStyle.Render("\u00a0")
		} else {
			rows[i] = trackStyle.Render("│")
		}
	}
	return strings.Join(rows, "\n")
}
