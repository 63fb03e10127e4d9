package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"modpack-launcher/model"
)

// Brand colors of each catalog, as 0xRRGGBB.
var sourceColors = map[model.Source]int{
	model.SourceCurseForge: 0xf16436,
	model.SourceModrinth:   0x1bd96a,
}

var sourceLabels = map[model.Source]string{
	model.SourceCurseForge: "CurseForge",
	model.SourceModrinth:   "Modrinth",
}

// Colorize applies the given color to the text using lipgloss.
// color is an 0xRRGGBB integer.
func Colorize(text string, color int) string {
	hexColor := fmt.Sprintf("#%06x", color)
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(hexColor))
	return style.Render(text)
}

// SourceColor returns the brand color of a catalog, or light grey.
func SourceColor(s model.Source) int {
	if c, ok := sourceColors[s]; ok {
		return c
	}
	return 0xbbbbbb
}

// SourceLabel is the display name of a catalog.
func SourceLabel(s model.Source) string {
	if l, ok := sourceLabels[s]; ok {
		return l
	}
	return string(s)
}

// ColorizeSource renders the catalog name in its brand color.
func ColorizeSource(s model.Source) string {
	return Colorize(SourceLabel(s), SourceColor(s))
}
