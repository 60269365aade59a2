package service

import "strings"

// ThemeToken marks where the theme clause goes in a prompt template.
const ThemeToken = "{theme}"

const DefaultPromptTemplate = "convert this image into a coloring book style image with clear outlines and no shading.\n" +
	"Make sure the outlines are bold and distinct, suitable for coloring." + ThemeToken

// DefaultTheme leaves the prompt unchanged.
const DefaultTheme = "default"

// BuildPrompt fills template with the theme clause. Templates without the
// token get the clause appended. The theme itself is passed through as is.
func BuildPrompt(template, theme string) string {
	if template == "" {
		template = DefaultPromptTemplate
	}
	clause := themeClause(theme)
	if strings.Contains(template, ThemeToken) {
		return strings.ReplaceAll(template, ThemeToken, clause)
	}
	return template + clause
}

func themeClause(theme string) string {
	theme = strings.TrimSpace(theme)
	if theme == "" || strings.EqualFold(theme, DefaultTheme) {
		return ""
	}
	return "\nTheme: " + theme + "."
}
