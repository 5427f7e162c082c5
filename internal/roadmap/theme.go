package roadmap

import (
	"sort"
	"strings"
)

// Theme is a colour palette. Colours are hex strings usable both as CSS
// values and as lipgloss colours.
type Theme struct {
	Name       string
	Background string
	Surface    string
	Text       string
	Muted      string
	Primary    string
	Accent     string
	Completed  string
	InProgress string
	Upcoming   string
}

// DefaultTheme is used for unknown theme names.
const DefaultTheme = "classic"

var themes = map[string]Theme{
	"classic": {
		Name: "classic", Background: "#f8fafc", Surface: "#ffffff", Text: "#111827", Muted: "#4b5563",
		Primary: "#2563eb", Accent: "#7c3aed", Completed: "#16a34a", InProgress: "#2563eb", Upcoming: "#9ca3af",
	},
	"midnight": {
		Name: "midnight", Background: "#0f172a", Surface: "#1e293b", Text: "#f1f5f9", Muted: "#94a3b8",
		Primary: "#38bdf8", Accent: "#a78bfa", Completed: "#4ade80", InProgress: "#38bdf8", Upcoming: "#64748b",
	},
	"sunset": {
		Name: "sunset", Background: "#fff7ed", Surface: "#ffffff", Text: "#431407", Muted: "#9a3412",
		Primary: "#ea580c", Accent: "#db2777", Completed: "#65a30d", InProgress: "#ea580c", Upcoming: "#a8a29e",
	},
	"forest": {
		Name: "forest", Background: "#f0fdf4", Surface: "#ffffff", Text: "#052e16", Muted: "#166534",
		Primary: "#15803d", Accent: "#0d9488", Completed: "#15803d", InProgress: "#ca8a04", Upcoming: "#a3a3a3",
	},
}

// LookupTheme returns the named theme, falling back to DefaultTheme.
func LookupTheme(name string) Theme {
	if t, ok := themes[strings.ToLower(strings.TrimSpace(name))]; ok {
		return t
	}
	return themes[DefaultTheme]
}

// ThemeNames lists the available themes in sorted order.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for n := range themes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// StatusColor returns the palette colour for a status.
func (t Theme) StatusColor(s Status) string {
	switch s {
	case StatusCompleted:
		return t.Completed
	case StatusInProgress:
		return t.InProgress
	}
	return t.Upcoming
}
