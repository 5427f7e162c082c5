package roadmap

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ptBR = message.NewPrinter(language.BrazilianPortuguese)

// FormatCount formats n with Brazilian digit grouping, e.g. 2847 -> "2.847".
func FormatCount(n int) string {
	return ptBR.Sprintf("%d", n)
}
