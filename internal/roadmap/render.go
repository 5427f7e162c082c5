package roadmap

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// styles are the lipgloss styles derived from a theme.
type styles struct {
	tagline  lipgloss.Style
	brand    lipgloss.Style
	headline lipgloss.Style
	muted    lipgloss.Style
	counter  lipgloss.Style
	card     lipgloss.Style
	title    lipgloss.Style
	cta      lipgloss.Style
	theme    Theme
}

func newStyles(t Theme) styles {
	return styles{
		tagline:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Primary)).Bold(true),
		brand:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)).Bold(true),
		headline: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)),
		muted:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		counter:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Primary)).Bold(true),
		card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Muted)).
			Padding(0, 2).
			Width(76),
		title: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)).Bold(true),
		cta: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color(t.Accent)).
			Padding(0, 2).
			Width(76).
			Align(lipgloss.Center),
		theme: t,
	}
}

func (s styles) badge(st Status) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(s.theme.StatusColor(st))).Bold(true).Render("● " + st.Badge())
}

func (s styles) bullet(st Status) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(s.theme.StatusColor(st))).Render("•")
}

// Render writes the landing page to w: header, counter, phases and call to
// action, coloured with the theme.
func Render(w io.Writer, t Theme, count int) error {
	s := newStyles(t)
	var b strings.Builder

	b.WriteString(s.tagline.Render(Tagline) + "\n\n")
	b.WriteString(s.brand.Render(Brand) + "\n")
	b.WriteString(s.headline.Render(Headline) + "\n")
	b.WriteString(s.muted.Render(Lead) + "\n\n")
	b.WriteString(s.counter.Render(FormatCount(count)) + " " + s.muted.Render(CounterLabel) + "\n\n")

	for _, p := range Phases() {
		var card strings.Builder
		fmt.Fprintf(&card, "%s  %s\n", s.muted.Render(fmt.Sprintf("Fase %d", p.Number)), s.badge(p.Status))
		card.WriteString(s.title.Render(p.Title) + "\n")
		card.WriteString(p.Subtitle + "\n")
		card.WriteString(s.muted.Render(p.Description) + "\n")
		for _, it := range p.Items {
			fmt.Fprintf(&card, "\n%s %s", s.bullet(it.Status), it.Text)
		}
		b.WriteString(s.card.Render(card.String()) + "\n")
	}

	cta := fmt.Sprintf("%s\n%s\n\n%s\n%s pets já contribuíram para esta causa",
		s.title.Render(CTATitle), CTABody, s.counter.Render("→ "+CTAButton), FormatCount(count))
	b.WriteString("\n" + s.cta.Render(cta) + "\n\n")
	b.WriteString(s.muted.Render(FooterPurpose) + "\n")
	b.WriteString(s.muted.Render(FooterCopy) + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}
