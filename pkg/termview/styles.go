package termview

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles holds the lipgloss styles applied to inline and block markup.
type Styles struct {
	Strong lipgloss.Style
	Em     lipgloss.Style
	Code   lipgloss.Style
	Pre    lipgloss.Style
	Marker lipgloss.Style
}

// NewStyles builds the default styles on r. A nil r uses the default
// renderer, which detects the color profile of stdout.
func NewStyles(r *lipgloss.Renderer) Styles {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}

	return Styles{
		Strong: r.NewStyle().Bold(true),
		Em:     r.NewStyle().Italic(true),
		Code:   r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "124", Dark: "216"}),
		Pre:    r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "238", Dark: "250"}),
		Marker: r.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// PlainStyles returns styles that emit no escape sequences.
func PlainStyles() Styles {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.Ascii)
	r.SetHasDarkBackground(true)
	return NewStyles(r)
}
