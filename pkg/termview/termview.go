// Package termview renders formatted chat markup as styled, wrapped terminal
// text. It understands exactly the tags produced by pkg/format.
package termview

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"

	"github.com/papercomputeco/parley/pkg/format"
)

const (
	bullet    = "•"
	preIndent = 2
)

// Option configures Render.
type Option func(*view)

// WithWidth wraps paragraph and list text at width columns. 0 disables
// wrapping.
func WithWidth(width uint) Option {
	return func(v *view) {
		v.width = int(width)
	}
}

// WithStyles replaces the default styles.
func WithStyles(s Styles) Option {
	return func(v *view) {
		v.styles = s
		v.styled = true
	}
}

type view struct {
	width  int
	styles Styles
	styled bool
}

// Render converts markup into terminal text. Blocks are separated by a blank
// line and entities are decoded. Markup that cannot be parsed is returned
// as is.
func Render(m format.Markup, opts ...Option) string {
	v := &view{}
	for _, opt := range opts {
		opt(v)
	}
	if !v.styled {
		v.styles = NewStyles(nil)
	}

	if m == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(m.String()))
	if err != nil {
		return m.String()
	}

	var blocks []string
	var inline strings.Builder
	flush := func() {
		if text := strings.Trim(inline.String(), "\n"); strings.TrimSpace(text) != "" {
			blocks = append(blocks, v.wrap(text))
		}
		inline.Reset()
	}

	doc.Find("body").Contents().Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "p":
			flush()
			if text := strings.Trim(v.inline(s), "\n"); strings.TrimSpace(text) != "" {
				blocks = append(blocks, v.wrap(text))
			}
		case "pre":
			flush()
			blocks = append(blocks, v.pre(s))
		case "ol":
			flush()
			if list := v.list(s, true); list != "" {
				blocks = append(blocks, list)
			}
		case "ul":
			flush()
			if list := v.list(s, false); list != "" {
				blocks = append(blocks, list)
			}
		case "li":
			flush()
			blocks = append(blocks, v.item(bullet, v.inline(s)))
		default:
			inline.WriteString(v.node(s))
		}
	})
	flush()

	return strings.Join(blocks, "\n\n")
}

// inline renders the children of s as a single run of styled text.
func (v *view) inline(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		b.WriteString(v.node(c))
	})
	return b.String()
}

func (v *view) node(s *goquery.Selection) string {
	switch goquery.NodeName(s) {
	case "#text":
		return s.Text()
	case "br":
		return "\n"
	case "strong", "b":
		return styleLines(v.styles.Strong.Render, v.inline(s))
	case "em", "i":
		return styleLines(v.styles.Em.Render, v.inline(s))
	case "code":
		return styleLines(v.styles.Code.Render, s.Text())
	case "pre":
		return "\n" + v.pre(s) + "\n"
	default:
		return v.inline(s)
	}
}

func (v *view) pre(s *goquery.Selection) string {
	text := strings.Trim(preText(s), "\n")
	return indent.String(styleLines(v.styles.Pre.Render, text), preIndent)
}

// preText returns the verbatim text of s. Line breaks may arrive as text
// newlines or as br elements.
func preText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			b.WriteString(c.Text())
		case "br":
			b.WriteString("\n")
		default:
			b.WriteString(preText(c))
		}
	})
	return b.String()
}

func (v *view) list(s *goquery.Selection, ordered bool) string {
	var items []string
	s.ChildrenFiltered("li").Each(func(i int, li *goquery.Selection) {
		marker := bullet
		if ordered {
			marker = strconv.Itoa(i+1) + "."
		}
		items = append(items, v.item(marker, v.inline(li)))
	})
	return strings.Join(items, "\n")
}

// item renders one list entry with continuation lines aligned under the
// text.
func (v *view) item(marker, text string) string {
	text = strings.TrimSpace(text)
	prefixWidth := len([]rune(marker)) + 1
	pad := strings.Repeat(" ", prefixWidth)

	if v.width > prefixWidth {
		text = wordwrap.String(text, v.width-prefixWidth)
	}

	lines := strings.Split(text, "\n")
	for i := range lines {
		if i == 0 {
			lines[i] = v.styles.Marker.Render(marker) + " " + lines[i]
			continue
		}
		lines[i] = pad + lines[i]
	}
	return strings.Join(lines, "\n")
}

func (v *view) wrap(text string) string {
	if v.width <= 0 {
		return text
	}
	return wordwrap.String(text, v.width)
}

// styleLines applies render to each line separately so multi-line runs are
// not padded to a common width.
func styleLines(render func(...string) string, text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = render(line)
		}
	}
	return strings.Join(lines, "\n")
}
