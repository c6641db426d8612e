// Package format converts the raw text of a chat reply into render-safe
// markup. Format is pure: it holds no state and may be called on every
// growing prefix of a reply.
package format

import (
	"html/template"
	"regexp"
	"strings"

	"github.com/dlclark/regexp2"
)

// Markup is escaped markup built only from a fixed set of tags:
// p, br, strong, em, pre, code, ol, ul and li.
type Markup string

// String returns the markup text.
func (m Markup) String() string {
	return string(m)
}

// HTML returns the markup for embedding in an html/template without
// further escaping.
func (m Markup) HTML() template.HTML {
	return template.HTML(m) //nolint:gosec // built from escaped text and a fixed tag set
}

var (
	// bareAmp matches an & that does not already begin a character reference.
	bareAmp = regexp2.MustCompile(`&(?!(?:amp|lt|gt|quot|apos|#\d+|#[xX][0-9a-fA-F]+);)`, regexp2.None)

	angleReplacer = strings.NewReplacer("<", "&lt;", ">", "&gt;")

	strongRe     = regexp.MustCompile(`(?s)\*\*(.*?)\*\*`)
	emRe         = regexp.MustCompile(`(?s)\*(.*?)\*`)
	codeBlockRe  = regexp.MustCompile("(?s)```(.*?)```")
	inlineCodeRe = regexp.MustCompile("`(.*?)`")

	// Item text stops before a carriage return, which stays after </li>.
	orderedItemRe   = regexp.MustCompile(`(?m)^\d+\.\s([^\r\n]+)(\r?)$`)
	unorderedItemRe = regexp.MustCompile(`(?m)^[-•]\s([^\r\n]+)(\r?)$`)
	itemLineRe      = regexp.MustCompile(`^<li>.*</li>\r?$`)
)

// Format escapes text and applies, in order: emphasis, code spans, ordered
// lists, unordered lists and paragraphs. Empty text yields empty markup.
func Format(text string) Markup {
	if text == "" {
		return ""
	}

	out := Escape(text)

	out = strongRe.ReplaceAllString(out, "<strong>${1}</strong>")
	out = emRe.ReplaceAllString(out, "<em>${1}</em>")

	out = codeBlockRe.ReplaceAllString(out, "<pre><code>${1}</code></pre>")
	out = inlineCodeRe.ReplaceAllString(out, "<code>${1}</code>")

	out = orderedItemRe.ReplaceAllString(out, "<li>${1}</li>${2}")
	wrappedOrdered := false
	if strings.Contains(out, "<li>") {
		out = wrapFirstRun(out, "ol")
		wrappedOrdered = true
	}

	out = unorderedItemRe.ReplaceAllString(out, "<li>${1}</li>${2}")
	if !wrappedOrdered && strings.Contains(out, "<li>") {
		out = wrapFirstRun(out, "ul")
	}

	return Markup(paragraphs(out))
}

// Escape replaces &, < and > with entities. An & that already starts a
// character reference is kept, so escaping escaped text is a no-op.
func Escape(text string) string {
	out, err := bareAmp.Replace(text, "&amp;", -1, -1)
	if err != nil {
		// Only a match timeout fails, and none is set.
		out = strings.ReplaceAll(text, "&", "&amp;")
	}
	return angleReplacer.Replace(out)
}

// wrapFirstRun wraps the first run of consecutive list item lines in a
// container tag. Later runs are left bare.
func wrapFirstRun(text, tag string) string {
	lines := strings.Split(text, "\n")

	start := -1
	end := -1
	for i, line := range lines {
		if itemLineRe.MatchString(line) {
			if start < 0 {
				start = i
			}
			end = i
			continue
		}
		if start >= 0 {
			break
		}
	}
	if start < 0 {
		return text
	}

	lines[start] = "<" + tag + ">" + lines[start]
	last, cr := strings.CutSuffix(lines[end], "\r")
	lines[end] = last + "</" + tag + ">"
	if cr {
		lines[end] += "\r"
	}

	return strings.Join(lines, "\n")
}

func paragraphs(text string) string {
	var segments []string
	for seg := range strings.SplitSeq(text, "\n\n") {
		if strings.TrimSpace(seg) != "" {
			segments = append(segments, seg)
		}
	}

	if len(segments) <= 1 {
		return paragraph(text)
	}

	var b strings.Builder
	for _, seg := range segments {
		if isBlock(seg) {
			b.WriteString(seg)
			continue
		}
		b.WriteString(paragraph(seg))
	}
	return b.String()
}

func isBlock(seg string) bool {
	return strings.Contains(seg, "<ol>") ||
		strings.Contains(seg, "<ul>") ||
		strings.Contains(seg, "<pre>")
}

func paragraph(seg string) string {
	return "<p>" + strings.ReplaceAll(seg, "\n", "<br>") + "</p>"
}
