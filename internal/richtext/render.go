// Package richtext turns structured rich text blocks into HTML.
//
// Markup is built as an html.Node tree and serialized by x/net/html, so text
// content is always escaped. Link targets are restricted to safe schemes and
// oEmbed markup goes through sanitizeEmbed before it is attached.
package richtext

import (
	"bytes"
	"html/template"
	"net/url"
	"slices"
	"strings"

	"github.com/nDmitry/spacetraveling/internal/app"
	"github.com/nDmitry/spacetraveling/internal/entity"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var headings = map[string]atom.Atom{
	entity.BlockHeading1: atom.H1,
	entity.BlockHeading2: atom.H2,
	entity.BlockHeading3: atom.H3,
	entity.BlockHeading4: atom.H4,
	entity.BlockHeading5: atom.H5,
	entity.BlockHeading6: atom.H6,
}

// Render converts blocks to HTML preserving their order. Consecutive list
// items are grouped into one list. Unknown block kinds are kept as plain text.
func Render(blocks []entity.TextBlock) template.HTML {
	var nodes []*html.Node
	var list *html.Node

	for _, b := range blocks {
		switch b.Type {
		case entity.BlockListItem, entity.BlockOListItem:
			kind := atom.Ul
			if b.Type == entity.BlockOListItem {
				kind = atom.Ol
			}

			if list == nil || list.DataAtom != kind {
				list = element(kind)
				nodes = append(nodes, list)
			}

			li := element(atom.Li)
			appendRichText(li, b)
			list.AppendChild(li)

			continue
		}

		list = nil

		if n := renderBlock(b); n != nil {
			nodes = append(nodes, n)
		}
	}

	var buf bytes.Buffer

	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			app.Logger().Error("Could not render rich text", "error", err)
			return ""
		}
	}

	// nolint: gosec
	return template.HTML(buf.String())
}

func renderBlock(b entity.TextBlock) *html.Node {
	if a, ok := headings[b.Type]; ok {
		n := element(a)
		appendRichText(n, b)
		return n
	}

	switch b.Type {
	case entity.BlockParagraph:
		n := element(atom.P)
		appendRichText(n, b)
		return n
	case entity.BlockPreformatted:
		n := element(atom.Pre)
		appendRichText(n, b)
		return n
	case entity.BlockImage:
		if !isSafeURL(b.URL, false) {
			return nil
		}

		img := element(atom.Img, html.Attribute{Key: "src", Val: b.URL}, html.Attribute{Key: "alt", Val: b.Alt})
		p := element(atom.P, html.Attribute{Key: "class", Val: "block-img"})
		p.AppendChild(img)

		return p
	case entity.BlockEmbed:
		div := element(atom.Div, html.Attribute{Key: "class", Val: "block-embed"})

		if isSafeURL(b.URL, false) {
			div.Attr = append(div.Attr, html.Attribute{Key: "data-oembed", Val: b.URL})
		}

		for _, n := range sanitizeEmbed(b.Embed) {
			div.AppendChild(n)
		}

		if div.FirstChild == nil {
			return nil
		}

		return div
	default:
		if b.Text == "" {
			return nil
		}

		n := element(atom.P)
		appendText(n, []rune(b.Text))
		return n
	}
}

func appendRichText(parent *html.Node, b entity.TextBlock) {
	text := []rune(b.Text)
	appendInline(parent, text, 0, len(text), normalizeSpans(b.Spans, len(text)))
}

// appendInline renders text[start:end] with spans sorted by start, longest first.
// Spans crossing the end of an enclosing span are clipped to it; spans crossing
// the end of a sibling continue after it.
func appendInline(parent *html.Node, text []rune, start, end int, spans []entity.Span) {
	pos := start

	for len(spans) > 0 {
		s := spans[0]

		j := 1
		for j < len(spans) && spans[j].Start < s.End {
			j++
		}

		appendText(parent, text[pos:s.Start])

		nested := clipSpans(spans[1:j], s.Start, s.End)

		if el := spanElement(s); el != nil {
			appendInline(el, text, s.Start, s.End, nested)
			parent.AppendChild(el)
		} else {
			appendInline(parent, text, s.Start, s.End, nested)
		}

		pos = s.End

		var rest []entity.Span

		for _, o := range spans[1:j] {
			if o.End > s.End {
				o.Start = s.End
				rest = append(rest, o)
			}
		}

		spans = append(rest, spans[j:]...)
	}

	appendText(parent, text[pos:end])
}

func spanElement(s entity.Span) *html.Node {
	switch s.Type {
	case entity.SpanStrong:
		return element(atom.Strong)
	case entity.SpanEm:
		return element(atom.Em)
	case entity.SpanLabel:
		return element(atom.Span, html.Attribute{Key: "class", Val: s.Data})
	case entity.SpanHyperlink:
		if !isSafeURL(s.Data, true) {
			return nil
		}

		a := element(atom.A, html.Attribute{Key: "href", Val: s.Data})

		if u, err := url.Parse(s.Data); err == nil && u.IsAbs() && u.Scheme != "mailto" {
			a.Attr = append(a.Attr, html.Attribute{Key: "rel", Val: "noopener noreferrer"})
		}

		return a
	default:
		return nil
	}
}

// appendText adds text, turning line breaks into <br> elements.
func appendText(parent *html.Node, text []rune) {
	if len(text) == 0 {
		return
	}

	for i, line := range strings.Split(string(text), "\n") {
		if i > 0 {
			parent.AppendChild(element(atom.Br))
		}

		if line != "" {
			parent.AppendChild(&html.Node{Type: html.TextNode, Data: line})
		}
	}
}

func normalizeSpans(spans []entity.Span, length int) []entity.Span {
	out := make([]entity.Span, 0, len(spans))

	for _, s := range spans {
		s.Start = max(s.Start, 0)
		s.End = min(s.End, length)

		if s.Start < s.End {
			out = append(out, s)
		}
	}

	slices.SortStableFunc(out, func(a, b entity.Span) int {
		if a.Start != b.Start {
			return a.Start - b.Start
		}

		return b.End - a.End
	})

	return out
}

func clipSpans(spans []entity.Span, start, end int) []entity.Span {
	out := make([]entity.Span, 0, len(spans))

	for _, s := range spans {
		s.Start = max(s.Start, start)
		s.End = min(s.End, end)

		if s.Start < s.End {
			out = append(out, s)
		}
	}

	return out
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}

func isSafeURL(raw string, allowRelative bool) bool {
	if raw == "" {
		return false
	}

	u, err := url.Parse(raw)

	if err != nil {
		return false
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.Host != ""
	case "mailto":
		return allowRelative
	case "":
		return allowRelative && u.Host == "" && !strings.HasPrefix(raw, "//")
	default:
		return false
	}
}

// WordCount counts whitespace separated words in the text of blocks.
func WordCount(blocks []entity.TextBlock) int {
	words := 0

	for _, b := range blocks {
		words += len(strings.Fields(b.Text))
	}

	return words
}
