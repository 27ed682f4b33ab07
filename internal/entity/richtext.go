package entity

// Rich text block kinds produced by the content service.
const (
	BlockParagraph    = "paragraph"
	BlockHeading1     = "heading1"
	BlockHeading2     = "heading2"
	BlockHeading3     = "heading3"
	BlockHeading4     = "heading4"
	BlockHeading5     = "heading5"
	BlockHeading6     = "heading6"
	BlockPreformatted = "preformatted"
	BlockListItem     = "list-item"
	BlockOListItem    = "o-list-item"
	BlockImage        = "image"
	BlockEmbed        = "embed"
)

// Inline span kinds.
const (
	SpanStrong    = "strong"
	SpanEm        = "em"
	SpanHyperlink = "hyperlink"
	SpanLabel     = "label"
)

// TextBlock is a single rich text segment of a content block body.
type TextBlock struct {
	Type  string
	Text  string
	Spans []Span

	// Set for image blocks.
	URL string
	Alt string

	// Raw oEmbed HTML, set for embed blocks.
	Embed string
}

// Span marks inline structure over Text. Start and End are offsets in runes.
type Span struct {
	Start int
	End   int
	Type  string
	// Target URL for hyperlinks, class name for labels.
	Data string
}
