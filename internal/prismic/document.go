package prismic

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/nDmitry/spacetraveling/internal/entity"
)

// Prismic renders dates with a numeric zone without a colon, e.g. +0000.
const dateLayout = "2006-01-02T15:04:05-0700"

type apiRoot struct {
	Refs []struct {
		ID          string `json:"id"`
		Ref         string `json:"ref"`
		IsMasterRef bool   `json:"isMasterRef"`
	} `json:"refs"`
}

type searchResponse struct {
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
	NextPage   *string    `json:"next_page"`
	Results    []document `json:"results"`
}

type document struct {
	ID                   string  `json:"id"`
	UID                  string  `json:"uid"`
	Type                 string  `json:"type"`
	FirstPublicationDate *string `json:"first_publication_date"`
	Data                 struct {
		Title    json.RawMessage `json:"title"`
		Subtitle json.RawMessage `json:"subtitle"`
		Author   json.RawMessage `json:"author"`
		Banner   *struct {
			URL string `json:"url"`
			Alt string `json:"alt"`
		} `json:"banner"`
		Content []struct {
			Heading json.RawMessage `json:"heading"`
			Body    []richTextBlock `json:"body"`
		} `json:"content"`
	} `json:"data"`
}

type richTextBlock struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Spans []struct {
		Start int    `json:"start"`
		End   int    `json:"end"`
		Type  string `json:"type"`
		Data  *struct {
			LinkType string `json:"link_type"`
			URL      string `json:"url"`
			UID      string `json:"uid"`
			Label    string `json:"label"`
		} `json:"data"`
	} `json:"spans"`
	URL    string `json:"url"`
	Alt    string `json:"alt"`
	OEmbed *struct {
		HTML     string `json:"html"`
		EmbedURL string `json:"embed_url"`
	} `json:"oembed"`
}

func (d *document) toPost() (*entity.Post, error) {
	published, err := parseDate(d.FirstPublicationDate)

	if err != nil {
		return nil, fmt.Errorf("document %s: %w", d.ID, err)
	}

	post := &entity.Post{
		UID:             d.UID,
		PublicationDate: published,
		Title:           textField(d.Data.Title),
		Subtitle:        textField(d.Data.Subtitle),
		Author:          textField(d.Data.Author),
	}

	if d.Data.Banner != nil && d.Data.Banner.URL != "" {
		post.Banner = &entity.Image{URL: d.Data.Banner.URL, Alt: d.Data.Banner.Alt}
	}

	for _, c := range d.Data.Content {
		block := entity.ContentBlock{Heading: textField(c.Heading)}

		for _, b := range c.Body {
			block.Body = append(block.Body, b.toTextBlock())
		}

		post.Content = append(post.Content, block)
	}

	return post, nil
}

func (d *document) toSummary() (entity.PostSummary, error) {
	post, err := d.toPost()

	if err != nil {
		return entity.PostSummary{}, err
	}

	return post.Summary(), nil
}

func (b *richTextBlock) toTextBlock() entity.TextBlock {
	block := entity.TextBlock{
		Type: b.Type,
		Text: b.Text,
		URL:  b.URL,
		Alt:  b.Alt,
	}

	if b.OEmbed != nil {
		block.Embed = b.OEmbed.HTML

		if block.URL == "" {
			block.URL = b.OEmbed.EmbedURL
		}
	}

	offsets := runeOffsets(b.Text)

	for _, s := range b.Spans {
		span := entity.Span{
			Start: offsets.at(s.Start),
			End:   offsets.at(s.End),
			Type:  s.Type,
		}

		if s.Data != nil {
			switch {
			case s.Type == entity.SpanLabel:
				span.Data = s.Data.Label
			case s.Data.LinkType == "Document" && s.Data.UID != "":
				span.Data = "/post/" + s.Data.UID
			default:
				span.Data = s.Data.URL
			}
		}

		block.Spans = append(block.Spans, span)
	}

	return block
}

// utf16ToRune maps span offsets, which count UTF-16 code units, to rune offsets.
type utf16ToRune []int

func runeOffsets(text string) utf16ToRune {
	offsets := make(utf16ToRune, 0, len(text)+1)

	for i, r := range []rune(text) {
		offsets = append(offsets, i)

		if utf16.RuneLen(r) == 2 {
			offsets = append(offsets, i)
		}
	}

	return append(offsets, len([]rune(text)))
}

func (o utf16ToRune) at(unit int) int {
	switch {
	case unit < 0:
		return 0
	case unit >= len(o):
		return o[len(o)-1]
	default:
		return o[unit]
	}
}

func parseDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}

	t, err := time.Parse(dateLayout, *value)

	if err != nil {
		t, err = time.Parse(time.RFC3339, *value)
	}

	if err != nil {
		return nil, fmt.Errorf("could not parse publication date %q: %w", *value, err)
	}

	return &t, nil
}

// textField reads a field that may be either plain text or a rich text array.
func textField(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string

	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var blocks []struct {
		Text string `json:"text"`
	}

	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}

	parts := make([]string, 0, len(blocks))

	for _, b := range blocks {
		parts = append(parts, b.Text)
	}

	return strings.Join(parts, " ")
}
