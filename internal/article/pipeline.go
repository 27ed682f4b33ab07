// Package article loads a single post and prepares it for display.
package article

import (
	"context"
	"fmt"
	"html/template"

	"github.com/nDmitry/spacetraveling/internal/entity"
	"github.com/nDmitry/spacetraveling/internal/locale"
	"github.com/nDmitry/spacetraveling/internal/richtext"
)

// DefaultWordsPerMinute is the reading speed used when none is configured.
const DefaultWordsPerMinute = 200

// PostGetter fetches a full post by its UID.
type PostGetter interface {
	GetPost(ctx context.Context, uid string) (*entity.Post, error)
}

// Section is one rendered content block. Index is its position in the post
// and is the key used in markup, since headings may repeat.
type Section struct {
	Index   int
	Heading string
	Body    template.HTML
}

// View is a post ready to be rendered by the article template.
type View struct {
	UID            string
	Title          string
	Subtitle       string
	Author         string
	Date           string
	Banner         *entity.Image
	ReadingMinutes int
	Sections       []Section
}

// Pipeline loads posts and renders them into article views.
type Pipeline struct {
	posts          PostGetter
	wordsPerMinute int
}

// NewPipeline creates a pipeline. A non-positive wordsPerMinute falls back
// to DefaultWordsPerMinute.
func NewPipeline(posts PostGetter, wordsPerMinute int) *Pipeline {
	if wordsPerMinute < 1 {
		wordsPerMinute = DefaultWordsPerMinute
	}

	return &Pipeline{
		posts:          posts,
		wordsPerMinute: wordsPerMinute,
	}
}

// Load fetches a post. Posts without a publication date yield entity.ErrPending.
func (p *Pipeline) Load(ctx context.Context, uid string) (*entity.Post, error) {
	post, err := p.posts.GetPost(ctx, uid)

	if err != nil {
		return nil, err
	}

	if post.PublicationDate == nil {
		return nil, fmt.Errorf("post %s: %w", uid, entity.ErrPending)
	}

	return post, nil
}

// Render converts the content blocks in order and computes the display metadata.
func (p *Pipeline) Render(post *entity.Post, l *locale.Locale) *View {
	view := &View{
		UID:            post.UID,
		Title:          post.Title,
		Subtitle:       post.Subtitle,
		Author:         post.Author,
		Date:           l.FormatDate(post.PublicationDate),
		Banner:         post.Banner,
		ReadingMinutes: ReadingTime(post, p.wordsPerMinute),
		Sections:       make([]Section, 0, len(post.Content)),
	}

	for i, block := range post.Content {
		view.Sections = append(view.Sections, Section{
			Index:   i,
			Heading: block.Heading,
			Body:    richtext.Render(block.Body),
		})
	}

	return view
}

// ReadingTime estimates minutes needed to read the body text of a post,
// rounded up and never less than one.
func ReadingTime(post *entity.Post, wordsPerMinute int) int {
	if wordsPerMinute < 1 {
		wordsPerMinute = DefaultWordsPerMinute
	}

	words := 0

	for _, block := range post.Content {
		words += richtext.WordCount(block.Body)
	}

	minutes := (words + wordsPerMinute - 1) / wordsPerMinute

	return max(minutes, 1)
}
