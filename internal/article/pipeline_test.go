package article_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nDmitry/spacetraveling/internal/article"
	"github.com/nDmitry/spacetraveling/internal/entity"
	"github.com/nDmitry/spacetraveling/internal/locale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockPostGetter is a mock implementation of the PostGetter interface
type MockPostGetter struct {
	GetPostFunc func(ctx context.Context, uid string) (*entity.Post, error)
}

func (m *MockPostGetter) GetPost(ctx context.Context, uid string) (*entity.Post, error) {
	return m.GetPostFunc(ctx, uid)
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("palavra ", n))
}

func publishedPost() *entity.Post {
	date := time.Date(2021, 3, 25, 0, 0, 0, 0, time.UTC)

	return &entity.Post{
		UID:             "como-utilizar-hooks",
		PublicationDate: &date,
		Title:           "Como utilizar Hooks",
		Author:          "Joseph Oliveira",
		Banner:          &entity.Image{URL: "https://images.prismic.io/banner.png", Alt: "banner"},
		Content: []entity.ContentBlock{
			{Heading: "A", Body: []entity.TextBlock{{Type: entity.BlockParagraph, Text: "first section"}}},
			{Heading: "B", Body: []entity.TextBlock{{Type: entity.BlockParagraph, Text: "second section"}}},
			{Heading: "A", Body: []entity.TextBlock{{Type: entity.BlockParagraph, Text: "repeated heading"}}},
		},
	}
}

func TestPipeline_Load(t *testing.T) {
	tests := []struct {
		name        string
		getPost     func(ctx context.Context, uid string) (*entity.Post, error)
		expectedErr error
	}{
		{
			name: "Published post",
			getPost: func(_ context.Context, uid string) (*entity.Post, error) {
				assert.Equal(t, "como-utilizar-hooks", uid)
				return publishedPost(), nil
			},
		},
		{
			name: "Post without publication date is pending",
			getPost: func(context.Context, string) (*entity.Post, error) {
				post := publishedPost()
				post.PublicationDate = nil
				return post, nil
			},
			expectedErr: entity.ErrPending,
		},
		{
			name: "Not found is passed through",
			getPost: func(_ context.Context, uid string) (*entity.Post, error) {
				return nil, fmt.Errorf("post %s: %w", uid, entity.ErrNotFound)
			},
			expectedErr: entity.ErrNotFound,
		},
		{
			name: "Service failure is passed through",
			getPost: func(context.Context, string) (*entity.Post, error) {
				return nil, fmt.Errorf("%w: status 500", entity.ErrServiceUnavailable)
			},
			expectedErr: entity.ErrServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := article.NewPipeline(&MockPostGetter{GetPostFunc: tt.getPost}, 200)

			post, err := p.Load(context.Background(), "como-utilizar-hooks")

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, post)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "como-utilizar-hooks", post.UID)
		})
	}
}

func TestPipeline_Render(t *testing.T) {
	registry, err := locale.NewRegistry("pt-BR", time.UTC)
	require.NoError(t, err)

	p := article.NewPipeline(nil, 200)
	view := p.Render(publishedPost(), registry.Default())

	assert.Equal(t, "Como utilizar Hooks", view.Title)
	assert.Equal(t, "Joseph Oliveira", view.Author)
	assert.Equal(t, "25 mar 2021", view.Date)
	assert.Equal(t, 1, view.ReadingMinutes)
	require.NotNil(t, view.Banner)
	assert.Equal(t, "banner", view.Banner.Alt)

	require.Len(t, view.Sections, 3)

	for i, expected := range []struct{ heading, body string }{
		{"A", "<p>first section</p>"},
		{"B", "<p>second section</p>"},
		{"A", "<p>repeated heading</p>"},
	} {
		assert.Equal(t, i, view.Sections[i].Index)
		assert.Equal(t, expected.heading, view.Sections[i].Heading)
		assert.Equal(t, expected.body, string(view.Sections[i].Body))
	}
}

func TestReadingTime(t *testing.T) {
	tests := []struct {
		name           string
		bodies         []string
		wordsPerMinute int
		expected       int
	}{
		{name: "Empty post takes a minute", bodies: nil, wordsPerMinute: 200, expected: 1},
		{name: "Exactly one minute", bodies: []string{words(200)}, wordsPerMinute: 200, expected: 1},
		{name: "Rounds up", bodies: []string{words(201)}, wordsPerMinute: 200, expected: 2},
		{name: "Sums all blocks", bodies: []string{words(300), words(300), words(300)}, wordsPerMinute: 200, expected: 5},
		{name: "Custom speed", bodies: []string{words(300)}, wordsPerMinute: 100, expected: 3},
		{name: "Invalid speed uses default", bodies: []string{words(400)}, wordsPerMinute: 0, expected: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := &entity.Post{}

			for _, b := range tt.bodies {
				post.Content = append(post.Content, entity.ContentBlock{
					Heading: "ignored heading words",
					Body:    []entity.TextBlock{{Type: entity.BlockParagraph, Text: b}},
				})
			}

			assert.Equal(t, tt.expected, article.ReadingTime(post, tt.wordsPerMinute))
		})
	}
}
