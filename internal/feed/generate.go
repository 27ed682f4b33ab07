package feed

import (
	"fmt"
	"strings"

	"github.com/gorilla/feeds"
	"github.com/nDmitry/spacetraveling/internal/entity"
)

// Site describes the blog the feed belongs to
type Site struct {
	Title   string
	BaseURL string
}

// Generate creates a feed from post summaries and returns it as a byte array.
// Posts without a publication date are left out.
func Generate(site Site, posts []entity.PostSummary, format string) ([]byte, error) {
	base := strings.TrimRight(site.BaseURL, "/")

	feed := &feeds.Feed{
		Title: site.Title,
		Link:  &feeds.Link{Href: base + "/"},
	}

	for _, p := range posts {
		if p.PublicationDate == nil {
			continue
		}

		link := fmt.Sprintf("%s/post/%s", base, p.UID)

		feed.Items = append(feed.Items, &feeds.Item{
			Id:          link,
			Title:       p.Title,
			Description: p.Subtitle,
			Author:      &feeds.Author{Name: p.Author},
			Link:        &feeds.Link{Href: link},
			Created:     *p.PublicationDate,
		})

		if feed.Created.IsZero() || p.PublicationDate.After(feed.Created) {
			feed.Created = *p.PublicationDate
		}
	}

	var content string
	var err error

	switch format {
	case entity.FormatRSS:
		content, err = feed.ToRss()
	case entity.FormatAtom:
		content, err = feed.ToAtom()
	default:
		return nil, fmt.Errorf("unsupported feed format: %s", format)
	}

	if err != nil {
		return nil, fmt.Errorf("could not marshal posts to %s feed: %w", format, err)
	}

	return []byte(content), nil
}
