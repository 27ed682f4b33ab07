package entity

import "time"

// Post is a full article as served by the content service.
type Post struct {
	// UID is the opaque identifier used in article routes.
	UID string
	// Nil means the post has not been published yet.
	PublicationDate *time.Time
	Title           string
	Subtitle        string
	Author          string
	Banner          *Image
	Content         []ContentBlock
}

// Summary projects a full post onto its listing fields.
func (p *Post) Summary() PostSummary {
	return PostSummary{
		UID:             p.UID,
		PublicationDate: p.PublicationDate,
		Title:           p.Title,
		Subtitle:        p.Subtitle,
		Author:          p.Author,
	}
}

// PostSummary is the part of a post shown on the listing page.
type PostSummary struct {
	UID             string     `json:"uid"`
	PublicationDate *time.Time `json:"publicationDate"`
	Title           string     `json:"title"`
	Subtitle        string     `json:"subtitle"`
	Author          string     `json:"author"`
}

type Image struct {
	URL string
	Alt string
}

// ContentBlock pairs a section heading with its rich text body.
type ContentBlock struct {
	Heading string
	Body    []TextBlock
}

// Listing is one page of post summaries plus the reference to the next page.
type Listing struct {
	Results []PostSummary `json:"results"`
	// NextPage is an opaque reference, empty on the last page.
	NextPage string `json:"nextPage"`
}
