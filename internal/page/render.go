// Package page renders the HTML pages of the blog from embedded templates.
package page

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/nDmitry/spacetraveling/internal/article"
	"github.com/nDmitry/spacetraveling/internal/listing"
	"github.com/nDmitry/spacetraveling/internal/locale"
)

// ListingData is the data of the listing page.
type ListingData struct {
	Items   []listing.Item
	HasMore bool
	// Session identifies the listing state this page shows, so each open
	// page keeps loading its own pages.
	Session string
	// Notice is shown above the posts, e.g. after a failed load.
	Notice string
}

type statusData struct {
	Heading string
	Link    bool
}

type pageData struct {
	Site    string
	Title   string
	Locale  *locale.Locale
	Header  bool
	Refresh int
	Data    any
}

// Renderer executes the page templates.
type Renderer struct {
	site  string
	pages map[string]*template.Template
}

// NewRenderer parses the embedded templates. site is used in page titles.
func NewRenderer(site string) (*Renderer, error) {
	r := &Renderer{
		site:  site,
		pages: make(map[string]*template.Template),
	}

	for _, name := range []string{"listing", "article", "status"} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")

		if err != nil {
			return nil, fmt.Errorf("could not parse %s template: %w", name, err)
		}

		r.pages[name] = t
	}

	return r, nil
}

// Listing renders the home page.
func (r *Renderer) Listing(l *locale.Locale, data ListingData) ([]byte, error) {
	return r.layout("listing", pageData{
		Title:  fmt.Sprintf("%s | %s", l.Messages.HomeTitle, r.site),
		Locale: l,
		Data:   data,
	})
}

// Summaries renders only the post summaries, for appending to an existing listing.
func (r *Renderer) Summaries(items []listing.Item) ([]byte, error) {
	return r.execute("listing", "summaries", items)
}

// Article renders a post page.
func (r *Renderer) Article(l *locale.Locale, view *article.View) ([]byte, error) {
	return r.layout("article", pageData{
		Title:  view.Title,
		Locale: l,
		Header: true,
		Data:   view,
	})
}

// Loading renders the page shown while a post is not available yet.
// The page reloads itself after refresh seconds.
func (r *Renderer) Loading(l *locale.Locale, refresh int) ([]byte, error) {
	return r.layout("status", pageData{
		Title:   l.Messages.Loading,
		Locale:  l,
		Header:  true,
		Refresh: refresh,
		Data:    statusData{Heading: l.Messages.Loading},
	})
}

// NotFound renders the page for identifiers without a post.
func (r *Renderer) NotFound(l *locale.Locale) ([]byte, error) {
	return r.layout("status", pageData{
		Title:  l.Messages.NotFound,
		Locale: l,
		Header: true,
		Data:   statusData{Heading: l.Messages.NotFound, Link: true},
	})
}

// Error renders a failure page with message as heading.
func (r *Renderer) Error(l *locale.Locale, message string) ([]byte, error) {
	return r.layout("status", pageData{
		Title:  r.site,
		Locale: l,
		Header: true,
		Data:   statusData{Heading: message, Link: true},
	})
}

func (r *Renderer) layout(page string, data pageData) ([]byte, error) {
	data.Site = r.site
	return r.execute(page, "layout", data)
}

func (r *Renderer) execute(page, name string, data any) ([]byte, error) {
	var buf bytes.Buffer

	if err := r.pages[page].ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("could not render %s page: %w", page, err)
	}

	return buf.Bytes(), nil
}
