package listing

import (
	"github.com/nDmitry/spacetraveling/internal/entity"
	"github.com/nDmitry/spacetraveling/internal/locale"
)

// Item is a post summary prepared for the listing template.
type Item struct {
	UID      string
	Title    string
	Subtitle string
	Author   string
	Date     string
}

// Items formats summaries in order for display in the given locale.
func Items(results []entity.PostSummary, l *locale.Locale) []Item {
	items := make([]Item, 0, len(results))

	for _, r := range results {
		date := l.FormatDate(r.PublicationDate)

		if date == "" {
			date = l.Messages.Unpublished
		}

		items = append(items, Item{
			UID:      r.UID,
			Title:    r.Title,
			Subtitle: r.Subtitle,
			Author:   r.Author,
			Date:     date,
		})
	}

	return items
}
