package entity

import (
	"fmt"
	"net/http"
	"regexp"
)

const (
	FormatAtom = "atom"
	FormatRSS  = "rss"
)

var uidRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ArticleParams represents validated request parameters for an article page
type ArticleParams struct {
	// UID is the post identifier from the route
	UID string

	// Locale is the negotiated locale tag, e.g. "pt-BR"
	Locale string
}

// NewArticleParamsFromRequest parses and validates the article route parameters
func NewArticleParamsFromRequest(r *http.Request, locale string) (*ArticleParams, error) {
	uid := r.PathValue("uid")

	if uid == "" {
		return nil, fmt.Errorf("uid is required")
	}

	if len(uid) > 200 || !uidRegex.MatchString(uid) {
		return nil, fmt.Errorf("uid must contain only letters, digits, '-', '_' or '.'")
	}

	return &ArticleParams{
		UID:    uid,
		Locale: locale,
	}, nil
}
