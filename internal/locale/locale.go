// Package locale negotiates the page language and formats dates with
// localized month names.
package locale

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/pt_BR"
	"golang.org/x/text/language"
)

// Messages are the interface strings of a locale.
type Messages struct {
	HomeTitle   string
	LoadMore    string
	Loading     string
	NotFound    string
	Unavailable string
	Busy        string
	Retry       string
	BackHome    string
	Unpublished string
}

// Locale formats dates and provides interface strings for one language.
type Locale struct {
	Tag        string
	Messages   Messages
	translator locales.Translator
	location   *time.Location
}

type definition struct {
	tag        language.Tag
	translator func() locales.Translator
	messages   Messages
}

var definitions = []definition{
	{
		tag:        language.BrazilianPortuguese,
		translator: pt_BR.New,
		messages: Messages{
			HomeTitle:   "Home",
			LoadMore:    "Carregar mais posts",
			Loading:     "Carregando...",
			NotFound:    "Post não encontrado",
			Unavailable: "Não foi possível carregar os posts. Tente novamente.",
			Busy:        "Os posts ainda estão sendo carregados.",
			Retry:       "Tentar novamente",
			BackHome:    "Voltar para o início",
			Unpublished: "Em breve",
		},
	},
	{
		tag:        language.English,
		translator: en.New,
		messages: Messages{
			HomeTitle:   "Home",
			LoadMore:    "Load more posts",
			Loading:     "Loading...",
			NotFound:    "Post not found",
			Unavailable: "Could not load posts. Please try again.",
			Busy:        "Posts are still loading.",
			Retry:       "Try again",
			BackHome:    "Back to home",
			Unpublished: "Coming soon",
		},
	},
}

// FormatDate renders t as day, abbreviated month and year, e.g. "25 mar 2021".
// A nil time yields an empty string.
func (l *Locale) FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}

	local := t.In(l.location)
	month := strings.TrimSuffix(l.translator.MonthAbbreviated(local.Month()), ".")

	return fmt.Sprintf("%02d %s %d", local.Day(), month, local.Year())
}

// Registry holds the supported locales and picks one per request.
type Registry struct {
	matcher language.Matcher
	locales []*Locale
}

// NewRegistry creates a registry whose fallback is the locale matching defaultTag.
// Dates are formatted in the given timezone.
func NewRegistry(defaultTag string, location *time.Location) (*Registry, error) {
	def, err := language.Parse(defaultTag)

	if err != nil {
		return nil, fmt.Errorf("could not parse locale %q: %w", defaultTag, err)
	}

	if location == nil {
		location = time.UTC
	}

	r := &Registry{}
	tags := make([]language.Tag, 0, len(definitions))

	// The default goes first so the matcher falls back to it.
	ordered := make([]definition, 0, len(definitions))

	for _, d := range definitions {
		if d.tag == def {
			ordered = append(ordered, d)
		}
	}

	if len(ordered) == 0 {
		return nil, fmt.Errorf("unsupported locale %q", defaultTag)
	}

	for _, d := range definitions {
		if d.tag != def {
			ordered = append(ordered, d)
		}
	}

	for _, d := range ordered {
		tags = append(tags, d.tag)
		r.locales = append(r.locales, &Locale{
			Tag:        d.tag.String(),
			Messages:   d.messages,
			translator: d.translator(),
			location:   location,
		})
	}

	r.matcher = language.NewMatcher(tags)

	return r, nil
}

// Default returns the fallback locale.
func (r *Registry) Default() *Locale {
	return r.locales[0]
}

// Negotiate picks the best supported locale for an Accept-Language header value.
func (r *Registry) Negotiate(acceptLanguage string) *Locale {
	if acceptLanguage == "" {
		return r.Default()
	}

	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)

	if err != nil || len(tags) == 0 {
		return r.Default()
	}

	_, idx, confidence := r.matcher.Match(tags...)

	if confidence == language.No {
		return r.Default()
	}

	return r.locales[idx]
}
