package locale_test

import (
	"testing"
	"time"

	"github.com/nDmitry/spacetraveling/internal/locale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocale_FormatDate(t *testing.T) {
	registry, err := locale.NewRegistry("pt-BR", time.UTC)
	require.NoError(t, err)

	tests := []struct {
		name     string
		acceptLn string
		date     string
		expected string
	}{
		{
			name:     "Brazilian Portuguese",
			acceptLn: "pt-BR",
			date:     "2021-03-25T00:00:00Z",
			expected: "25 mar 2021",
		},
		{
			name:     "Single digit day is padded",
			acceptLn: "pt-BR",
			date:     "2021-02-05T10:00:00Z",
			expected: "05 fev 2021",
		},
		{
			name:     "English",
			acceptLn: "en-US",
			date:     "2021-03-25T00:00:00Z",
			expected: "25 Mar 2021",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, err := time.Parse(time.RFC3339, tt.date)
			require.NoError(t, err)

			l := registry.Negotiate(tt.acceptLn)
			assert.Equal(t, tt.expected, l.FormatDate(&date))
		})
	}
}

func TestLocale_FormatDateIsDeterministic(t *testing.T) {
	registry, err := locale.NewRegistry("pt-BR", time.UTC)
	require.NoError(t, err)

	date := time.Date(2021, 3, 25, 0, 0, 0, 0, time.UTC)
	l := registry.Default()

	for range 10 {
		assert.Equal(t, "25 mar 2021", l.FormatDate(&date))
	}
}

func TestLocale_FormatDateNil(t *testing.T) {
	registry, err := locale.NewRegistry("pt-BR", time.UTC)
	require.NoError(t, err)

	assert.Empty(t, registry.Default().FormatDate(nil))
}

func TestLocale_FormatDateTimezone(t *testing.T) {
	saoPaulo, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	registry, err := locale.NewRegistry("pt-BR", saoPaulo)
	require.NoError(t, err)

	date := time.Date(2021, 3, 25, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "24 mar 2021", registry.Default().FormatDate(&date))
}

func TestRegistry_Negotiate(t *testing.T) {
	registry, err := locale.NewRegistry("pt-BR", time.UTC)
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		expected string
	}{
		{name: "Empty header uses default", header: "", expected: "pt-BR"},
		{name: "Exact match", header: "en", expected: "en"},
		{name: "Regional variant", header: "en-GB,en;q=0.8", expected: "en"},
		{name: "Weighted preference", header: "fr;q=0.9,pt-BR;q=0.8,en;q=0.1", expected: "pt-BR"},
		{name: "Unsupported language uses default", header: "ja", expected: "pt-BR"},
		{name: "Malformed header uses default", header: ";;;", expected: "pt-BR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, registry.Negotiate(tt.header).Tag)
		})
	}
}

func TestNewRegistry(t *testing.T) {
	registry, err := locale.NewRegistry("en", nil)
	require.NoError(t, err)
	assert.Equal(t, "en", registry.Default().Tag)
	assert.Equal(t, "Load more posts", registry.Default().Messages.LoadMore)

	_, err = locale.NewRegistry("de", nil)
	assert.Error(t, err)

	_, err = locale.NewRegistry("not a tag!", nil)
	assert.Error(t, err)
}
