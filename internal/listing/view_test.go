package listing_test

import (
	"testing"
	"time"

	"github.com/nDmitry/spacetraveling/internal/entity"
	"github.com/nDmitry/spacetraveling/internal/listing"
	"github.com/nDmitry/spacetraveling/internal/locale"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItems(t *testing.T) {
	registry, err := locale.NewRegistry("pt-BR", time.UTC)
	require.NoError(t, err)

	date := time.Date(2021, 3, 25, 0, 0, 0, 0, time.UTC)
	results := []entity.PostSummary{
		{UID: "b", PublicationDate: &date, Title: "B", Subtitle: "sub b", Author: "Ana"},
		{UID: "a", Title: "A"},
	}

	items := listing.Items(results, registry.Default())
	require.Len(t, items, 2)

	assert.Equal(t, listing.Item{UID: "b", Title: "B", Subtitle: "sub b", Author: "Ana", Date: "25 mar 2021"}, items[0])
	assert.Equal(t, "a", items[1].UID)
	assert.Equal(t, "Em breve", items[1].Date)
}
