package listing_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/nDmitry/spacetraveling/internal/entity"
	"github.com/nDmitry/spacetraveling/internal/listing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockFetcher is a mock implementation of the PageFetcher interface
type MockFetcher struct {
	FetchPageFunc func(ctx context.Context, ref string) (*entity.Listing, error)
}

func (m *MockFetcher) FetchPage(ctx context.Context, ref string) (*entity.Listing, error) {
	return m.FetchPageFunc(ctx, ref)
}

func summaries(uids ...string) []entity.PostSummary {
	out := make([]entity.PostSummary, 0, len(uids))

	for _, uid := range uids {
		out = append(out, entity.PostSummary{UID: uid, Title: "Title " + uid})
	}

	return out
}

func uidsOf(results []entity.PostSummary) []string {
	out := make([]string, 0, len(results))

	for _, r := range results {
		out = append(out, r.UID)
	}

	return out
}

// pagedFetcher serves pages keyed by reference.
func pagedFetcher(t *testing.T, pages map[string]*entity.Listing) (*MockFetcher, *[]string) {
	var calls []string

	return &MockFetcher{
		FetchPageFunc: func(_ context.Context, ref string) (*entity.Listing, error) {
			calls = append(calls, ref)
			page, ok := pages[ref]
			require.True(t, ok, "unexpected page reference %q", ref)
			return page, nil
		},
	}, &calls
}

func TestSession_LoadMoreAppendsInOrder(t *testing.T) {
	pages := map[string]*entity.Listing{
		"page-2": {Results: summaries("c", "d"), NextPage: "page-3"},
		"page-3": {Results: summaries("e"), NextPage: ""},
	}
	fetcher, calls := pagedFetcher(t, pages)

	first := &entity.Listing{Results: summaries("a", "b"), NextPage: "page-2"}
	s := listing.NewSession(fetcher, first)

	lengths := []int{len(s.Snapshot().Results)}

	for s.HasMore() {
		require.NoError(t, s.LoadMore(context.Background()))
		lengths = append(lengths, len(s.Snapshot().Results))
	}

	state := s.Snapshot()
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, uidsOf(state.Results))
	assert.Empty(t, state.NextPage)
	assert.Equal(t, []int{2, 4, 5}, lengths)
	assert.Equal(t, []string{"page-2", "page-3"}, *calls)
}

func TestSession_LoadMoreWithoutNextPageIsNoop(t *testing.T) {
	fetcher := &MockFetcher{
		FetchPageFunc: func(context.Context, string) (*entity.Listing, error) {
			t.Fatal("FetchPage should not be called without a next page")
			return nil, nil
		},
	}

	s := listing.NewSession(fetcher, &entity.Listing{Results: summaries("a")})
	before := s.Snapshot()

	require.NoError(t, s.LoadMore(context.Background()))

	assert.Equal(t, before, s.Snapshot())
	assert.False(t, s.HasMore())
}

func TestSession_FailedLoadLeavesStateUnchanged(t *testing.T) {
	fail := true
	fetcher := &MockFetcher{
		FetchPageFunc: func(_ context.Context, ref string) (*entity.Listing, error) {
			assert.Equal(t, "page-2", ref)

			if fail {
				return nil, fmt.Errorf("%w: status 503", entity.ErrServiceUnavailable)
			}

			return &entity.Listing{Results: summaries("c")}, nil
		},
	}

	s := listing.NewSession(fetcher, &entity.Listing{Results: summaries("a", "b"), NextPage: "page-2"})
	before := s.Snapshot()

	err := s.LoadMore(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrServiceUnavailable)
	assert.Equal(t, before, s.Snapshot())
	assert.False(t, s.Loading())

	// A retry after the failure picks up the same page.
	fail = false
	require.NoError(t, s.LoadMore(context.Background()))
	assert.Equal(t, []string{"a", "b", "c"}, uidsOf(s.Snapshot().Results))
}

func TestSession_ConcurrentLoadIsRejected(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	fetcher := &MockFetcher{
		FetchPageFunc: func(context.Context, string) (*entity.Listing, error) {
			close(started)
			<-release
			return &entity.Listing{Results: summaries("b")}, nil
		},
	}

	s := listing.NewSession(fetcher, &entity.Listing{Results: summaries("a"), NextPage: "page-2"})

	var wg sync.WaitGroup
	var firstErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		firstErr = s.LoadMore(context.Background())
	}()

	<-started
	assert.True(t, s.Loading())
	assert.ErrorIs(t, s.LoadMore(context.Background()), listing.ErrLoadInFlight)

	close(release)
	wg.Wait()

	require.NoError(t, firstErr)
	assert.Equal(t, []string{"a", "b"}, uidsOf(s.Snapshot().Results))
}

func TestSession_DuplicatesAreSkipped(t *testing.T) {
	fetcher, _ := pagedFetcher(t, map[string]*entity.Listing{
		// The service shifted by one post between requests.
		"page-2": {Results: summaries("b", "c")},
	})

	s := listing.NewSession(fetcher, &entity.Listing{Results: summaries("a", "b", "a"), NextPage: "page-2"})
	require.NoError(t, s.LoadMore(context.Background()))

	assert.Equal(t, []string{"a", "b", "c"}, uidsOf(s.Snapshot().Results))
}

func TestSession_ContextIsPassedToFetcher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &MockFetcher{
		FetchPageFunc: func(ctx context.Context, _ string) (*entity.Listing, error) {
			return nil, ctx.Err()
		},
	}

	s := listing.NewSession(fetcher, &entity.Listing{NextPage: "page-2"})

	err := s.LoadMore(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, s.HasMore())
}

func TestSession_SnapshotIsACopy(t *testing.T) {
	s := listing.NewSession(nil, &entity.Listing{Results: summaries("a")})

	state := s.Snapshot()
	state.Results[0].Title = "changed"

	assert.Equal(t, "Title a", s.Snapshot().Results[0].Title)
}

func TestNewSession_NilListing(t *testing.T) {
	s := listing.NewSession(nil, nil)

	assert.Empty(t, s.Snapshot().Results)
	assert.False(t, s.HasMore())
	assert.NoError(t, s.LoadMore(context.Background()))
}
