// Package listing holds the paginated state of the post listing for one visitor.
package listing

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/nDmitry/spacetraveling/internal/entity"
)

// ErrLoadInFlight is returned by LoadMore while a previous call has not finished.
var ErrLoadInFlight = errors.New("a page is already being loaded")

// PageFetcher fetches the page named by an opaque next page reference.
type PageFetcher interface {
	FetchPage(ctx context.Context, ref string) (*entity.Listing, error)
}

// State is a copy of a session's accumulated results and next page reference.
type State struct {
	Results  []entity.PostSummary
	NextPage string
}

// Session accumulates listing pages. Results are only ever appended, in the
// order the content service returned them.
type Session struct {
	fetcher PageFetcher

	mu      sync.Mutex
	results []entity.PostSummary
	seen    map[string]struct{}
	next    string
	loading bool
}

// NewSession creates a session initialized with the first page.
func NewSession(fetcher PageFetcher, first *entity.Listing) *Session {
	s := &Session{
		fetcher: fetcher,
		seen:    make(map[string]struct{}),
	}

	if first != nil {
		s.results = s.unseen(first.Results)
		s.next = first.NextPage
	}

	return s
}

// LoadMore fetches the next page and appends its results.
// It does nothing when there is no next page. On error the state is left unchanged.
func (s *Session) LoadMore(ctx context.Context) error {
	s.mu.Lock()

	if s.loading {
		s.mu.Unlock()
		return ErrLoadInFlight
	}

	ref := s.next

	if ref == "" {
		s.mu.Unlock()
		return nil
	}

	s.loading = true
	s.mu.Unlock()

	page, err := s.fetcher.FetchPage(ctx, ref)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.loading = false

	if err != nil {
		return fmt.Errorf("could not load more posts: %w", err)
	}

	s.results = append(s.results, s.unseen(page.Results)...)
	s.next = page.NextPage

	return nil
}

// HasMore reports whether a next page exists.
func (s *Session) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.next != ""
}

// Loading reports whether a LoadMore call is in progress.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loading
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		Results:  slices.Clone(s.results),
		NextPage: s.next,
	}
}

// unseen filters out summaries already in the session and records the rest.
// Must be called with mu held or before the session is shared.
func (s *Session) unseen(results []entity.PostSummary) []entity.PostSummary {
	out := make([]entity.PostSummary, 0, len(results))

	for _, r := range results {
		if _, ok := s.seen[r.UID]; ok {
			continue
		}

		s.seen[r.UID] = struct{}{}
		out = append(out, r)
	}

	return out
}
