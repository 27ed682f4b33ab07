// Package prismic is the adapter for the Prismic REST API v2, the content
// service the blog reads its posts from.
package prismic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nDmitry/spacetraveling/internal/app"
	"github.com/nDmitry/spacetraveling/internal/entity"
)

const (
	maxResponseSize = 10 << 20
	maxPageSize     = 100
)

// ErrUntrustedReference is returned when a next page reference points outside the content service.
var ErrUntrustedReference = errors.New("page reference is not served by the content service")

// Client queries posts of one document type.
type Client struct {
	endpoint     *url.URL
	accessToken  string
	documentType string
	httpClient   *http.Client
	metrics      *app.Metrics
	logger       *slog.Logger
}

// NewClient creates a client for the configured repository. Metrics may be nil.
func NewClient(cfg entity.PrismicConfig, metrics *app.Metrics) (*Client, error) {
	endpoint, err := url.Parse(cfg.Endpoint)

	if err != nil || endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("invalid content service endpoint %q", cfg.Endpoint)
	}

	if cfg.DocumentType == "" {
		return nil, fmt.Errorf("document type is required")
	}

	return &Client{
		endpoint:     endpoint,
		accessToken:  cfg.AccessToken,
		documentType: cfg.DocumentType,
		httpClient:   newHTTPClient(cfg.Timeout),
		metrics:      metrics,
		logger:       app.Logger(),
	}, nil
}

// ListPosts fetches the first page of posts in the service's default order.
func (c *Client) ListPosts(ctx context.Context, pageSize int) (*entity.Listing, error) {
	if pageSize < 1 {
		pageSize = 1
	} else if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	fields := make([]string, 0, 4)

	for _, f := range []string{"title", "subtitle", "author", "content"} {
		fields = append(fields, c.documentType+"."+f)
	}

	query := url.Values{}
	query.Set("q", fmt.Sprintf(`[[at(document.type,"%s")]]`, c.documentType))
	query.Set("fetch", strings.Join(fields, ","))
	query.Set("pageSize", strconv.Itoa(pageSize))

	var res searchResponse

	if err := c.search(ctx, "list", query, &res); err != nil {
		return nil, fmt.Errorf("could not list posts: %w", err)
	}

	return res.toListing()
}

// GetPost fetches a full post by its UID.
func (c *Client) GetPost(ctx context.Context, uid string) (*entity.Post, error) {
	query := url.Values{}
	query.Set("q", fmt.Sprintf(`[[at(my.%s.uid,"%s")]]`, c.documentType, escapeQuery(uid)))
	query.Set("pageSize", "1")

	var res searchResponse

	if err := c.search(ctx, "get", query, &res); err != nil {
		return nil, fmt.Errorf("could not get post %s: %w", uid, err)
	}

	if len(res.Results) == 0 {
		c.observe("get", "not_found", 0)
		return nil, fmt.Errorf("post %s: %w", uid, entity.ErrNotFound)
	}

	return res.Results[0].toPost()
}

// FetchPage fetches the page named by an opaque next page reference.
// The reference is requested as is and only checked to belong to the content service host.
func (c *Client) FetchPage(ctx context.Context, ref string) (*entity.Listing, error) {
	u, err := url.Parse(ref)

	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || !strings.EqualFold(u.Host, c.endpoint.Host) {
		return nil, fmt.Errorf("%w: %q", ErrUntrustedReference, ref)
	}

	var res searchResponse

	if err := c.getJSON(ctx, "fetch_page", ref, &res); err != nil {
		return nil, fmt.Errorf("could not fetch next page: %w", err)
	}

	return res.toListing()
}

// ListUIDs walks every page and returns the UIDs of all posts.
func (c *Client) ListUIDs(ctx context.Context) ([]string, error) {
	listing, err := c.ListPosts(ctx, maxPageSize)

	if err != nil {
		return nil, err
	}

	var uids []string
	visited := make(map[string]bool)

	for {
		for _, p := range listing.Results {
			uids = append(uids, p.UID)
		}

		if listing.NextPage == "" || visited[listing.NextPage] {
			return uids, nil
		}

		visited[listing.NextPage] = true

		if listing, err = c.FetchPage(ctx, listing.NextPage); err != nil {
			return nil, err
		}
	}
}

func (c *Client) search(ctx context.Context, operation string, query url.Values, out any) error {
	ref, err := c.masterRef(ctx)

	if err != nil {
		return err
	}

	query.Set("ref", ref)

	searchURL := c.endpoint.JoinPath("documents", "search")
	searchURL.RawQuery = query.Encode()

	return c.getJSON(ctx, operation, searchURL.String(), out)
}

func (c *Client) masterRef(ctx context.Context) (string, error) {
	var root apiRoot

	if err := c.getJSON(ctx, "ref", c.endpoint.String(), &root); err != nil {
		return "", fmt.Errorf("could not resolve master ref: %w", err)
	}

	for _, r := range root.Refs {
		if r.IsMasterRef {
			return r.Ref, nil
		}
	}

	return "", errors.New("content service returned no master ref")
}

func (c *Client) getJSON(ctx context.Context, operation string, target string, out any) error {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)

	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	// The token travels in a header so request URLs never carry it.
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Token "+c.accessToken)
	}

	res, err := c.httpClient.Do(req)

	if err != nil {
		c.observe(operation, "error", time.Since(start))

		// url.Error repeats the request URL, keep only the cause.
		var urlErr *url.Error

		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}

		c.logger.Error("Content service request failed", "operation", operation, "error", err)

		return fmt.Errorf("%w: %w", entity.ErrServiceUnavailable, err)
	}

	defer res.Body.Close()

	if res.StatusCode >= http.StatusInternalServerError || res.StatusCode == http.StatusTooManyRequests {
		c.observe(operation, "error", time.Since(start))
		io.Copy(io.Discard, io.LimitReader(res.Body, maxResponseSize))

		return fmt.Errorf("%w: status %d", entity.ErrServiceUnavailable, res.StatusCode)
	}

	if res.StatusCode != http.StatusOK {
		c.observe(operation, "error", time.Since(start))

		return fmt.Errorf("unexpected status %d from content service", res.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(res.Body, maxResponseSize)).Decode(out); err != nil {
		c.observe(operation, "error", time.Since(start))

		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", entity.ErrServiceUnavailable, err)
		}

		return fmt.Errorf("could not decode content service response: %w", err)
	}

	c.observe(operation, "ok", time.Since(start))

	return nil
}

func (c *Client) observe(operation, outcome string, duration time.Duration) {
	if c.metrics == nil {
		return
	}

	c.metrics.ContentRequests.WithLabelValues(operation, outcome).Inc()

	if duration > 0 {
		c.metrics.ContentRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

func (r *searchResponse) toListing() (*entity.Listing, error) {
	listing := &entity.Listing{
		Results: make([]entity.PostSummary, 0, len(r.Results)),
	}

	if r.NextPage != nil {
		listing.NextPage = *r.NextPage
	}

	for i := range r.Results {
		summary, err := r.Results[i].toSummary()

		if err != nil {
			return nil, err
		}

		listing.Results = append(listing.Results, summary)
	}

	return listing, nil
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
