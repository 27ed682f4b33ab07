package handler

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/sessions"
	"golang.org/x/sync/singleflight"

	"github.com/nDmitry/spacetraveling/internal/app"
	"github.com/nDmitry/spacetraveling/internal/article"
	"github.com/nDmitry/spacetraveling/internal/cache"
	"github.com/nDmitry/spacetraveling/internal/entity"
	"github.com/nDmitry/spacetraveling/internal/feed"
	"github.com/nDmitry/spacetraveling/internal/listing"
	"github.com/nDmitry/spacetraveling/internal/locale"
	"github.com/nDmitry/spacetraveling/internal/page"
)

const (
	sessionCookie = "spacetraveling_session"
	sessionIDKey  = "id"
	sessionParam  = "session"

	// loadingRefresh is the number of seconds after which the loading page reloads itself.
	loadingRefresh = 2
)

// ContentClient is the part of the content service used by the blog pages
type ContentClient interface {
	ListPosts(ctx context.Context, pageSize int) (*entity.Listing, error)
	GetPost(ctx context.Context, uid string) (*entity.Post, error)
	FetchPage(ctx context.Context, ref string) (*entity.Listing, error)
}

// BlogHandler serves the listing, article and feed pages
type BlogHandler struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	cache    cache.Cache
	content  ContentClient
	articles *article.Pipeline
	renderer *page.Renderer
	locales  *locale.Registry
	sessions *listing.Manager
	cookies  *sessions.CookieStore
	metrics  *app.Metrics
	group    singleflight.Group

	site            entity.SiteConfig
	pageSize        int
	cacheTTL        time.Duration
	fallbackWait    time.Duration
	generateTimeout time.Duration
}

// NewBlogHandler creates a new BlogHandler and sets up routes
func NewBlogHandler(cfg *entity.Config, content ContentClient, c cache.Cache, metrics *app.Metrics) (*BlogHandler, error) {
	location, err := time.LoadLocation(cfg.Site.Timezone)

	if err != nil {
		return nil, fmt.Errorf("could not load timezone %q: %w", cfg.Site.Timezone, err)
	}

	locales, err := locale.NewRegistry(cfg.Site.Locale, location)

	if err != nil {
		return nil, err
	}

	renderer, err := page.NewRenderer(cfg.Site.Title)

	if err != nil {
		return nil, err
	}

	secret, err := sessionSecret(cfg.Session.Secret)

	if err != nil {
		return nil, err
	}

	cookies := sessions.NewCookieStore(secret)
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.Session.TTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	handler := &BlogHandler{
		mux:             http.NewServeMux(),
		logger:          app.Logger(),
		cache:           c,
		content:         content,
		articles:        article.NewPipeline(content, cfg.Site.WordsPerMinute),
		renderer:        renderer,
		locales:         locales,
		cookies:         cookies,
		metrics:         metrics,
		site:            cfg.Site,
		pageSize:        cfg.Prismic.PageSize,
		cacheTTL:        cfg.Cache.TTL,
		fallbackWait:    cfg.Article.FallbackWait,
		generateTimeout: 2 * cfg.Prismic.Timeout,
	}

	handler.sessions = listing.NewManager(cfg.Session.TTL, cfg.Session.Limit, func(n int) {
		metrics.ActiveSessions.Set(float64(n))
	})

	if handler.generateTimeout <= 0 {
		handler.generateTimeout = 20 * time.Second
	}

	// Setup routes
	handler.mux.HandleFunc("GET /{$}", handler.GetHome)
	handler.mux.HandleFunc("GET /posts", handler.GetPosts)
	handler.mux.HandleFunc("POST /posts/more", handler.PostMore)
	handler.mux.HandleFunc("POST /api/posts/more", handler.PostMoreAPI)
	handler.mux.HandleFunc("GET /post/{uid}", handler.GetArticle)
	handler.mux.HandleFunc("GET /feed.xml", handler.GetFeed(entity.FormatRSS))
	handler.mux.HandleFunc("GET /feed.atom", handler.GetFeed(entity.FormatAtom))
	handler.mux.HandleFunc("GET /healthz", handler.GetHealth)
	handler.mux.Handle("GET "+page.AssetsPrefix, http.StripPrefix(page.AssetsPrefix, http.FileServerFS(page.Assets())))

	return handler, nil
}

// Handler returns the HTTP handler for blog routes
func (h *BlogHandler) Handler() http.Handler {
	return h.mux
}

// GetHome starts a new listing session with the first page of posts
func (h *BlogHandler) GetHome(w http.ResponseWriter, r *http.Request) {
	l := h.locales.Negotiate(r.Header.Get("Accept-Language"))

	first, cacheStatus, err := h.firstPage(r.Context())

	if err != nil {
		h.renderError(w, l, err)
		return
	}

	// Every rendered listing owns its session, the cookie only remembers the latest one.
	session := listing.NewSession(h.content, first)
	id := h.sessions.Add(session)

	if err := h.saveSession(w, r, id); err != nil {
		h.logger.Error("Failed to save listing session", "error", err)
	}

	w.Header().Set("X-CACHE-STATUS", cacheStatus)
	h.renderListing(w, l, id, session, "", http.StatusOK)
}

// GetPosts renders the current state of a listing session
func (h *BlogHandler) GetPosts(w http.ResponseWriter, r *http.Request) {
	id, session, ok := h.session(r)

	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	l := h.locales.Negotiate(r.Header.Get("Accept-Language"))
	h.renderListing(w, l, id, session, "", http.StatusOK)
}

// PostMore loads the next page for form submissions and redirects back to the listing
func (h *BlogHandler) PostMore(w http.ResponseWriter, r *http.Request) {
	id, session, ok := h.session(r)

	if !ok {
		h.metrics.LoadMore.WithLabelValues("no_session").Inc()
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	l := h.locales.Negotiate(r.Header.Get("Accept-Language"))

	if err := h.loadMore(r.Context(), session); err != nil {
		if errors.Is(err, listing.ErrLoadInFlight) {
			h.renderListing(w, l, id, session, l.Messages.Busy, http.StatusConflict)
			return
		}

		h.renderListing(w, l, id, session, l.Messages.Unavailable, statusCode(err))
		return
	}

	http.Redirect(w, r, "/posts?"+url.Values{sessionParam: {id}}.Encode(), http.StatusSeeOther)
}

type morePostsResponse struct {
	HTML    string `json:"html"`
	HasMore bool   `json:"hasMore"`
}

// PostMoreAPI loads the next page and responds with the markup of the posts
// following the ones the page already displays
func (h *BlogHandler) PostMoreAPI(w http.ResponseWriter, r *http.Request) {
	_, session, ok := h.session(r)

	if !ok {
		h.metrics.LoadMore.WithLabelValues("no_session").Inc()
		h.handleError(w, errors.New("listing session not found"), http.StatusNotFound)
		return
	}

	l := h.locales.Negotiate(r.Header.Get("Accept-Language"))
	displayed := len(session.Snapshot().Results)

	// A page reports how many posts it shows, other pages may have advanced the session meanwhile.
	if count, err := strconv.Atoi(r.FormValue("count")); err == nil {
		displayed = count
	}

	if err := h.loadMore(r.Context(), session); err != nil {
		if errors.Is(err, listing.ErrLoadInFlight) {
			h.handleError(w, err, http.StatusConflict)
			return
		}

		h.handleError(w, err, statusCode(err))
		return
	}

	state := session.Snapshot()
	displayed = min(max(displayed, 0), len(state.Results))
	content, err := h.renderer.Summaries(listing.Items(state.Results[displayed:], l))

	if err != nil {
		h.handleError(w, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	resp := morePostsResponse{HTML: string(content), HasMore: state.NextPage != ""}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		handleBadErrorResponse(err, resp)
	}
}

// GetArticle serves a post page, generating it on the first request
func (h *BlogHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	l := h.locales.Negotiate(r.Header.Get("Accept-Language"))
	params, err := entity.NewArticleParamsFromRequest(r, l.Tag)

	if err != nil {
		h.logger.Debug("Invalid article request", "error", err)
		h.renderError(w, l, fmt.Errorf("%w: %w", entity.ErrNotFound, err))
		return
	}

	cacheKey := fmt.Sprintf("article:%s:%s", params.Locale, params.UID)

	if content, ok := h.cached(r.Context(), "article", cacheKey); ok {
		w.Header().Set("X-CACHE-STATUS", "HIT")
		h.serveContent(w, content, "text/html", http.StatusOK)
		return
	}

	result := h.group.DoChan(cacheKey, func() (any, error) {
		// The page is generated even if the visitor goes away, so the next request finds it cached.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.generateTimeout)
		defer cancel()

		return h.generateArticle(ctx, params, l, cacheKey)
	})

	timer := time.NewTimer(h.fallbackWait)
	defer timer.Stop()

	select {
	case res := <-result:
		if res.Err != nil {
			h.renderError(w, l, res.Err)
			return
		}

		w.Header().Set("X-CACHE-STATUS", "MISS")
		h.serveContent(w, res.Val.([]byte), "text/html", http.StatusOK)
	case <-timer.C:
		h.renderLoading(w, l)
	case <-r.Context().Done():
	}
}

// GetFeed serves the latest posts as RSS or Atom
func (h *BlogHandler) GetFeed(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cacheKey := "feed:" + format

		if content, ok := h.cached(r.Context(), "feed", cacheKey); ok {
			w.Header().Set("X-CACHE-STATUS", "HIT")
			h.serveContent(w, content, feedContentType(format), http.StatusOK)
			return
		}

		first, _, err := h.firstPage(r.Context())

		if err != nil {
			h.handleError(w, err, statusCode(err))
			return
		}

		content, err := feed.Generate(feed.Site{Title: h.site.Title, BaseURL: h.site.BaseURL}, first.Results, format)

		if err != nil {
			h.handleError(w, err, http.StatusInternalServerError)
			return
		}

		h.store(cacheKey, content)

		w.Header().Set("X-CACHE-STATUS", "MISS")
		h.serveContent(w, content, feedContentType(format), http.StatusOK)
	}
}

// GetHealth reports that the process is serving requests
func (h *BlogHandler) GetHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("ok")); err != nil {
		h.logger.Error("Failed to write health response", "error", err)
	}
}

func (h *BlogHandler) generateArticle(ctx context.Context, params *entity.ArticleParams, l *locale.Locale, cacheKey string) ([]byte, error) {
	post, err := h.articles.Load(ctx, params.UID)

	if err != nil {
		return nil, err
	}

	content, err := h.renderer.Article(l, h.articles.Render(post, l))

	if err != nil {
		return nil, err
	}

	h.store(cacheKey, content)

	return content, nil
}

// firstPage returns the first listing page, from the cache when possible
func (h *BlogHandler) firstPage(ctx context.Context) (*entity.Listing, string, error) {
	cacheKey := fmt.Sprintf("listing:first:%d", h.pageSize)

	if content, ok := h.cached(ctx, "listing", cacheKey); ok {
		var first entity.Listing

		if err := json.Unmarshal(content, &first); err == nil {
			return &first, "HIT", nil
		}

		h.logger.Error("Failed to decode cached listing", "key", cacheKey)
	}

	first, err := h.content.ListPosts(ctx, h.pageSize)

	if err != nil {
		return nil, "", err
	}

	if content, err := json.Marshal(first); err != nil {
		h.logger.Error("Failed to encode listing", "error", err)
	} else {
		h.store(cacheKey, content)
	}

	return first, "MISS", nil
}

func (h *BlogHandler) loadMore(ctx context.Context, session *listing.Session) error {
	err := session.LoadMore(ctx)

	switch {
	case err == nil:
		h.metrics.LoadMore.WithLabelValues("ok").Inc()
	case errors.Is(err, listing.ErrLoadInFlight):
		h.metrics.LoadMore.WithLabelValues("in_flight").Inc()
	default:
		h.metrics.LoadMore.WithLabelValues("error").Inc()
		h.logger.Error("Failed to load more posts", "error", err)
	}

	return err
}

// cached looks a generated page up, treating cache failures as misses
func (h *BlogHandler) cached(ctx context.Context, kind, key string) ([]byte, bool) {
	if h.cacheTTL <= 0 {
		return nil, false
	}

	content, err := h.cache.Get(ctx, key)

	if err == nil {
		h.metrics.PageCache.WithLabelValues(kind, "hit").Inc()
		return content, true
	}

	if !errors.Is(err, cache.ErrCacheMiss) {
		// Real error, not just cache miss
		h.logger.Error("Cache error", "error", err)
	}

	h.metrics.PageCache.WithLabelValues(kind, "miss").Inc()

	return nil, false
}

func (h *BlogHandler) store(key string, content []byte) {
	if h.cacheTTL <= 0 {
		return
	}

	// Use background context for caching to avoid cancellation
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.cache.Set(ctx, key, content, h.cacheTTL); err != nil {
		h.logger.Error("Failed to cache content", "key", key, "error", err)
	}
}

// session resolves the listing session named by the request, falling back to
// the one remembered by the cookie when the request names none
func (h *BlogHandler) session(r *http.Request) (string, *listing.Session, bool) {
	id := r.FormValue(sessionParam)

	if id == "" {
		cookie, err := h.cookies.Get(r, sessionCookie)

		if err != nil {
			h.logger.Debug("Invalid session cookie", "error", err)
			return "", nil, false
		}

		var ok bool

		if id, ok = cookie.Values[sessionIDKey].(string); !ok {
			return "", nil, false
		}
	}

	session, ok := h.sessions.Get(id)

	return id, session, ok
}

func (h *BlogHandler) saveSession(w http.ResponseWriter, r *http.Request, id string) error {
	// An invalid cookie still yields a new session to write over it.
	cookie, _ := h.cookies.New(r, sessionCookie)
	cookie.Values[sessionIDKey] = id

	return cookie.Save(r, w)
}

func (h *BlogHandler) renderListing(w http.ResponseWriter, l *locale.Locale, id string, session *listing.Session, notice string, status int) {
	state := session.Snapshot()

	content, err := h.renderer.Listing(l, page.ListingData{
		Items:   listing.Items(state.Results, l),
		HasMore: state.NextPage != "",
		Session: id,
		Notice:  notice,
	})

	if err != nil {
		h.handleError(w, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	h.writeHTML(w, content, status)
}

func (h *BlogHandler) renderLoading(w http.ResponseWriter, l *locale.Locale) {
	content, err := h.renderer.Loading(l, loadingRefresh)

	if err != nil {
		h.handleError(w, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	h.writeHTML(w, content, http.StatusAccepted)
}

// renderError renders the page matching err
func (h *BlogHandler) renderError(w http.ResponseWriter, l *locale.Locale, err error) {
	if errors.Is(err, entity.ErrPending) {
		h.renderLoading(w, l)
		return
	}

	status := statusCode(err)

	var (
		content   []byte
		renderErr error
	)

	switch status {
	case http.StatusNotFound:
		content, renderErr = h.renderer.NotFound(l)
	case http.StatusServiceUnavailable:
		h.logger.Error("Content service error", "error", err)
		content, renderErr = h.renderer.Error(l, l.Messages.Unavailable)
	default:
		h.logger.Error("Request error", "error", err, "status", status)
		content, renderErr = h.renderer.Error(l, http.StatusText(status))
	}

	if renderErr != nil {
		h.handleError(w, renderErr, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	h.writeHTML(w, content, status)
}

// serveContent sends cacheable content to the client with appropriate headers
func (h *BlogHandler) serveContent(w http.ResponseWriter, content []byte, contentType string, status int) {
	w.Header().Set("Content-Type", contentType+"; charset=utf-8")

	if h.cacheTTL > 0 {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(h.cacheTTL.Seconds())))
	} else {
		w.Header().Set("Cache-Control", "no-cache")
	}

	w.WriteHeader(status)

	if _, err := w.Write(content); err != nil {
		h.logger.Error("Failed to write response", "error", err)
	}
}

func (h *BlogHandler) writeHTML(w http.ResponseWriter, content []byte, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if _, err := w.Write(content); err != nil {
		h.logger.Error("Failed to write response", "error", err)
	}
}

// handleError responds with an error message
func (h *BlogHandler) handleError(w http.ResponseWriter, err error, statusCode int) {
	h.logger.Error("Request error", "error", err, "status", statusCode)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	message := err.Error()

	// Server side failures may carry details of upstream requests.
	if statusCode >= http.StatusInternalServerError {
		message = http.StatusText(statusCode)
	}

	response := map[string]string{"error": message}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		handleBadErrorResponse(err, response)
	}
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrPending):
		return http.StatusAccepted
	case errors.Is(err, entity.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, listing.ErrLoadInFlight):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func feedContentType(format string) string {
	switch format {
	case entity.FormatRSS:
		return "application/rss+xml"
	case entity.FormatAtom:
		return "application/atom+xml"
	default:
		return "application/xml"
	}
}

// sessionSecret returns the configured cookie signing key or a random one.
// A random key invalidates listing cookies on restart, which only resets pagination.
func sessionSecret(configured string) ([]byte, error) {
	if configured != "" {
		return []byte(configured), nil
	}

	key := make([]byte, 32)

	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("could not generate session secret: %w", err)
	}

	app.Logger().Warn("session.secret is not set, using a random key")

	return key, nil
}

func handleBadErrorResponse(err error, resp any) {
	app.Logger().Error(
		"failed to encode an error response",
		"error", err,
		"response", resp,
	)
}
