// Package export renders the whole blog into a directory of static files.
package export

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/nDmitry/spacetraveling/internal/app"
	"github.com/nDmitry/spacetraveling/internal/page"
)

const parallelism = 4

// UIDLister enumerates the identifiers of every post.
type UIDLister interface {
	ListUIDs(ctx context.Context) ([]string, error)
}

// Result summarizes an export.
type Result struct {
	Written []string
	// Skipped holds the paths of posts that are not published yet.
	Skipped []string
}

// Run serves handler on a loopback address, crawls the home page, every
// post and the feeds, and writes the responses under outDir.
// Any page that cannot be fetched fails the whole export.
func Run(ctx context.Context, handler http.Handler, uids UIDLister, outDir string) (*Result, error) {
	logger := app.Logger()

	list, err := uids.ListUIDs(ctx)

	if err != nil {
		return nil, fmt.Errorf("could not list posts: %w", err)
	}

	paths := append([]string{"/", "/feed.xml", "/feed.atom"}, page.AssetPaths()...)
	seen := make(map[string]bool, len(list))

	for _, uid := range list {
		if uid == "" || strings.ContainsAny(uid, `/\`) || !filepath.IsLocal(uid) {
			return nil, fmt.Errorf("post uid %q cannot be used as a path", uid)
		}

		if !seen[uid] {
			seen[uid] = true
			paths = append(paths, "/post/"+uid)
		}
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")

	if err != nil {
		return nil, fmt.Errorf("could not listen on loopback: %w", err)
	}

	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Export server error", "error", err)
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Could not stop export server", "error", err)
		}
	}()

	return crawl(ctx, "http://"+ln.Addr().String(), paths, outDir)
}

func crawl(ctx context.Context, base string, paths []string, outDir string) (*Result, error) {
	logger := app.Logger()

	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.Async(true),
		colly.ParseHTTPErrorResponse(),
		colly.IgnoreRobotsTxt(),
		colly.UserAgent("spacetraveling-export"),
	)

	if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: parallelism}); err != nil {
		return nil, fmt.Errorf("could not configure collector: %w", err)
	}

	var (
		mu     sync.Mutex
		errs   []error
		result = &Result{}
	)

	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()

		errs = append(errs, err)
	}

	c.OnResponse(func(r *colly.Response) {
		urlPath := r.Request.URL.Path

		switch r.StatusCode {
		case http.StatusOK:
		case http.StatusAccepted:
			logger.Warn("Post is not published yet, skipping", "path", urlPath)

			mu.Lock()
			result.Skipped = append(result.Skipped, urlPath)
			mu.Unlock()

			return
		default:
			fail(fmt.Errorf("%s: unexpected status %d", urlPath, r.StatusCode))
			return
		}

		file := filepath.Join(outDir, filePath(urlPath))

		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			fail(fmt.Errorf("could not create directory for %s: %w", urlPath, err))
			return
		}

		if err := r.Save(file); err != nil {
			fail(fmt.Errorf("could not save %s: %w", urlPath, err))
			return
		}

		logger.Debug("Exported page", "path", urlPath, "file", file)

		mu.Lock()
		result.Written = append(result.Written, file)
		mu.Unlock()
	})

	c.OnError(func(r *colly.Response, err error) {
		fail(fmt.Errorf("request error %s: %w", r.Request.URL.Path, err))
	})

	for _, p := range paths {
		if err := c.Visit(base + p); err != nil {
			fail(fmt.Errorf("could not visit %s: %w", p, err))
		}
	}

	c.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return result, nil
}

// filePath maps a URL path to the file serving it from a static host.
// Posts and paths without an extension become directory indexes, other files keep their path.
func filePath(urlPath string) string {
	if !strings.HasPrefix(urlPath, "/post/") && path.Ext(urlPath) != "" {
		return filepath.FromSlash(strings.TrimPrefix(urlPath, "/"))
	}

	return filepath.Join(filepath.FromSlash(strings.Trim(urlPath, "/")), "index.html")
}
