package richtext

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/kennygrant/sanitize"
	"golang.org/x/net/html"
)

var (
	embedTags  = []string{"iframe"}
	embedAttrs = []string{"src", "width", "height", "title", "allow", "allowfullscreen", "frameborder"}
)

// sanitizeEmbed keeps only iframes with https sources from oEmbed markup.
// The returned nodes are detached and can be appended to another tree.
func sanitizeEmbed(raw string) []*html.Node {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	cleaned, err := sanitize.HTMLAllowing(raw, embedTags, embedAttrs)

	if err != nil {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cleaned))

	if err != nil {
		return nil
	}

	doc.Find("iframe").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		u, err := url.Parse(src)

		if err != nil || u.Scheme != "https" || u.Host == "" {
			s.Remove()
		}
	})

	iframes := doc.Find("body iframe").Nodes
	nodes := make([]*html.Node, 0, len(iframes))

	for _, n := range iframes {
		n.Parent.RemoveChild(n)
		nodes = append(nodes, n)
	}

	return nodes
}
