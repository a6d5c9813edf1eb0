package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/archdesk/archdesk/internal/tools"
)

// DefaultSearchURL is DuckDuckGo's HTML endpoint, which needs no API key.
const DefaultSearchURL = "https://html.duckduckgo.com/html/"

const (
	maxPageBytes = 1 << 20
	maxPageText  = 8000
	userAgent    = "archdesk/1.0 (+https://github.com/archdesk/archdesk)"
)

type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

type Page struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

type Web struct {
	client    *http.Client
	searchURL string
}

func (w *Web) Execute(ctx context.Context, def tools.Definition, in tools.Input) (tools.Result, error) {
	switch in := in.(type) {
	case *tools.WebSearchInput:
		results, err := w.search(ctx, in.Query, in.MaxResults)
		if err != nil {
			return tools.Result{}, err
		}
		return tools.OK(fmt.Sprintf("Found %d result(s) for %q.", len(results), in.Query), results), nil

	case *tools.ScrapeInput:
		page, err := w.scrape(ctx, in.URL)
		if err != nil {
			return tools.Result{}, err
		}
		return tools.OK(fmt.Sprintf("Read %s.", page.URL), page), nil
	}
	return tools.Result{}, unexpectedInput(def, in)
}

func (w *Web) fetch(ctx context.Context, rawURL string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}
	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

func (w *Web) search(ctx context.Context, query string, max int) ([]SearchResult, error) {
	u, err := url.Parse(w.searchURL)
	if err != nil {
		return nil, fmt.Errorf("search url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	doc, err := w.fetch(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return parseSearchResults(doc, max), nil
}

// parseSearchResults reads DuckDuckGo's HTML layout: one element with class
// "result" per hit, holding a "result__a" link and a "result__snippet".
func parseSearchResults(doc *html.Node, max int) []SearchResult {
	var results []SearchResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= max {
			return
		}
		if n.Type == html.ElementNode && hasClass(n, "result") {
			var r SearchResult
			visit(n, func(c *html.Node) {
				switch {
				case c.Data == "a" && hasClass(c, "result__a"):
					r.URL = cleanResultURL(attr(c, "href"))
					r.Title = textContent(c)
				case hasClass(c, "result__snippet"):
					r.Snippet = textContent(c)
				}
			})
			if r.URL != "" && r.Title != "" {
				results = append(results, r)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results
}

// cleanResultURL unwraps DuckDuckGo redirect links.
func cleanResultURL(href string) string {
	if !strings.Contains(href, "uddg=") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func (w *Web) scrape(ctx context.Context, rawURL string) (Page, error) {
	doc, err := w.fetch(ctx, rawURL)
	if err != nil {
		return Page{}, err
	}
	page := Page{URL: rawURL}
	var body *html.Node
	visit(doc, func(n *html.Node) {
		switch n.Data {
		case "title":
			if page.Title == "" {
				page.Title = textContent(n)
			}
		case "body":
			if body == nil {
				body = n
			}
		}
	})
	if body == nil {
		body = doc
	}
	text := readableText(body)
	if len(text) > maxPageText {
		text = text[:maxPageText] + "\n[truncated]"
	}
	page.Text = text
	return page, nil
}

var skipElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "nav": true,
	"header": true, "footer": true, "svg": true, "form": true,
}

var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "li": true, "br": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "tr": true,
}

// readableText flattens visible text, one line per block element.
func readableText(root *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
					b.WriteByte(' ')
				}
				b.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
	}
	walk(root)
	return strings.TrimSpace(b.String())
}

func visit(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		visit(c, fn)
	}
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}
