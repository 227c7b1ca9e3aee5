// Package extract implements the page metadata extraction routine: the
// JavaScript injected into live pages, and an equivalent that runs over a
// fetched HTML document for hosts that cannot script the page.
package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lotas/tabpreview/internal/types"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Script is the extraction routine injected into a page. It takes no
// arguments and returns {url, title, description} without throwing.
const Script = `() => {
  let description = "";
  try {
    const meta = document.querySelector('meta[name="description"], meta[property="description"]');
    if (meta) {
      description = meta.getAttribute("content") || "";
    }
  } catch (e) {}
  return { url: String(location.href), title: String(document.title || ""), description: description };
}`

// skipPrefixes are URL schemes that have no fetchable document.
var skipPrefixes = []string{"about:", "moz-extension:", "chrome-extension:", "file:", "chrome:", "resource:", "data:", "view-source:"}

// FromHTML runs the extraction routine over an HTML document. pageURL is
// reported as the extraction URL, matching location.href.
func FromHTML(r io.Reader, pageURL string) (*types.Extraction, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	ext := &types.Extraction{URL: pageURL}
	var titleFound, descFound bool

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Title:
				if !titleFound {
					titleFound = true
					ext.Title = collapseSpace(textOf(n))
				}
			case atom.Meta:
				if !descFound && isDescription(n) {
					descFound = true
					ext.Description = attr(n, "content")
				}
			case atom.Svg:
				// An <svg><title> is not the document title.
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return ext, nil
}

// Fetch downloads pageURL and runs FromHTML over the response body.
func Fetch(ctx context.Context, pageURL string) (*types.Extraction, error) {
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(pageURL, prefix) {
			return nil, fmt.Errorf("skipping non-HTTP URL: %s", pageURL)
		}
	}

	client := &http.Client{Timeout: 15 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch %s: HTTP %d", pageURL, resp.StatusCode)
	}

	return FromHTML(io.LimitReader(resp.Body, 8<<20), pageURL)
}

func isDescription(n *html.Node) bool {
	return attr(n, "name") == "description" || attr(n, "property") == "description"
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
