// Package extract pulls plain text and links out of HTML without any
// site-specific selectors.
package extract

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Link is an outbound hyperlink found in a page
type Link struct {
	URL  string
	Host string
	Text string
}

// Links returns the http(s) links of an HTML document, resolved against
// sourceURL and deduplicated in document order.
func Links(body []byte, sourceURL string) ([]Link, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(sourceURL)
	if err != nil {
		return nil, err
	}

	var links []Link
	seen := make(map[string]bool)
	var walk func(*html.Node)

	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			href := strings.TrimSpace(attr(n, "href"))
			if resolved := resolveURL(baseURL, href); resolved != "" && !seen[resolved] {
				seen[resolved] = true
				host := ""
				if parsed, err := url.Parse(resolved); err == nil {
					host = parsed.Host
				}
				links = append(links, Link{URL: resolved, Host: host, Text: nodeText(n)})
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return links, nil
}

// resolveURL resolves a relative URL against a base URL
func resolveURL(base *url.URL, href string) string {
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	if strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}

	resolved := base.ResolveReference(parsed)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	resolved.Fragment = ""
	return resolved.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
