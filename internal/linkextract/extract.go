// Package linkextract pulls hyperlinks out of crawled HTML so they can be
// stored as graph edges.
package linkextract

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Link is an anchor found in a page.
type Link struct {
	// Href is the resolved, normalized destination.
	Href     string `json:"href"`
	Anchor   string `json:"anchor"`
	Rel      string `json:"rel,omitempty"`
	Nofollow bool   `json:"nofollow"`
	Internal bool   `json:"internal"`
}

// Options tunes extraction.
type Options struct {
	// InternalDomains are extra hosts counted as internal besides the
	// page's own host.
	InternalDomains []string
	// UGCSponsoredNofollow treats rel="ugc" and rel="sponsored" like
	// rel="nofollow".
	UGCSponsoredNofollow bool
	// Dedupe keeps only the first link per normalized href.
	Dedupe bool
}

// DefaultOptions returns the extraction defaults.
func DefaultOptions() Options {
	return Options{UGCSponsoredNofollow: true, Dedupe: true}
}

// Extract parses r and returns its http(s) links in document order.
// Relative hrefs are resolved against pageURL when it is set.
func Extract(pageURL string, r io.Reader, opts Options) ([]Link, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var base *url.URL
	internal := make(map[string]bool, len(opts.InternalDomains)+1)
	for _, d := range opts.InternalDomains {
		internal[strings.ToLower(d)] = true
	}
	if pageURL != "" {
		if base, err = url.Parse(pageURL); err == nil && base.Host != "" {
			internal[strings.ToLower(base.Host)] = true
		} else {
			base = nil
		}
	}

	seen := make(map[string]bool)
	out := make([]Link, 0)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if l, ok := anchor(n, base, internal, opts); ok {
				if !opts.Dedupe || !seen[l.Href] {
					seen[l.Href] = true
					out = append(out, l)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return out, nil
}

func anchor(n *html.Node, base *url.URL, internal map[string]bool, opts Options) (Link, bool) {
	var href, rel string
	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "href":
			href = strings.TrimSpace(attr.Val)
		case "rel":
			rel = strings.TrimSpace(attr.Val)
		}
	}
	if href == "" {
		return Link{}, false
	}

	u, err := url.Parse(href)
	if err != nil {
		return Link{}, false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	normalized := Normalize(u)
	if normalized.Scheme != "http" && normalized.Scheme != "https" {
		return Link{}, false
	}

	nofollow := false
	for _, tok := range strings.Fields(strings.ToLower(rel)) {
		switch tok {
		case "nofollow":
			nofollow = true
		case "ugc", "sponsored":
			nofollow = nofollow || opts.UGCSponsoredNofollow
		}
	}

	return Link{
		Href:     normalized.String(),
		Anchor:   strings.Join(strings.Fields(text(n)), " "),
		Rel:      rel,
		Nofollow: nofollow,
		Internal: isInternal(normalized.Host, internal),
	}, true
}

// Normalize returns a copy of u with scheme and host lowercased, default
// ports stripped, the fragment dropped and an empty path set to "/".
// The query is kept.
func Normalize(u *url.URL) *url.URL {
	out := *u
	out.Scheme = strings.ToLower(out.Scheme)
	out.Host = strings.ToLower(out.Host)
	switch {
	case out.Scheme == "http" && strings.HasSuffix(out.Host, ":80"):
		out.Host = strings.TrimSuffix(out.Host, ":80")
	case out.Scheme == "https" && strings.HasSuffix(out.Host, ":443"):
		out.Host = strings.TrimSuffix(out.Host, ":443")
	}
	out.Fragment = ""
	out.RawFragment = ""
	if out.Path == "" && out.Opaque == "" {
		out.Path = "/"
		out.RawPath = ""
	}
	return &out
}

// isInternal reports whether host is one of the internal hosts or a
// subdomain of one.
func isInternal(host string, internal map[string]bool) bool {
	if host == "" {
		return false
	}
	if internal[host] {
		return true
	}
	for d := range internal {
		if strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
