package graph

import (
	"net/url"
	"strings"
)

// NormalizeURL reduces a page URL to the form used to match link endpoints
// to items: query and fragment dropped, scheme and host lowercased, and a
// trailing slash removed from any path but the root. Unparseable input is
// returned trimmed.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}

	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + path
}

// urlIndex resolves URLs to node IDs.
type urlIndex struct {
	raw        map[string]string
	normalized map[string]string
}

func newURLIndex(nodes []Node) *urlIndex {
	idx := &urlIndex{
		raw:        make(map[string]string, len(nodes)),
		normalized: make(map[string]string, len(nodes)),
	}
	// Nodes arrive in ID order, so the lowest ID wins a shared URL.
	for _, n := range nodes {
		if n.URL == "" {
			continue
		}
		if _, ok := idx.raw[n.URL]; !ok {
			idx.raw[n.URL] = n.ID
		}
		norm := NormalizeURL(n.URL)
		if _, ok := idx.normalized[norm]; !ok {
			idx.normalized[norm] = n.ID
		}
	}
	return idx
}

// lookup tries the URL as given, then its normalized form.
func (idx *urlIndex) lookup(u string) (string, bool) {
	if id, ok := idx.raw[u]; ok {
		return id, true
	}
	id, ok := idx.normalized[NormalizeURL(u)]
	return id, ok
}
