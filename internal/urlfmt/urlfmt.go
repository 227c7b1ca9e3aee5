// Package urlfmt turns raw URLs into short display strings.
package urlfmt

import (
	"errors"
	"net/url"
	"strings"
)

// Separator joins breadcrumb parts.
const Separator = " › "

// MaxSegments is the number of path segments kept in a breadcrumb.
const MaxSegments = 4

// Hostname returns the hostname of u, u itself if it does not parse,
// or "Invalid URL" for an empty string.
func Hostname(u string) string {
	if u == "" {
		return "Invalid URL"
	}
	parsed, err := parseAbsolute(u)
	if err != nil {
		return u
	}
	return parsed.Hostname()
}

// Breadcrumb shortens u to "scheme://host › seg › seg" with at most
// MaxSegments path segments. Root URLs are returned as given and
// unparseable input is returned with one trailing slash removed.
func Breadcrumb(u string) string {
	stripped := strings.TrimSuffix(u, "/")

	parsed, err := parseAbsolute(stripped)
	if err != nil {
		return stripped
	}

	var segments []string
	for _, s := range strings.Split(pathOf(parsed), "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 {
		return u
	}
	if len(segments) > MaxSegments {
		segments = segments[:MaxSegments]
	}

	var b strings.Builder
	b.WriteString(parsed.Scheme)
	b.WriteString("://")
	b.WriteString(parsed.Hostname())
	for _, s := range segments {
		b.WriteString(Separator)
		b.WriteString(s)
	}
	return b.String()
}

// parseAbsolute accepts any URL with a scheme. file:///x and about:config
// parse with an empty hostname.
func parseAbsolute(u string) (*url.URL, error) {
	parsed, err := url.Parse(u)
	if err != nil {
		return nil, err
	}
	if parsed.Scheme == "" {
		return nil, errNotAbsolute
	}
	return parsed, nil
}

// pathOf returns the path of u, using the opaque part for URLs such as
// about:config that have no hierarchical path.
func pathOf(u *url.URL) string {
	if u.Path == "" && u.Opaque != "" {
		return u.Opaque
	}
	return u.EscapedPath()
}

var errNotAbsolute = errors.New("not an absolute URL")
