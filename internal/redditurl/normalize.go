// Package redditurl extracts, canonicalizes, and rewrites Reddit URLs.
package redditurl

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	canonicalHost = "www.reddit.com"
	mirrorHost    = "old.reddit.com"
	trackingParam = "utm_"
	unknownSub    = "unknown"
)

// bareHostPrefixes are scheme-less prefixes that get https:// prepended.
var bareHostPrefixes = []string{
	"reddit.com/",
	"www.reddit.com/",
	"old.reddit.com/",
	"new.reddit.com/",
}

var subredditPattern = regexp.MustCompile(`/r/([^/?#]+)`)

// Normalize maps a Reddit URL to the canonical form used as a dedup key.
// It forces https, collapses old/new/apex hosts onto www, drops utm_*
// query parameters, strips trailing slashes from non-root paths, and drops
// fragments. Blank or unparseable input yields "".
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	for _, prefix := range bareHostPrefixes {
		if strings.HasPrefix(lower, prefix) {
			raw = "https://" + raw
			break
		}
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}

	u.Scheme = "https"
	u.Host = canonicalizeHost(strings.ToLower(u.Host))
	u.RawQuery = stripTracking(u.RawQuery)
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""

	escaped := u.EscapedPath()
	if escaped != "/" {
		escaped = strings.TrimRight(escaped, "/")
	}
	path, err := url.PathUnescape(escaped)
	if err != nil {
		return ""
	}
	u.Path = path
	u.RawPath = escaped

	return u.String()
}

// Subreddit returns the community segment following /r/ in the canonical
// form of raw, or "unknown".
func Subreddit(raw string) string {
	normalized := Normalize(raw)
	if normalized == "" {
		return unknownSub
	}
	match := subredditPattern.FindStringSubmatch(normalized)
	if len(match) < 2 {
		return unknownSub
	}
	return match[1]
}

// MirrorURL rewrites www/new/apex Reddit hosts to old.reddit.com, which
// applies lighter anti-automation measures. Other URLs are returned as-is.
func MirrorURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	switch strings.ToLower(u.Host) {
	case "reddit.com", "www.reddit.com", "new.reddit.com":
		u.Host = mirrorHost
		return u.String()
	default:
		return raw
	}
}

func canonicalizeHost(host string) string {
	host = strings.TrimSuffix(host, ":443")
	switch host {
	case "reddit.com", "old.reddit.com", "new.reddit.com":
		return canonicalHost
	default:
		return host
	}
}

// stripTracking removes utm_* pairs while keeping the remaining pairs in
// their original order and encoding.
func stripTracking(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	kept := make([]string, 0, strings.Count(rawQuery, "&")+1)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if strings.HasPrefix(strings.ToLower(key), trackingParam) {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}
