package redditurl

import (
	"regexp"
	"strings"
)

const trailingPunct = ".,;!?)"

// Paths stop at whitespace, ")" and "]" so markdown link syntax is never
// absorbed. Bare mentions must start at a host boundary; the boundary
// character is consumed, so the mention itself is submatch 1.
var (
	schemePattern = regexp.MustCompile(`https?://(?:[a-z]+\.)?reddit\.com/[^\s)\]]+`)
	shortPattern  = regexp.MustCompile(`https?://redd\.it/[^\s)\]]+`)
	barePattern   = regexp.MustCompile(`(?:^|[^A-Za-z0-9.-])((?:[a-z]+\.)?reddit\.com/[^\s)\]]+)`)
)

// Extract pulls Reddit URLs out of free-form text. Fully qualified links
// come first, then short links, then bare host/path mentions rewritten to
// https. Duplicates are removed by exact string equality, keeping first-seen
// order.
func Extract(text string) []string {
	var (
		out  []string
		seen = make(map[string]struct{})
	)
	add := func(candidate string) {
		candidate = strings.TrimRight(candidate, trailingPunct)
		if candidate == "" {
			return
		}
		if _, ok := seen[candidate]; ok {
			return
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}

	for _, match := range schemePattern.FindAllString(text, -1) {
		add(match)
	}
	for _, match := range shortPattern.FindAllString(text, -1) {
		add(match)
	}
	for _, loc := range barePattern.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[2], loc[3]
		// Skip the host portion of a link that already carried a scheme.
		if strings.HasSuffix(text[:start], "//") {
			continue
		}
		match := strings.TrimRight(text[start:end], trailingPunct)
		if match == "" {
			continue
		}
		add("https://" + match)
	}
	return out
}
