package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	droppedSelector = "head, script, style, noscript, template, svg, img, picture, video, iframe"
	blockSelector   = "p, div, li, ul, ol, tr, table, section, article, header, footer, blockquote, pre, h1, h2, h3, h4, h5, h6"
)

// ExtractText converts HTML to plain text. Links keep their target as
// "[label](href)", images and scripts are dropped, and block elements are
// separated by newlines. Empty input yields "".
func ExtractText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	doc.Find(droppedSelector).Remove()
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		label := collapseSpaces(s.Text())
		switch {
		case href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:"):
			s.SetText(label)
		case label == "":
			s.SetText(href)
		default:
			s.SetText("[" + label + "](" + href + ")")
		}
	})
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find(blockSelector).AppendHtml("\n")

	return tidyLines(doc.Text())
}

func tidyLines(raw string) string {
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = collapseSpaces(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
