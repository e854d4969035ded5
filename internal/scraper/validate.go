package scraper

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	minTextRunes       = 200
	blockWindow        = 800
	shortPageRunes     = 1000
	errorWindow        = 500
	errorMatchesToFail = 2
)

var (
	// ErrEmptyPage is returned for empty HTML.
	ErrEmptyPage = errors.New("empty page")
	// ErrTooShort is returned when the rendered text is too small to be content.
	ErrTooShort = errors.New("page text too short")
	// ErrBlocked is returned for anti-automation block pages.
	ErrBlocked = errors.New("blocked page")
	// ErrErrorPage is returned for short pages that look like error pages.
	ErrErrorPage = errors.New("error page")
)

var blockIndicators = []string{
	"you've been blocked by network security",
	"you have been blocked by network security",
	"support.reddithelp.com",
	"file a ticket",
	"blocked",
}

var errorIndicators = []string{
	"404",
	"page not found",
	"not found",
	"error 404",
	"access denied",
	"forbidden",
}

// Validate reports why fetched HTML is not usable content, or nil when it is.
func Validate(html string) error {
	if html == "" {
		return ErrEmptyPage
	}
	return ValidateText(ExtractText(html))
}

// ValidateText applies the content checks to already extracted text.
func ValidateText(text string) error {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minTextRunes {
		return ErrTooShort
	}

	lower := strings.ToLower(text)
	head := runePrefix(lower, blockWindow)
	for _, indicator := range blockIndicators {
		if strings.Contains(head, indicator) {
			return ErrBlocked
		}
	}

	// Long pages are trusted; a single error phrase on a short page is not enough.
	if utf8.RuneCountInString(text) < shortPageRunes {
		head = runePrefix(lower, errorWindow)
		matches := 0
		for _, indicator := range errorIndicators {
			if strings.Contains(head, indicator) {
				matches++
			}
		}
		if matches >= errorMatchesToFail {
			return ErrErrorPage
		}
	}
	return nil
}

// IsValidPage reports whether html renders to usable content.
func IsValidPage(html string) bool {
	return Validate(html) == nil
}

func runePrefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
