// Package outreach defines the core types shared across the discovery,
// extraction, and persistence subsystems.
package outreach

import (
	"errors"
	"time"
)

// PageStatus represents the lifecycle state of a discovered page.
type PageStatus string

// Page status values persisted in the page store.
const (
	PageStatusPending PageStatus = "pending"
	PageStatusScraped PageStatus = "scraped"
	PageStatusFailed  PageStatus = "failed"
)

// Valid reports whether s is one of the known page statuses.
func (s PageStatus) Valid() bool {
	switch s {
	case PageStatusPending, PageStatusScraped, PageStatusFailed:
		return true
	default:
		return false
	}
}

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict signals a unique-constraint race on insert. Stores recover
	// from it internally by rereading the winning row.
	ErrConflict = errors.New("unique constraint conflict")
	// ErrInvalidURL is returned when a page URL normalizes to nothing.
	ErrInvalidURL = errors.New("invalid page url")
	// ErrInvalidProduct is returned for blank product names.
	ErrInvalidProduct = errors.New("product name is required")
)

// Product is the thing whose discussions are being discovered.
type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Page is one discovered page for one product, keyed by canonical URL.
type Page struct {
	ID        int64      `json:"id"`
	ProductID int64      `json:"product_id"`
	URL       string     `json:"url"`
	Subreddit string     `json:"subreddit"`
	HTML      string     `json:"-"`
	Text      string     `json:"-"`
	Status    PageStatus `json:"status"`
	ScrapedAt *time.Time `json:"scraped_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Content returns the text used for downstream analysis, preferring the
// extracted text over raw HTML.
func (p Page) Content() string {
	if p.Text != "" {
		return p.Text
	}
	return p.HTML
}

// PageInput carries the values for a get-or-create page save.
type PageInput struct {
	ProductID int64
	URL       string
	HTML      string
	Text      string
	Status    PageStatus
}

// User is a platform user linked to the page they were found on.
type User struct {
	ID          int64     `json:"id"`
	PageID      int64     `json:"page_id"`
	Username    string    `json:"username"`
	ProfileURL  string    `json:"profile_url"`
	ReasonText  string    `json:"reason_text"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// UserCandidate is a user identified by extraction but not yet persisted.
type UserCandidate struct {
	Username   string `json:"username"`
	ProfileURL string `json:"profile_url"`
	ReasonText string `json:"reason_text"`
}

// DiscoveryResult summarizes one workflow run.
type DiscoveryResult struct {
	RunID           string   `json:"run_id"`
	Product         Product  `json:"product"`
	URLsFound       int      `json:"urls_found"`
	PagesScraped    int      `json:"pages_scraped"`
	UsersExtracted  int      `json:"users_extracted"`
	Pages           []Page   `json:"pages"`
	FailedProviders []string `json:"failed_providers,omitempty"`
	Success         bool     `json:"success"`
	Message         string   `json:"message"`
}

// PageEvent is published after a page is persisted.
type PageEvent struct {
	RunID      string     `json:"run_id"`
	Product    string     `json:"product"`
	URL        string     `json:"url"`
	Subreddit  string     `json:"subreddit"`
	Status     PageStatus `json:"status"`
	Confidence float64    `json:"confidence"`
	Timestamp  time.Time  `json:"timestamp"`
}
