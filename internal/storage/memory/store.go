package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/JakeFAU/reddit-outreach/internal/outreach"
	"github.com/JakeFAU/reddit-outreach/internal/redditurl"
)

type pageKey struct {
	productID int64
	url       string
}

type userKey struct {
	pageID   int64
	username string
}

// Store provides an in-memory outreach.Store for development/testing. It
// enforces the same uniqueness rules as the Postgres schema.
type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	nextID   int64
	products map[string]outreach.Product
	pages    map[int64]outreach.Page
	pageKeys map[pageKey]int64
	users    map[userKey]outreach.User
}

var _ outreach.Store = (*Store)(nil)

// NewStore constructs a Store. A nil clock falls back to UTC wall time.
func NewStore(clock outreach.Clock) *Store {
	now := func() time.Time { return time.Now().UTC() }
	if clock != nil {
		now = clock.Now
	}
	return &Store{
		now:      now,
		products: make(map[string]outreach.Product),
		pages:    make(map[int64]outreach.Page),
		pageKeys: make(map[pageKey]int64),
		users:    make(map[userKey]outreach.User),
	}
}

// Close is a no-op.
func (s *Store) Close() {}

// GetOrCreateProduct returns the product with the trimmed name, creating it when missing.
func (s *Store) GetOrCreateProduct(_ context.Context, name string) (outreach.Product, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return outreach.Product{}, false, outreach.ErrInvalidProduct
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[name]; ok {
		return p, false, nil
	}
	now := s.now()
	s.nextID++
	p := outreach.Product{ID: s.nextID, Name: name, CreatedAt: now, UpdatedAt: now}
	s.products[name] = p
	return p, true, nil
}

// GetProductByName looks a product up by exact (trimmed) name.
func (s *Store) GetProductByName(_ context.Context, name string) (outreach.Product, error) {
	name = strings.TrimSpace(name)
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[name]
	if !ok {
		return outreach.Product{}, fmt.Errorf("product %q: %w", name, outreach.ErrNotFound)
	}
	return p, nil
}

// ListProducts returns every product, newest first.
func (s *Store) ListProducts(_ context.Context) ([]outreach.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]outreach.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// SavePage normalizes the URL and get-or-creates the (product, url) row,
// overwriting content and status of an existing row when HTML is supplied.
func (s *Store) SavePage(_ context.Context, in outreach.PageInput) (outreach.Page, bool, error) {
	canonical := redditurl.Normalize(in.URL)
	if canonical == "" {
		return outreach.Page{}, false, fmt.Errorf("save page %q: %w", in.URL, outreach.ErrInvalidURL)
	}
	status := in.Status
	if status == "" {
		status = outreach.PageStatusPending
	}
	if !status.Valid() {
		return outreach.Page{}, false, fmt.Errorf("save page: unknown status %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	key := pageKey{productID: in.ProductID, url: canonical}
	if id, ok := s.pageKeys[key]; ok {
		page := s.pages[id]
		if in.HTML != "" {
			page.HTML = in.HTML
			page.Text = in.Text
			page.Status = status
			if status == outreach.PageStatusScraped {
				page.ScrapedAt = pointerTime(now)
			}
			page.UpdatedAt = now
			s.pages[id] = page
		}
		return clonePage(page), false, nil
	}

	s.nextID++
	page := outreach.Page{
		ID:        s.nextID,
		ProductID: in.ProductID,
		URL:       canonical,
		Subreddit: redditurl.Subreddit(canonical),
		HTML:      in.HTML,
		Text:      in.Text,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == outreach.PageStatusScraped {
		page.ScrapedAt = pointerTime(now)
	}
	s.pages[page.ID] = page
	s.pageKeys[key] = page.ID
	return clonePage(page), true, nil
}

// UpdatePageStatus changes a page's status, stamping scraped_at for scraped.
func (s *Store) UpdatePageStatus(_ context.Context, pageID int64, status outreach.PageStatus) (outreach.Page, error) {
	if !status.Valid() {
		return outreach.Page{}, fmt.Errorf("update page status: unknown status %q", status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	page, ok := s.pages[pageID]
	if !ok {
		return outreach.Page{}, fmt.Errorf("page %d: %w", pageID, outreach.ErrNotFound)
	}
	now := s.now()
	page.Status = status
	if status == outreach.PageStatusScraped {
		page.ScrapedAt = pointerTime(now)
	}
	page.UpdatedAt = now
	s.pages[pageID] = page
	return clonePage(page), nil
}

// GetPageByURL finds a page by the URL as given, falling back to its canonical form.
func (s *Store) GetPageByURL(_ context.Context, productID int64, url string) (outreach.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.pageKeys[pageKey{productID: productID, url: url}]; ok {
		return clonePage(s.pages[id]), nil
	}
	if canonical := redditurl.Normalize(url); canonical != "" {
		if id, ok := s.pageKeys[pageKey{productID: productID, url: canonical}]; ok {
			return clonePage(s.pages[id]), nil
		}
	}
	return outreach.Page{}, fmt.Errorf("page %q: %w", url, outreach.ErrNotFound)
}

// ListPages returns every page saved for the product, most recently scraped first.
func (s *Store) ListPages(_ context.Context, productID int64) ([]outreach.Page, error) {
	return s.filterPages(func(p outreach.Page) bool { return p.ProductID == productID }), nil
}

// ListPagesByStatus returns the product's pages in the given status.
func (s *Store) ListPagesByStatus(
	_ context.Context,
	productID int64,
	status outreach.PageStatus,
) ([]outreach.Page, error) {
	return s.filterPages(func(p outreach.Page) bool {
		return p.ProductID == productID && p.Status == status
	}), nil
}

func (s *Store) filterPages(keep func(outreach.Page) bool) []outreach.Page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []outreach.Page
	for _, p := range s.pages {
		if keep(p) {
			out = append(out, clonePage(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].ScrapedAt, out[j].ScrapedAt
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// UpsertUsers stores the candidates against the page and returns how many
// rows were newly created. Existing users get their profile and reason updated.
func (s *Store) UpsertUsers(_ context.Context, pageID int64, users []outreach.UserCandidate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pages[pageID]; !ok {
		return 0, fmt.Errorf("page %d: %w", pageID, outreach.ErrNotFound)
	}
	created := 0
	for _, c := range users {
		username := strings.TrimSpace(c.Username)
		if username == "" {
			continue
		}
		key := userKey{pageID: pageID, username: username}
		if existing, ok := s.users[key]; ok {
			existing.ProfileURL = c.ProfileURL
			existing.ReasonText = c.ReasonText
			s.users[key] = existing
			continue
		}
		s.nextID++
		s.users[key] = outreach.User{
			ID:          s.nextID,
			PageID:      pageID,
			Username:    username,
			ProfileURL:  c.ProfileURL,
			ReasonText:  c.ReasonText,
			ExtractedAt: s.now(),
		}
		created++
	}
	return created, nil
}

// ListUsers returns the users linked to a page, newest first.
func (s *Store) ListUsers(_ context.Context, pageID int64) ([]outreach.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []outreach.User
	for key, u := range s.users {
		if key.pageID == pageID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExtractedAt.Equal(out[j].ExtractedAt) {
			return out[i].ExtractedAt.After(out[j].ExtractedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func clonePage(p outreach.Page) outreach.Page {
	if p.ScrapedAt != nil {
		p.ScrapedAt = pointerTime(*p.ScrapedAt)
	}
	return p
}

func pointerTime(t time.Time) *time.Time {
	ts := t
	return &ts
}
