// Package postgres provides the Postgres-backed product, page, and user store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/reddit-outreach/internal/outreach"
	"github.com/JakeFAU/reddit-outreach/internal/redditurl"
)

const uniqueViolation = "23505"

const (
	productColumns = "id, name, created_at, updated_at"
	pageColumns    = "id, product_id, url, subreddit, scraped_html, scraped_text, status, scraped_at, created_at, updated_at"
	userColumns    = "id, page_id, username, profile_url, reason_text, extracted_at"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type queryCloser interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store implements outreach.Store on top of a pgx pool.
type Store struct {
	pool queryCloser
	now  func() time.Time
}

var _ outreach.Store = (*Store)(nil)

// NewStore connects to Postgres using the provided config.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool, now: utcNow}, nil
}

// NewStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewStoreWithPool(pool queryCloser, clock outreach.Clock) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	now := utcNow
	if clock != nil {
		now = clock.Now
	}
	return &Store{pool: pool, now: now}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// GetOrCreateProduct returns the product with the trimmed name, creating it
// when missing. The boolean reports whether this call created the row.
func (s *Store) GetOrCreateProduct(ctx context.Context, name string) (outreach.Product, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return outreach.Product{}, false, outreach.ErrInvalidProduct
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO products (name, created_at, updated_at) VALUES ($1, $2, $2)
		 ON CONFLICT (name) DO NOTHING
		 RETURNING `+productColumns,
		name, s.now())
	product, err := scanProduct(row)
	if err == nil {
		return product, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return outreach.Product{}, false, fmt.Errorf("insert product: %w", err)
	}
	product, err = s.GetProductByName(ctx, name)
	if err != nil {
		return outreach.Product{}, false, err
	}
	return product, false, nil
}

// GetProductByName looks a product up by exact (trimmed) name.
func (s *Store) GetProductByName(ctx context.Context, name string) (outreach.Product, error) {
	name = strings.TrimSpace(name)
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE name = $1`, name)
	product, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return outreach.Product{}, fmt.Errorf("product %q: %w", name, outreach.ErrNotFound)
	}
	if err != nil {
		return outreach.Product{}, fmt.Errorf("select product: %w", err)
	}
	return product, nil
}

// ListProducts returns every product, newest first.
func (s *Store) ListProducts(ctx context.Context) ([]outreach.Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	var products []outreach.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// SavePage normalizes the URL and get-or-creates the (product, url) row.
// When the row already existed and the input carries HTML, the stored
// content and status are overwritten in place.
func (s *Store) SavePage(ctx context.Context, in outreach.PageInput) (outreach.Page, bool, error) {
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

	page, err := s.selectPage(ctx, in.ProductID, canonical)
	switch {
	case errors.Is(err, outreach.ErrNotFound):
		page, err = s.insertPage(ctx, in.ProductID, canonical, in.HTML, in.Text, status)
		if err == nil {
			return page, true, nil
		}
		if !errors.Is(err, outreach.ErrConflict) {
			return outreach.Page{}, false, err
		}
		// Lost the insert race; the winner's row is the one to update.
		page, err = s.selectPage(ctx, in.ProductID, canonical)
		if err != nil {
			return outreach.Page{}, false, err
		}
	case err != nil:
		return outreach.Page{}, false, err
	}

	if in.HTML == "" {
		return page, false, nil
	}
	now := s.now()
	row := s.pool.QueryRow(ctx,
		`UPDATE product_pages
		 SET scraped_html = $2, scraped_text = $3, status = $4,
		     scraped_at = COALESCE($5::timestamptz, scraped_at), updated_at = $6
		 WHERE id = $1
		 RETURNING `+pageColumns,
		page.ID, in.HTML, in.Text, string(status), scrapedAt(status, now), now)
	page, err = scanPage(row)
	if err != nil {
		return outreach.Page{}, false, fmt.Errorf("update page: %w", err)
	}
	return page, false, nil
}

func (s *Store) selectPage(ctx context.Context, productID int64, url string) (outreach.Page, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pageColumns+` FROM product_pages WHERE product_id = $1 AND url = $2`,
		productID, url)
	page, err := scanPage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return outreach.Page{}, fmt.Errorf("page %q: %w", url, outreach.ErrNotFound)
	}
	if err != nil {
		return outreach.Page{}, fmt.Errorf("select page: %w", err)
	}
	return page, nil
}

func (s *Store) insertPage(
	ctx context.Context,
	productID int64,
	url, html, text string,
	status outreach.PageStatus,
) (outreach.Page, error) {
	now := s.now()
	row := s.pool.QueryRow(ctx,
		`INSERT INTO product_pages
		 (product_id, url, subreddit, scraped_html, scraped_text, status, scraped_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		 RETURNING `+pageColumns,
		productID, url, redditurl.Subreddit(url), html, text, string(status), scrapedAt(status, now), now)
	page, err := scanPage(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return outreach.Page{}, outreach.ErrConflict
		}
		return outreach.Page{}, fmt.Errorf("insert page: %w", err)
	}
	return page, nil
}

// UpdatePageStatus changes a page's status, stamping scraped_at when the new
// status is scraped.
func (s *Store) UpdatePageStatus(ctx context.Context, pageID int64, status outreach.PageStatus) (outreach.Page, error) {
	if !status.Valid() {
		return outreach.Page{}, fmt.Errorf("update page status: unknown status %q", status)
	}
	now := s.now()
	row := s.pool.QueryRow(ctx,
		`UPDATE product_pages
		 SET status = $2, scraped_at = COALESCE($3::timestamptz, scraped_at), updated_at = $4
		 WHERE id = $1
		 RETURNING `+pageColumns,
		pageID, string(status), scrapedAt(status, now), now)
	page, err := scanPage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return outreach.Page{}, fmt.Errorf("page %d: %w", pageID, outreach.ErrNotFound)
	}
	if err != nil {
		return outreach.Page{}, fmt.Errorf("update page status: %w", err)
	}
	return page, nil
}

// GetPageByURL finds a page by the URL as given, falling back to its
// canonical form.
func (s *Store) GetPageByURL(ctx context.Context, productID int64, url string) (outreach.Page, error) {
	candidates := []string{url}
	if canonical := redditurl.Normalize(url); canonical != "" && canonical != url {
		candidates = append(candidates, canonical)
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+pageColumns+` FROM product_pages
		 WHERE product_id = $1 AND url = ANY($2)
		 ORDER BY url = $3 DESC
		 LIMIT 1`,
		productID, candidates, url)
	page, err := scanPage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return outreach.Page{}, fmt.Errorf("page %q: %w", url, outreach.ErrNotFound)
	}
	if err != nil {
		return outreach.Page{}, fmt.Errorf("select page: %w", err)
	}
	return page, nil
}

// ListPages returns every page saved for the product, most recently scraped first.
func (s *Store) ListPages(ctx context.Context, productID int64) ([]outreach.Page, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pageColumns+` FROM product_pages
		 WHERE product_id = $1
		 ORDER BY scraped_at DESC NULLS LAST, id`,
		productID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return collectPages(rows)
}

// ListPagesByStatus returns the product's pages in the given status.
func (s *Store) ListPagesByStatus(
	ctx context.Context,
	productID int64,
	status outreach.PageStatus,
) ([]outreach.Page, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pageColumns+` FROM product_pages
		 WHERE product_id = $1 AND status = $2
		 ORDER BY scraped_at DESC NULLS LAST, id`,
		productID, string(status))
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return collectPages(rows)
}

// UpsertUsers stores the candidates against the page, updating the profile
// and reason of users already linked to it. It returns how many rows were
// newly created. Candidates with a blank username are skipped.
func (s *Store) UpsertUsers(ctx context.Context, pageID int64, users []outreach.UserCandidate) (int, error) {
	created := 0
	for _, user := range users {
		username := strings.TrimSpace(user.Username)
		if username == "" {
			continue
		}
		var inserted bool
		err := s.pool.QueryRow(ctx,
			`INSERT INTO product_users (page_id, username, profile_url, reason_text, extracted_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (page_id, username) DO UPDATE
			 SET profile_url = EXCLUDED.profile_url, reason_text = EXCLUDED.reason_text
			 RETURNING (xmax = 0)`,
			pageID, username, user.ProfileURL, user.ReasonText, s.now()).Scan(&inserted)
		if err != nil {
			return created, fmt.Errorf("upsert user %q: %w", username, err)
		}
		if inserted {
			created++
		}
	}
	return created, nil
}

// ListUsers returns the users linked to a page, newest first.
func (s *Store) ListUsers(ctx context.Context, pageID int64) ([]outreach.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` FROM product_users WHERE page_id = $1 ORDER BY extracted_at DESC, id`,
		pageID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var users []outreach.User
	for rows.Next() {
		var u outreach.User
		if err := rows.Scan(&u.ID, &u.PageID, &u.Username, &u.ProfileURL, &u.ReasonText, &u.ExtractedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func scanProduct(row pgx.Row) (outreach.Product, error) {
	var p outreach.Product
	err := row.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func scanPage(row pgx.Row) (outreach.Page, error) {
	var (
		p      outreach.Page
		status string
	)
	err := row.Scan(
		&p.ID, &p.ProductID, &p.URL, &p.Subreddit, &p.HTML, &p.Text,
		&status, &p.ScrapedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	p.Status = outreach.PageStatus(status)
	return p, err
}

func collectPages(rows pgx.Rows) ([]outreach.Page, error) {
	defer rows.Close()
	var pages []outreach.Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return pages, nil
}

func scrapedAt(status outreach.PageStatus, now time.Time) *time.Time {
	if status != outreach.PageStatusScraped {
		return nil
	}
	return &now
}

func utcNow() time.Time {
	return time.Now().UTC()
}
