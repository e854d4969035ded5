package outreach

import (
	"context"
	"io"
	"time"
)

// ProductStore persists products.
type ProductStore interface {
	GetOrCreateProduct(ctx context.Context, name string) (Product, bool, error)
	GetProductByName(ctx context.Context, name string) (Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
}

// PageStore persists discovered pages. SavePage normalizes the URL and
// guarantees at most one row per (product, canonical URL).
type PageStore interface {
	SavePage(ctx context.Context, in PageInput) (Page, bool, error)
	UpdatePageStatus(ctx context.Context, pageID int64, status PageStatus) (Page, error)
	GetPageByURL(ctx context.Context, productID int64, url string) (Page, error)
	ListPages(ctx context.Context, productID int64) ([]Page, error)
	ListPagesByStatus(ctx context.Context, productID int64, status PageStatus) ([]Page, error)
}

// UserStore persists extracted users keyed by (page, username).
type UserStore interface {
	UpsertUsers(ctx context.Context, pageID int64, users []UserCandidate) (int, error)
	ListUsers(ctx context.Context, pageID int64) ([]User, error)
}

// Store bundles every persistence capability behind one handle.
type Store interface {
	ProductStore
	PageStore
	UserStore
	Close()
}

// Renderer returns rendered HTML for a URL.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// BlobStore writes raw page archives and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes page events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
