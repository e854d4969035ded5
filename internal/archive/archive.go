// Package archive writes the raw HTML of persisted pages to a blob store.
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/JakeFAU/reddit-outreach/internal/outreach"
)

// DefaultPrefix is used when no prefix is configured.
const DefaultPrefix = "pages"

const contentType = "text/html; charset=utf-8"

// Archiver lays pages out as <prefix>/<product-slug>/<sha256(url)>.html.
type Archiver struct {
	blobs  outreach.BlobStore
	prefix string
}

// New returns an Archiver writing to blobs under prefix.
func New(blobs outreach.BlobStore, prefix string) *Archiver {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Archiver{blobs: blobs, prefix: prefix}
}

// Path returns the object path for a page URL.
func (a *Archiver) Path(product, url string) string {
	sum := sha256.Sum256([]byte(url))
	return path.Join(a.prefix, Slug(product), hex.EncodeToString(sum[:])+".html")
}

// Save writes the page HTML and returns the object URI.
func (a *Archiver) Save(ctx context.Context, product string, page outreach.Page) (string, error) {
	if page.HTML == "" {
		return "", fmt.Errorf("archive %s: page has no html", page.URL)
	}
	uri, err := a.blobs.PutObject(ctx, a.Path(product, page.URL), contentType, strings.NewReader(page.HTML))
	if err != nil {
		return "", fmt.Errorf("archive %s: %w", page.URL, err)
	}
	return uri, nil
}

// Slug lowercases name and collapses every run of non-alphanumerics into "-".
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return "product"
	}
	return slug
}
