// internal/navigation/deeplink.go
package navigation

import (
	"regexp"
	"strings"

	"github.com/javajoker/duka-backend/internal/models"
)

// Each id runs up to the next '/', '?', '#' or '&'.
var (
	pathPattern  = regexp.MustCompile(`/p/([^/?#&]+)`)
	queryPattern = regexp.MustCompile(`[?&]p=([^/?#&]+)`)
	hashPattern  = regexp.MustCompile(`#/p/([^/?#&]+)`)
)

// ResolveProductID extracts a product id from a shared link. Patterns are
// tried in order: path "/p/<id>", query "p=<id>", hash "#/p/<id>". It never
// fails; anything unrecognised yields ok == false.
func ResolveProductID(rawURL string) (id string, ok bool) {
	if rawURL == "" {
		return "", false
	}

	// The path pattern only looks at the path, so a hash route does not
	// shadow an explicit query parameter.
	path := rawURL
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if m := pathPattern.FindStringSubmatch(path); m != nil {
		return m[1], true
	}
	if m := queryPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1], true
	}
	if m := hashPattern.FindStringSubmatch(rawURL); m != nil {
		return m[1], true
	}
	return "", false
}

// Catalog is the read side of the product catalog the resolver checks
// candidates against.
type Catalog interface {
	Loading() bool
	Lookup(id models.ProductID) (models.Product, bool)
}

// Match resolves rawURL and applies the catalog policy: an id the catalog
// does not hold still matches while the catalog is loading, and stops
// matching once loading has finished.
func Match(rawURL string, catalog Catalog) (string, bool) {
	id, ok := ResolveProductID(rawURL)
	if !ok {
		return "", false
	}
	if catalog == nil || catalog.Loading() {
		return id, true
	}
	if _, found := catalog.Lookup(models.ProductID(id)); found {
		return id, true
	}
	return "", false
}

// ShareURL builds the canonical link for a product.
func ShareURL(baseURL string, id models.ProductID) string {
	return strings.TrimRight(baseURL, "/") + "/p/" + string(id)
}
