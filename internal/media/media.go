// Package media provides the image store used for post images and avatars.
// Stores are injected into services so tests can substitute a fake.
package media

import (
	"context"
	"net/http"
	"strings"
)

// MaxUploadSize is the server-enforced limit for a single image upload.
const MaxUploadSize = 5 * 1024 * 1024

// Asset is the result of a successful upload: a public URL for serving and a
// deletion handle for later removal.
type Asset struct {
	URL      string
	PublicID string
}

// Store uploads image binaries and deletes them by handle. Calls are
// synchronous; callers decide whether a failure aborts the request or is
// swallowed as best-effort cleanup.
type Store interface {
	Upload(ctx context.Context, content []byte, contentType, folder string) (*Asset, error)
	Delete(ctx context.Context, publicID string) error
}

// DetectImage sniffs the content and reports the detected media type and
// whether it is an image. The client-declared content type is not trusted.
func DetectImage(content []byte) (string, bool) {
	detected := http.DetectContentType(content)
	return detected, strings.HasPrefix(detected, "image/")
}
