package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	_ "image/png" // register PNG decoder
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	masterMaxSize = 2048
	jpegQuality   = 82
	webpQuality   = 70
)

// LocalStore keeps images on the local filesystem, normalized to a JPEG
// master plus a WebP rendition under a content-addressed directory. It backs
// development and test deployments where no hosted media account exists.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates a disk-backed store rooted at dir. Served URLs are
// prefixed with baseURL.
func NewLocalStore(dir, baseURL string) *LocalStore {
	return &LocalStore{dir: dir, baseURL: baseURL}
}

// Dir returns the store's root directory, for static file serving.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Upload validates, decodes and normalizes the image, writes it under a
// content-hash directory and returns the serving URL plus the hash as the
// deletion handle. Re-uploading identical content yields the same asset.
func (s *LocalStore) Upload(ctx context.Context, content []byte, contentType, folder string) (*Asset, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("local media store: empty upload")
	}
	if _, ok := DetectImage(content); !ok {
		return nil, fmt.Errorf("local media store: not an image")
	}

	decoded, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("local media store: decode: %w", err)
	}

	master := resizeToFit(decoded, masterMaxSize, masterMaxSize)

	jpegBytes, err := encodeJPEG(master, jpegQuality)
	if err != nil {
		return nil, fmt.Errorf("local media store: encode jpeg: %w", err)
	}
	webpBytes, err := encodeWebP(master, webpQuality)
	if err != nil {
		return nil, fmt.Errorf("local media store: encode webp: %w", err)
	}

	hash := contentHash(content)
	publicID := hash
	if folder != "" {
		publicID = folder + "/" + hash
	}

	jpegPath := filepath.Join(s.dir, filepath.FromSlash(publicID), "master.jpg")
	webpPath := filepath.Join(s.dir, filepath.FromSlash(publicID), "master.webp")
	if err := writeBytesToFile(jpegPath, jpegBytes); err != nil {
		return nil, fmt.Errorf("local media store: write: %w", err)
	}
	if err := writeBytesToFile(webpPath, webpBytes); err != nil {
		_ = os.Remove(jpegPath)
		return nil, fmt.Errorf("local media store: write: %w", err)
	}

	return &Asset{
		URL:      s.baseURL + "/" + publicID + "/master.jpg",
		PublicID: publicID,
	}, nil
}

// Delete removes the asset directory for the handle. Unknown handles are not
// an error; malformed ones are rejected to prevent path traversal.
func (s *LocalStore) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	if !isValidPublicID(publicID) {
		return fmt.Errorf("local media store: invalid public id %q", publicID)
	}
	return os.RemoveAll(filepath.Join(s.dir, filepath.FromSlash(publicID)))
}

// isValidPublicID accepts "folder/hash" or bare hash handles where the folder
// is a plain lowercase word and the hash is lowercase hex.
func isValidPublicID(id string) bool {
	rest := id
	if i := strings.IndexByte(id, '/'); i >= 0 {
		folder := id[:i]
		rest = id[i+1:]
		if folder == "" {
			return false
		}
		for _, c := range folder {
			if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '_' && c != '-' {
				return false
			}
		}
	}
	if len(rest) == 0 || len(rest) > 128 {
		return false
	}
	for _, c := range rest {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func contentHash(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
