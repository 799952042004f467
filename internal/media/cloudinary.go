package media

import (
	"bytes"
	"context"
	"crypto/sha1" // #nosec G505: SHA-1 is mandated by the Cloudinary signature scheme
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"echofeed/internal/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// CloudinaryStore uploads images to the Cloudinary REST API. It performs no
// retries and no circuit breaking; a failing call surfaces as an error to the
// caller.
type CloudinaryStore struct {
	cloudName string
	apiKey    string
	apiSecret string
	baseURL   string
	client    *http.Client
	now       func() time.Time
}

type cloudinaryUploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewCloudinaryStore creates a store for the given account credentials.
func NewCloudinaryStore(cloudName, apiKey, apiSecret string) *CloudinaryStore {
	return &CloudinaryStore{
		cloudName: cloudName,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   "https://api.cloudinary.com/v1_1",
		client:    http.DefaultClient,
		now:       time.Now,
	}
}

// WithHTTPClient overrides the HTTP client. Intended for tests.
func (s *CloudinaryStore) WithHTTPClient(c *http.Client) *CloudinaryStore {
	s.client = c
	return s
}

// WithBaseURL overrides the API endpoint. Intended for tests.
func (s *CloudinaryStore) WithBaseURL(u string) *CloudinaryStore {
	s.baseURL = strings.TrimRight(u, "/")
	return s
}

// Upload sends the image to the account's upload endpoint and returns the
// hosted URL plus the public ID used for deletion.
func (s *CloudinaryStore) Upload(ctx context.Context, content []byte, contentType, folder string) (*Asset, error) {
	publicID := uuid.NewString()
	params := map[string]string{
		"folder":    folder,
		"public_id": publicID,
		"timestamp": strconv.FormatInt(s.now().Unix(), 10),
	}
	params["signature"] = s.sign(params)
	params["api_key"] = s.apiKey

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range params {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("cloudinary upload: %w", err)
		}
	}
	part, err := w.CreateFormFile("file", "upload")
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/image/upload", s.baseURL, s.cloudName)
	resp, err := s.post(ctx, endpoint, w.FormDataContentType(), &body)
	if err != nil {
		return nil, err
	}
	if resp.SecureURL == "" || resp.PublicID == "" {
		return nil, fmt.Errorf("cloudinary upload: incomplete response (public_id=%q)", resp.PublicID)
	}
	return &Asset{URL: resp.SecureURL, PublicID: resp.PublicID}, nil
}

// Delete destroys the asset with the given public ID. Deleting an unknown
// handle is not an error.
func (s *CloudinaryStore) Delete(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	params := map[string]string{
		"public_id": publicID,
		"timestamp": strconv.FormatInt(s.now().Unix(), 10),
	}
	params["signature"] = s.sign(params)
	params["api_key"] = s.apiKey

	form := make([]string, 0, len(params))
	for k, v := range params {
		form = append(form, k+"="+v)
	}
	endpoint := fmt.Sprintf("%s/%s/image/destroy", s.baseURL, s.cloudName)
	_, err := s.post(ctx, endpoint, "application/x-www-form-urlencoded",
		strings.NewReader(strings.Join(form, "&")))
	return err
}

func (s *CloudinaryStore) post(ctx context.Context, endpoint, contentType string, body io.Reader) (_ *cloudinaryUploadResponse, err error) {
	ctx, span := observability.StartClientSpan(ctx, "cloudinary.post",
		attribute.String("http.url", endpoint),
	)
	defer func() { observability.EndSpan(span, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("cloudinary request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	httpResp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudinary request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	var resp cloudinaryUploadResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("cloudinary response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		msg := resp.Error.Message
		if msg == "" {
			msg = httpResp.Status
		}
		return nil, fmt.Errorf("cloudinary request failed: %s", msg)
	}
	return &resp, nil
}

// sign computes the request signature: the parameters sorted by name, joined
// with '&', with the API secret appended, hashed with SHA-1.
func (s *CloudinaryStore) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	h := sha1.Sum([]byte(strings.Join(pairs, "&") + s.apiSecret)) // #nosec G401
	return hex.EncodeToString(h[:])
}
