package media

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloudinaryStore_Upload(t *testing.T) {
	t.Parallel()

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "posts", r.FormValue("folder"))
		assert.NotEmpty(t, r.FormValue("signature"))
		assert.Equal(t, "key", r.FormValue("api_key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"secure_url":"https://res.example.com/img.jpg","public_id":"posts/xyz"}`))
	}))
	defer srv.Close()

	store := NewCloudinaryStore("demo", "key", "secret").
		WithBaseURL(srv.URL).
		WithHTTPClient(srv.Client())

	asset, err := store.Upload(context.Background(), []byte{1, 2, 3}, "image/png", "posts")
	require.NoError(t, err)
	assert.Equal(t, "/demo/image/upload", gotPath)
	assert.Equal(t, "https://res.example.com/img.jpg", asset.URL)
	assert.Equal(t, "posts/xyz", asset.PublicID)
}

func TestCloudinaryStore_UploadErrorSurfaces(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid signature"}}`))
	}))
	defer srv.Close()

	store := NewCloudinaryStore("demo", "key", "secret").
		WithBaseURL(srv.URL).
		WithHTTPClient(srv.Client())

	_, err := store.Upload(context.Background(), []byte{1}, "image/png", "posts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid signature")
}

func TestCloudinaryStore_Delete(t *testing.T) {
	t.Parallel()

	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"ok"}`))
	}))
	defer srv.Close()

	store := NewCloudinaryStore("demo", "key", "secret").
		WithBaseURL(srv.URL).
		WithHTTPClient(srv.Client())

	require.NoError(t, store.Delete(context.Background(), "posts/xyz"))
	assert.Equal(t, "/demo/image/destroy", gotPath)
	assert.Contains(t, gotBody, "public_id=posts/xyz")

	// Deleting nothing is a no-op that never reaches the API.
	gotPath = ""
	require.NoError(t, store.Delete(context.Background(), ""))
	assert.Empty(t, gotPath)
}

func TestCloudinaryStore_SignatureIsDeterministic(t *testing.T) {
	t.Parallel()

	store := NewCloudinaryStore("demo", "key", "secret")
	params := map[string]string{
		"public_id": "posts/xyz",
		"timestamp": "1700000000",
	}

	first := store.sign(params)
	second := store.sign(params)
	assert.Equal(t, first, second)
	assert.Len(t, first, 40) // hex-encoded SHA-1
	assert.False(t, strings.ContainsAny(first, "&="))
}
