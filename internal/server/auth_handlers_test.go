package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"echofeed/internal/config"
	"echofeed/internal/media"
	"echofeed/internal/models"
	"echofeed/internal/repository"
	"echofeed/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock of the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// fakeMediaStore satisfies media.Store without touching disk or the network.
type fakeMediaStore struct {
	uploadErr error
	deleteErr error
}

func (f *fakeMediaStore) Upload(_ context.Context, _ []byte, _, _ string) (*media.Asset, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &media.Asset{URL: "/media/test/hash/master.jpg", PublicID: "test/hash"}, nil
}

func (f *fakeMediaStore) Delete(_ context.Context, _ string) error {
	return f.deleteErr
}

func newTestServer(userRepo repository.UserRepository, postRepo repository.PostRepository, commentRepo repository.CommentRepository) *Server {
	s := &Server{
		config: &config.Config{JWTSecret: "test-secret", Env: "test"},
	}
	store := &fakeMediaStore{}
	if userRepo != nil {
		s.userRepo = userRepo
		s.userService = service.NewUserService(userRepo, store)
	}
	if postRepo != nil {
		s.postService = service.NewPostService(postRepo, commentRepo, store)
	}
	return s
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name           string
		body           map[string]string
		mockSetup      func(repo *MockUserRepository)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "Success",
			body: map[string]string{
				"username": "alice",
				"email":    "alice@example.com",
				"password": "pw123456",
			},
			mockSetup: func(repo *MockUserRepository) {
				repo.On("GetByEmail", mock.Anything, "alice@example.com").Return(nil, nil)
				repo.On("GetByUsername", mock.Anything, "alice").Return(nil, nil)
				repo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
					args.Get(1).(*models.User).ID = 1
				}).Return(nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Missing Fields",
			body:           map[string]string{"username": "alice"},
			mockSetup:      func(repo *MockUserRepository) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   models.ErrCodeValidation,
		},
		{
			name: "Duplicate Email",
			body: map[string]string{
				"username": "alice",
				"email":    "taken@example.com",
				"password": "pw123456",
			},
			mockSetup: func(repo *MockUserRepository) {
				repo.On("GetByEmail", mock.Anything, "taken@example.com").
					Return(&models.User{ID: 2}, nil)
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   models.ErrCodeConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.mockSetup(mockRepo)
			s := newTestServer(mockRepo, nil, nil)

			app := fiber.New()
			app.Post("/register", s.Register)

			body, _ := json.Marshal(tt.body)
			req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			raw, _ := io.ReadAll(resp.Body)
			if tt.expectedCode != "" {
				var errResp models.ErrorResponse
				require.NoError(t, json.Unmarshal(raw, &errResp))
				assert.Equal(t, tt.expectedCode, errResp.Code)
			}
			if tt.expectedStatus == http.StatusCreated {
				var payload map[string]any
				require.NoError(t, json.Unmarshal(raw, &payload))
				assert.NotEmpty(t, payload["token"])
				assert.Equal(t, "alice", payload["username"])
				// The password must never leak into the response in any form.
				assert.NotContains(t, payload, "password")
				assert.NotContains(t, string(raw), "pw123456")
			}
		})
	}
}

func TestLogin_IndistinguishableFailures(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw123456"), bcrypt.MinCost)
	require.NoError(t, err)

	mockRepo := new(MockUserRepository)
	mockRepo.On("GetByEmail", mock.Anything, "known@example.com").
		Return(&models.User{ID: 1, Email: "known@example.com", Password: string(hash)}, nil)
	mockRepo.On("GetByEmail", mock.Anything, "unknown@example.com").Return(nil, nil)

	s := newTestServer(mockRepo, nil, nil)
	app := fiber.New()
	app.Post("/login", s.Login)

	do := func(email, password string) (int, string) {
		body, _ := json.Marshal(map[string]string{"email": email, "password": password})
		req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		raw, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(raw)
	}

	wrongPassStatus, wrongPassBody := do("known@example.com", "wrong")
	unknownStatus, unknownBody := do("unknown@example.com", "whatever")

	assert.Equal(t, http.StatusUnauthorized, wrongPassStatus)
	assert.Equal(t, http.StatusUnauthorized, unknownStatus)
	assert.JSONEq(t, wrongPassBody, unknownBody)
}

func TestLogin_Success(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw123456"), bcrypt.MinCost)
	require.NoError(t, err)

	mockRepo := new(MockUserRepository)
	mockRepo.On("GetByEmail", mock.Anything, "known@example.com").
		Return(&models.User{ID: 1, Username: "kay", Email: "known@example.com", Password: string(hash)}, nil)

	s := newTestServer(mockRepo, nil, nil)
	app := fiber.New()
	app.Post("/login", s.Login)

	body, _ := json.Marshal(map[string]string{
		"email":    "Known@Example.com", // mixed case resolves to the stored account
		"password": "pw123456",
	})
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.NotEmpty(t, payload["token"])
	assert.Equal(t, "kay", payload["username"])
	assert.Equal(t, "Login successful", payload["message"])
}

func TestAuthRequired(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockRepo.On("GetByID", mock.Anything, uint(7)).
		Return(&models.User{ID: 7, Username: "kay"}, nil)
	mockRepo.On("GetByID", mock.Anything, uint(8)).
		Return(nil, models.NewNotFoundError("User", 8))
	s := newTestServer(mockRepo, nil, nil)

	app := fiber.New()
	app.Get("/protected", s.AuthRequired(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userID": currentUserID(c)})
	})

	validToken, err := s.generateToken(7, "kay")
	require.NoError(t, err)

	// Well-formed and correctly signed, but the account is gone.
	deletedAccountToken, err := s.generateToken(8, "ghost")
	require.NoError(t, err)

	otherServer := newTestServer(mockRepo, nil, nil)
	otherServer.config.JWTSecret = "a-different-secret"
	forgedToken, err := otherServer.generateToken(7, "kay")
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{name: "valid token", authHeader: "Bearer " + validToken, expectedStatus: http.StatusOK},
		{name: "no header", authHeader: "", expectedStatus: http.StatusUnauthorized},
		{name: "malformed header", authHeader: "Token abc", expectedStatus: http.StatusUnauthorized},
		{name: "garbage token", authHeader: "Bearer not.a.jwt", expectedStatus: http.StatusUnauthorized},
		{name: "wrong signing key", authHeader: "Bearer " + forgedToken, expectedStatus: http.StatusUnauthorized},
		{name: "token for deleted account", authHeader: "Bearer " + deletedAccountToken, expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var payload map[string]float64
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
				assert.Equal(t, float64(7), payload["userID"])
			}
		})
	}
}
