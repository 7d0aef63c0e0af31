package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taskboard/internal/auth"
	"taskboard/internal/logging"
	"taskboard/internal/middleware"
	"taskboard/internal/session"
	"taskboard/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jwtSecret = "test-secret-key"

type failingStore struct{}

func (failingStore) Revoke(context.Context, string, time.Time) error { return errors.New("down") }
func (failingStore) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("down")
}
func (failingStore) Ping(context.Context) error { return errors.New("down") }

func setupRouter(revocations session.RevocationStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	tokens := auth.NewTokenManager(jwtSecret, time.Hour)
	protected := r.Group("/protected")
	protected.Use(middleware.JWTAuthMiddleware(tokens, revocations, testutil.QuietLogger()))

	protected.GET("/resource", func(c *gin.Context) {
		userID, exists := middleware.CurrentUserID(c)
		if !exists {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "User ID not found in context"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Access granted",
			"user_id": userID,
		})
	})

	return r
}

func generateTestToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := auth.NewTokenManager(jwtSecret, time.Hour).GenerateToken(userID, "test@example.com")
	require.NoError(t, err)
	return token
}

func doRequest(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", "/protected/resource", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestJWTAuthMiddleware_ValidToken(t *testing.T) {
	router := setupRouter(session.NewMemoryStore())
	userID := uuid.New()

	resp := doRequest(router, "Bearer "+generateTestToken(t, userID))

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Access granted")
	assert.Contains(t, resp.Body.String(), userID.String())
}

func TestJWTAuthMiddleware_NoAuthHeader(t *testing.T) {
	router := setupRouter(session.NewMemoryStore())

	resp := doRequest(router, "")

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "Authorization header is required")
}

func TestJWTAuthMiddleware_InvalidAuthFormat(t *testing.T) {
	router := setupRouter(session.NewMemoryStore())

	resp := doRequest(router, "InvalidFormat token123")

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "Authorization header format must be Bearer {token}")
}

func TestJWTAuthMiddleware_InvalidToken(t *testing.T) {
	router := setupRouter(session.NewMemoryStore())

	resp := doRequest(router, "Bearer invalid-token")

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "Invalid or expired token")
}

func TestJWTAuthMiddleware_TokenWithInvalidUserID(t *testing.T) {
	router := setupRouter(session.NewMemoryStore())

	claims := jwt.MapClaims{
		"user_id": "not-a-valid-uuid",
		"exp":     jwt.NewNumericDate(time.Now().Add(time.Hour * 24)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(jwtSecret))

	resp := doRequest(router, "Bearer "+tokenString)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "Invalid user ID in token")
}

func TestJWTAuthMiddleware_RevokedToken(t *testing.T) {
	store := session.NewMemoryStore()
	router := setupRouter(store)
	token := generateTestToken(t, uuid.New())
	claims, err := auth.NewTokenManager(jwtSecret, time.Hour).ParseToken(token)
	require.NoError(t, err)

	require.NoError(t, store.Revoke(context.Background(), claims.ID, time.Now().Add(time.Hour)))
	resp := doRequest(router, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "Token has been revoked")
}

func TestJWTAuthMiddleware_RevocationStoreDown(t *testing.T) {
	router := setupRouter(failingStore{})

	resp := doRequest(router, "Bearer "+generateTestToken(t, uuid.New()))

	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := logging.New("info", "")
	var buf bytes.Buffer
	logger.SetOutput(&buf)

	r := gin.New()
	r.Use(middleware.RequestLogger(logging.WithService(logger)))
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	req, _ := http.NewRequest("GET", "/missing", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Contains(t, buf.String(), `"status":404`)
	assert.Contains(t, buf.String(), `"path":"/missing"`)
	assert.Contains(t, buf.String(), `"level":"warning"`)
}
