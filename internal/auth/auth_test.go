package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenManager("secret", time.Hour)
	userID := uuid.New()

	token, err := tokens.GenerateToken(userID)
	require.NoError(t, err)

	got, err := tokens.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestValidateTokenRejects(t *testing.T) {
	tokens := NewTokenManager("secret", time.Hour)
	token, err := tokens.GenerateToken(uuid.New())
	require.NoError(t, err)

	_, err = NewTokenManager("other", time.Hour).ValidateToken(token)
	assert.Error(t, err, "wrong secret")

	expired := NewTokenManager("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.ValidateToken(token)
	assert.Error(t, err, "expired")

	_, err = NewTokenManager("", time.Hour).GenerateToken(uuid.New())
	assert.Error(t, err, "missing secret")
}

func newTestRouter(tokens *TokenManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	whoami := func(c *gin.Context) {
		id, ok := GetUserID(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, id.String())
	}
	r.GET("/private", Middleware(tokens, zap.NewNop()), whoami)
	r.GET("/public", OptionalMiddleware(tokens), whoami)
	return r
}

func TestMiddleware(t *testing.T) {
	tokens := NewTokenManager("secret", time.Hour)
	router := newTestRouter(tokens)
	userID := uuid.New()
	token, err := tokens.GenerateToken(userID)
	require.NoError(t, err)

	cases := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{"missing header", "/private", "", http.StatusUnauthorized, ""},
		{"bad scheme", "/private", "Token " + token, http.StatusUnauthorized, ""},
		{"bad token", "/private", "Bearer nope", http.StatusUnauthorized, ""},
		{"valid", "/private", "Bearer " + token, http.StatusOK, userID.String()},
		{"optional anonymous", "/public", "", http.StatusOK, "anonymous"},
		{"optional bad token", "/public", "Bearer nope", http.StatusOK, "anonymous"},
		{"optional valid", "/public", "Bearer " + token, http.StatusOK, userID.String()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, w.Body.String())
			}
		})
	}
}
