package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepulse/custody/internal/domain"
	"github.com/tradepulse/custody/pkg/config"
)

const testSecret = "test-jwt-secret"

func signToken(t *testing.T, claims domain.AdminClaim, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newAuthRouter(cfg config.JWTConfig) (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	var seenAdminID string
	router.GET("/protected", AdminAuth(cfg), func(c *gin.Context) {
		seenAdminID = c.GetString(AdminIDKey)
		c.Status(http.StatusOK)
	})
	return router, &seenAdminID
}

func get(router *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAdminAuthAcceptsValidToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: testSecret, Issuer: "tradepulse"}
	router, seenAdminID := newAuthRouter(cfg)

	adminID := uuid.New()
	token := signToken(t, domain.AdminClaim{
		AdminID: adminID,
		Role:    "operator",
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(time.Hour).Unix(),
			Issuer:    "tradepulse",
		},
	}, testSecret)

	rec := get(router, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, adminID.String(), *seenAdminID)
}

func TestAdminAuthRejections(t *testing.T) {
	cfg := config.JWTConfig{Secret: testSecret, Issuer: "tradepulse"}

	validClaims := func() domain.AdminClaim {
		return domain.AdminClaim{
			AdminID: uuid.New(),
			StandardClaims: jwt.StandardClaims{
				ExpiresAt: time.Now().Add(time.Hour).Unix(),
				Issuer:    "tradepulse",
			},
		}
	}

	tests := []struct {
		name          string
		authorization func(t *testing.T) string
	}{
		{
			name:          "missing header",
			authorization: func(t *testing.T) string { return "" },
		},
		{
			name:          "not a bearer token",
			authorization: func(t *testing.T) string { return "Basic abc123" },
		},
		{
			name: "wrong secret",
			authorization: func(t *testing.T) string {
				return "Bearer " + signToken(t, validClaims(), "other-secret")
			},
		},
		{
			name: "expired token",
			authorization: func(t *testing.T) string {
				claims := validClaims()
				claims.ExpiresAt = time.Now().Add(-time.Hour).Unix()
				return "Bearer " + signToken(t, claims, testSecret)
			},
		},
		{
			name: "wrong issuer",
			authorization: func(t *testing.T) string {
				claims := validClaims()
				claims.Issuer = "someone-else"
				return "Bearer " + signToken(t, claims, testSecret)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newAuthRouter(cfg)
			rec := get(router, tt.authorization(t))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}
