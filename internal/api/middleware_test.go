package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fitpoints/workout-app/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, userID string, role domain.Role, expiresAt time.Time) string {
	t.Helper()
	claims := jwtClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	userID := primitive.NewObjectID().Hex()
	var gotUserID string
	var gotRole domain.Role

	router := gin.New()
	router.GET("/protected", AuthMiddleware(testSecret), func(c *gin.Context) {
		gotUserID, _ = getUserIDFromContext(c)
		roleRaw, _ := c.Get(ContextUserRoleKey)
		gotRole, _ = roleRaw.(domain.Role)
		c.Status(http.StatusOK)
	})

	token := signToken(t, userID, domain.RoleAdmin, time.Now().Add(time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	if gotUserID != userID {
		t.Fatalf("expected user id %q got %q", userID, gotUserID)
	}
	if gotRole != domain.RoleAdmin {
		t.Fatalf("expected role admin got %q", gotRole)
	}
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	router := gin.New()
	router.GET("/protected", AuthMiddleware(testSecret), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	router := gin.New()
	router.GET("/protected", AuthMiddleware(testSecret), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	token := signToken(t, primitive.NewObjectID().Hex(), domain.RoleMember, time.Now().Add(-time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestAuthMiddlewareRejectsWrongSecret(t *testing.T) {
	router := gin.New()
	router.GET("/protected", AuthMiddleware(testSecret), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	claims := jwtClaims{
		UserID: primitive.NewObjectID().Hex(),
		Role:   domain.RoleMember,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("some-other-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}
