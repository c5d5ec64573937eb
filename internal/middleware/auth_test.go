package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agrolink/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims map[string]interface{}, secret string) string {
	t.Helper()
	header := map[string]interface{}{"alg": "HS256", "typ": "JWT"}

	encode := func(v interface{}) string {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return base64.RawURLEncoding.EncodeToString(data)
	}
	signing := encode(header) + "." + encode(claims)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signing))
	return signing + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.JWT.Secret = testSecret

	r := gin.New()
	r.GET("/me", AuthMiddleware(cfg), func(c *gin.Context) {
		userID, _ := c.Get("user_id")
		role, _ := c.Get("role")
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "role": role})
	})
	r.GET("/admin", AuthMiddleware(cfg), AdminRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	r := authRouter()
	token := signToken(t, map[string]interface{}{
		"user_id": 7,
		"role":    "farmer",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	w := get(r, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	assert.Equal(t, 7.0, body["user_id"])
	assert.Equal(t, "farmer", body["role"])
}

func TestAuthMiddleware_SubFallback(t *testing.T) {
	r := authRouter()
	token := signToken(t, map[string]interface{}{"sub": 3}, testSecret)

	w := get(r, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &body)
	assert.Equal(t, 3.0, body["user_id"])
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	r := authRouter()

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"garbage token", "not.a.jwt"},
		{"wrong secret", signToken(t, map[string]interface{}{"user_id": 1}, "other-secret")},
		{"expired", signToken(t, map[string]interface{}{
			"user_id": 1,
			"exp":     time.Now().Add(-time.Hour).Unix(),
		}, testSecret)},
		{"not yet valid", signToken(t, map[string]interface{}{
			"user_id": 1,
			"nbf":     time.Now().Add(time.Hour).Unix(),
		}, testSecret)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(r, "/me", tt.token)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthMiddleware_UnsupportedAlg(t *testing.T) {
	r := authRouter()

	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"user_id":1}`))
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(header + "." + payload))
	token := header + "." + payload + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	w := get(r, "/me", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRequired(t *testing.T) {
	r := authRouter()

	admin := signToken(t, map[string]interface{}{"user_id": 1, "role": "admin"}, testSecret)
	w := get(r, "/admin", admin)
	assert.Equal(t, http.StatusOK, w.Code)

	farmer := signToken(t, map[string]interface{}{"user_id": 2, "role": "farmer"}, testSecret)
	w = get(r, "/admin", farmer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	noRole := signToken(t, map[string]interface{}{"user_id": 3}, testSecret)
	w = get(r, "/admin", noRole)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestValidateHS256JWT_TimeWindow(t *testing.T) {
	now := time.Now()
	token := signToken(t, map[string]interface{}{
		"user_id": 1,
		"iat":     now.Unix(),
		"nbf":     now.Unix(),
		"exp":     now.Add(time.Minute).Unix(),
	}, testSecret)

	claims, err := validateHS256JWT(token, testSecret, now.Add(30*time.Second))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	assert.Equal(t, 1.0, claims["user_id"])

	_, err = validateHS256JWT(token, testSecret, now.Add(2*time.Minute))
	assert.Error(t, err)

	_, err = validateHS256JWT(token, testSecret, now.Add(-time.Minute))
	assert.Error(t, err)
}
