package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

var testKey = []byte("secret")

func serve(t *testing.T, header string, mw ...echo.MiddlewareFunc) (int, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var h echo.HandlerFunc = func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	if err := h(c); err != nil {
		he, ok := err.(*echo.HTTPError)
		if !ok {
			t.Fatalf("Unexpected error type %T", err)
		}
		return he.Code, c
	}
	return rec.Code, c
}

func token(t *testing.T, key []byte, editor bool, ttl time.Duration) string {
	t.Helper()
	tok, err := NewToken(key, "ann", editor, ttl)
	if err != nil {
		t.Fatalf("NewToken failed: %v", err)
	}
	return tok
}

func TestJWT(t *testing.T) {
	good := token(t, testKey, false, time.Hour)
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusBadRequest},
		{"valid", good, http.StatusNoContent},
		{"bearer", "Bearer " + good, http.StatusNoContent},
		{"wrong key", token(t, []byte("other"), false, time.Hour), http.StatusUnauthorized},
		{"expired", token(t, testKey, false, -time.Minute), http.StatusUnauthorized},
		{"garbage", "not-a-token", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := serve(t, tt.header, JWT(testKey)); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestJWTSetsClaims(t *testing.T) {
	_, c := serve(t, token(t, testKey, true, time.Hour), JWT(testKey))
	if c.Get(UserKey) != "ann" {
		t.Errorf("Expected username ann, got %v", c.Get(UserKey))
	}
	if c.Get(EditorKey) != true {
		t.Errorf("Expected editor claim, got %v", c.Get(EditorKey))
	}
}

func TestRequireEditor(t *testing.T) {
	if got, _ := serve(t, token(t, testKey, false, time.Hour), JWT(testKey), RequireEditor); got != http.StatusForbidden {
		t.Errorf("Expected 403 for a viewer, got %d", got)
	}
	if got, _ := serve(t, token(t, testKey, true, time.Hour), JWT(testKey), RequireEditor); got != http.StatusNoContent {
		t.Errorf("Expected editors through, got %d", got)
	}
}
