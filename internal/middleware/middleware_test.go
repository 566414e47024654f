package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farah_app_echo/internal/services"
)

type stubVerifier struct {
	token *auth.Token
	err   error
}

func (s stubVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if idToken != "good" {
		return nil, errors.New("bad token")
	}
	return s.token, s.err
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = CustomErrorHandler
	return e
}

func TestRequireAuth(t *testing.T) {
	e := newTestEcho()
	verifier := stubVerifier{token: &auth.Token{UID: "user-1", Claims: map[string]interface{}{"email": "noura@example.com"}}}
	e.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, UserUID(c))
	}, RequireAuth(verifier))

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{"valid token", "Bearer good", http.StatusOK, "user-1"},
		{"missing header", "", http.StatusUnauthorized, `{"error":"Missing authorization header"}`},
		{"not bearer", "Basic abc", http.StatusUnauthorized, `{"error":"Invalid authorization format"}`},
		{"rejected token", "Bearer forged", http.StatusUnauthorized, `{"error":"Invalid token"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			} else {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRequireAuth_NotConfigured(t *testing.T) {
	e := newTestEcho()
	e.GET("/me", func(c echo.Context) error { return nil }, RequireAuth(nil))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestFunctionCORS(t *testing.T) {
	e := newTestEcho()
	e.Match([]string{http.MethodPost, http.MethodOptions}, "/fn", func(c echo.Context) error {
		return services.ErrNothingToRefund
	}, FunctionCORS())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/fn", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "authorization, x-client-info, apikey, content-type", rec.Header().Get(echo.HeaderAccessControlAllowHeaders))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/fn", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin), "error responses carry CORS headers too")
}

func TestCustomErrorHandler(t *testing.T) {
	e := newTestEcho()
	e.GET("/flow", func(c echo.Context) error {
		return &services.FlowError{Kind: services.KindGatewayQueryFailed, Message: "Failed to verify payment", Err: errors.New("secret detail")}
	})
	e.GET("/missing", func(c echo.Context) error {
		return services.ErrBookingNotFound
	})
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("db password leaked")
	})

	tests := []struct {
		path     string
		wantCode int
		wantMsg  string
	}{
		{"/flow", http.StatusBadRequest, "Failed to verify payment"},
		{"/missing", http.StatusNotFound, "Booking not found"},
		{"/boom", http.StatusInternalServerError, "Something went wrong. Please try again later."},
		{"/nowhere", http.StatusNotFound, "Not Found"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantCode, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantMsg, body.Error)
		})
	}
}
