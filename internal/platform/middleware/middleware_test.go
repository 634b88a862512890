package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idadmin/pkg/requestcontext"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expectID string
	}{
		{
			name:     "keeps client-provided ID",
			header:   "req-123",
			expectID: "req-123",
		},
		{
			name:   "generates ID when missing",
			header: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var capturedCtx context.Context
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				capturedCtx = r.Context()
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-ID", tt.header)
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			got := requestcontext.RequestID(capturedCtx)
			require.NotEmpty(t, got)
			if tt.expectID != "" {
				assert.Equal(t, tt.expectID, got)
			}
			assert.Equal(t, got, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	signingKey := []byte("test-admin-signing-key")

	signToken := func(t *testing.T, key []byte, claims jwt.MapClaims) string {
		t.Helper()
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
		require.NoError(t, err)
		return signed
	}

	tests := []struct {
		name         string
		authHeader   func(t *testing.T) string
		expectStatus int
		expectActor  string
	}{
		{
			name: "valid token attaches actor",
			authHeader: func(t *testing.T) string {
				return "Bearer " + signToken(t, signingKey, jwt.MapClaims{
					"sub": "admin@example.com",
					"exp": time.Now().Add(time.Hour).Unix(),
				})
			},
			expectStatus: http.StatusOK,
			expectActor:  "admin@example.com",
		},
		{
			name:         "missing header rejected",
			authHeader:   func(t *testing.T) string { return "" },
			expectStatus: http.StatusUnauthorized,
		},
		{
			name:         "malformed header rejected",
			authHeader:   func(t *testing.T) string { return "Token abc" },
			expectStatus: http.StatusUnauthorized,
		},
		{
			name: "wrong key rejected",
			authHeader: func(t *testing.T) string {
				return "Bearer " + signToken(t, []byte("other-key"), jwt.MapClaims{
					"sub": "admin@example.com",
				})
			},
			expectStatus: http.StatusUnauthorized,
		},
		{
			name: "expired token rejected",
			authHeader: func(t *testing.T) string {
				return "Bearer " + signToken(t, signingKey, jwt.MapClaims{
					"sub": "admin@example.com",
					"exp": time.Now().Add(-time.Hour).Unix(),
				})
			},
			expectStatus: http.StatusUnauthorized,
		},
		{
			name: "token without subject rejected",
			authHeader: func(t *testing.T) string {
				return "Bearer " + signToken(t, signingKey, jwt.MapClaims{
					"exp": time.Now().Add(time.Hour).Unix(),
				})
			},
			expectStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var capturedCtx context.Context
			handler := RequireAdmin(signingKey, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				capturedCtx = r.Context()
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/admin/grants", nil)
			if header := tt.authHeader(t); header != "" {
				req.Header.Set("Authorization", header)
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectStatus, w.Code)
			if tt.expectActor != "" {
				assert.Equal(t, tt.expectActor, requestcontext.ActorID(capturedCtx))
			}
		})
	}
}

func TestClientMetadata(t *testing.T) {
	capture := func(t *testing.T, userAgent string) context.Context {
		t.Helper()
		var capturedCtx context.Context
		handler := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedCtx = r.Context()
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		if userAgent != "" {
			req.Header.Set("User-Agent", userAgent)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
		return capturedCtx
	}

	t.Run("desktop chrome", func(t *testing.T) {
		ctx := capture(t, "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		assert.Contains(t, requestcontext.ClientOS(ctx), "Mac OS X")
		assert.Equal(t, "Chrome", requestcontext.ClientBrowser(ctx))
	})

	t.Run("missing user agent", func(t *testing.T) {
		ctx := capture(t, "")
		assert.Empty(t, requestcontext.ClientOS(ctx))
		assert.Empty(t, requestcontext.ClientBrowser(ctx))
	})
}
