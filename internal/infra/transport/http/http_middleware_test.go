package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/vcloset/internal/domain"
	context_ "github.com/mkrupp/vcloset/internal/infra/context"
	"github.com/mkrupp/vcloset/internal/infra/logging"

	. "github.com/mkrupp/vcloset/internal/infra/transport/http"
)

type fakeAuthClient struct {
	subject domain.Subject
	ok      bool
	err     error
}

func (c fakeAuthClient) Validate(context.Context, string) (domain.Subject, bool, error) {
	return c.subject, c.ok, c.err
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))

	return body.Error
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header string
		want   string
		wantOK bool
	}{
		{header: "Bearer abc.def", want: "abc.def", wantOK: true},
		{header: "bearer  abc ", want: "abc", wantOK: true},
		{header: "Basic abc"},
		{header: "Bearer "},
		{header: ""},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}

		got, ok := BearerToken(r)
		assert.Equal(t, tt.wantOK, ok, tt.header)
		assert.Equal(t, tt.want, got, tt.header)
	}
}

func TestAuthorizingMiddleware(t *testing.T) {
	t.Parallel()

	subject := domain.Subject{UserID: 3, Email: "grace@example.com"}

	tests := []struct {
		name       string
		header     string
		client     fakeAuthClient
		wantStatus int
	}{
		{name: "missing token", client: fakeAuthClient{ok: true}, wantStatus: http.StatusUnauthorized},
		{name: "rejected token", header: "Bearer x", client: fakeAuthClient{}, wantStatus: http.StatusUnauthorized},
		{name: "auth service down", header: "Bearer x", client: fakeAuthClient{err: errors.New("down")}, wantStatus: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer x", client: fakeAuthClient{subject: subject, ok: true}, wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, ok := context_.SubjectFromContext(r.Context())
				assert.True(t, ok)
				assert.Equal(t, subject, got)
				w.WriteHeader(http.StatusNoContent)
			})

			r := httptest.NewRequest(http.MethodGet, "/api/clothing", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			Authorizing(tt.client, logging.NewNopLogger())(next).ServeHTTP(rec, r)

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusUnauthorized {
				assert.NotEmpty(t, decodeError(t, rec))
			}
		})
	}
}

func TestRescueingMiddleware(t *testing.T) {
	t.Parallel()

	handler := RescueingMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), logging.NewNopLogger())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", decodeError(t, rec))
}

func TestTracingMiddleware(t *testing.T) {
	t.Parallel()

	var seen string

	handler := TracingMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen, _ = context_.TraceIDFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(TraceIDHeader, "upstream-id")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	assert.Equal(t, "upstream-id", seen)
	assert.Equal(t, "upstream-id", rec.Header().Get(TraceIDHeader))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Len(t, seen, 26)
	assert.Equal(t, seen, rec.Header().Get(TraceIDHeader))
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	t.Parallel()

	handler := CORSMiddleware(CORSConfig{
		AllowedOrigins:   []string{"http://localhost:3001"},
		AllowCredentials: true,
	})(http.HandlerFunc(HandleHealth))

	r := httptest.NewRequest(http.MethodOptions, "/api/clothing", nil)
	r.Header.Set("Origin", "http://localhost:3001")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	assert.Equal(t, "http://localhost:3001", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Parallel()

	handler := RateLimitMiddleware(RateLimitConfig{Requests: 2, Window: time.Minute})(http.HandlerFunc(HandleHealth))

	codes := make([]int, 0, 3)

	for range 3 {
		r := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		r.RemoteAddr = "192.0.2.1:1234"

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	sock, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- Serve(ctx, sock, http.HandlerFunc(HandleHealth), HTTPTransportConfig{ShutdownTimeout: time.Second})
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + sock.Addr().String() + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
