package stylistsvc_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	http_ "github.com/mkrupp/vcloset/internal/infra/transport/http"

	. "github.com/mkrupp/vcloset/internal/svc/stylistsvc"
)

func newTestTransport(t *testing.T, upstreamURL string, rateLimit http_.RateLimitConfig) *HTTPTransport {
	t.Helper()

	return NewHTTPTransport(NewStylistService(testConfig(upstreamURL), nil), HTTPTransportConfig{
		MaxBodySize: 1024,
		RateLimit:   rateLimit,
	})
}

func ask(ht http.Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ht.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stylist", strings.NewReader(body)))

	return rec
}

func TestHTTPTransport_Stylist(t *testing.T) {
	t.Parallel()

	server := newUpstream(t)
	unreachable := httptest.NewServer(http.NotFoundHandler())
	unreachable.Close()

	tests := []struct {
		name            string
		upstream        string
		body            string
		wantStatus      int
		wantContentType string
		wantBody        string
	}{
		{
			name:            "json reply",
			upstream:        server.URL + "/api/gemini-stylist",
			body:            `{"q":1}`,
			wantStatus:      http.StatusOK,
			wantContentType: "application/json; charset=utf-8",
			wantBody:        `{"echo":{"q":1}}`,
		},
		{
			name:            "text reply",
			upstream:        server.URL + "/text",
			body:            `{}`,
			wantStatus:      http.StatusOK,
			wantContentType: "text/plain; charset=utf-8",
			wantBody:        "try the navy blazer",
		},
		{
			name:            "upstream status",
			upstream:        server.URL + "/down",
			body:            `{}`,
			wantStatus:      http.StatusServiceUnavailable,
			wantContentType: "application/json; charset=utf-8",
			wantBody:        `{"error":"model overloaded"}`,
		},
		{
			name:            "invalid body",
			upstream:        server.URL + "/api/gemini-stylist",
			body:            `not json`,
			wantStatus:      http.StatusBadRequest,
			wantContentType: "application/json; charset=utf-8",
		},
		{
			name:            "body too large",
			upstream:        server.URL + "/api/gemini-stylist",
			body:            `"` + strings.Repeat("a", 2048) + `"`,
			wantStatus:      http.StatusRequestEntityTooLarge,
			wantContentType: "application/json; charset=utf-8",
		},
		{
			name:            "reply too large",
			upstream:        server.URL + "/large",
			body:            `{}`,
			wantStatus:      http.StatusBadGateway,
			wantContentType: "application/json; charset=utf-8",
			wantBody:        `{"error":"Stylist reply too large."}`,
		},
		{
			name:            "upstream unreachable",
			upstream:        unreachable.URL,
			body:            `{}`,
			wantStatus:      http.StatusBadGateway,
			wantContentType: "application/json; charset=utf-8",
			wantBody:        `{"error":"Stylist is unavailable."}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := ask(newTestTransport(t, tt.upstream, http_.RateLimitConfig{}), tt.body) //nolint:exhaustruct

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantContentType, rec.Header().Get("Content-Type"))

			switch {
			case tt.wantBody == "":
			case strings.HasPrefix(tt.wantContentType, "application/json"):
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			default:
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestHTTPTransport_StylistRateLimit(t *testing.T) {
	t.Parallel()

	server := newUpstream(t)
	ht := newTestTransport(t, server.URL+"/api/gemini-stylist", http_.RateLimitConfig{Requests: 2, Window: time.Minute})

	require.Equal(t, http.StatusOK, ask(ht, `{}`).Code)
	require.Equal(t, http.StatusOK, ask(ht, `{}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, ask(ht, `{}`).Code)
}
