package stylistsvc_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	context_ "github.com/mkrupp/vcloset/internal/infra/context"

	. "github.com/mkrupp/vcloset/internal/svc/stylistsvc"
)

// newUpstream echoes JSON bodies. "/text" answers with plain text, "/large" with a
// reply above the default size limit and "/down" with 503.
func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/gemini-stylist", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"echo":` + string(body) + `}`))
	})
	mux.HandleFunc("POST /text", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("try the navy blazer"))
	})
	mux.HandleFunc("POST /large", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"advice":"` + strings.Repeat("x", 1<<17) + `"}`))
	})
	mux.HandleFunc("POST /down", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"model overloaded"}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func testConfig(url string) StylistConfig {
	return StylistConfig{
		UpstreamURL:     url,
		Timeout:         time.Second,
		Rate:            0,
		Burst:           1,
		MaxResponseSize: 1 << 16,
	}
}

func TestStylistService_Ask(t *testing.T) {
	t.Parallel()

	server := newUpstream(t)

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantBody   string
		wantJSON   bool
	}{
		{
			name:       "json reply",
			path:       "/api/gemini-stylist",
			body:       `{"question":"what goes with chinos?"}`,
			wantStatus: http.StatusOK,
			wantBody:   `{"echo":{"question":"what goes with chinos?"}}`,
			wantJSON:   true,
		},
		{
			name:       "text reply",
			path:       "/text",
			body:       `{}`,
			wantStatus: http.StatusOK,
			wantBody:   "try the navy blazer",
			wantJSON:   false,
		},
		{
			name:       "upstream error status is relayed",
			path:       "/down",
			body:       `{}`,
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"error":"model overloaded"}`,
			wantJSON:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := NewStylistService(testConfig(server.URL+tt.path), server.Client())

			reply, err := svc.Ask(context.Background(), []byte(tt.body))
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, reply.Status)
			assert.Equal(t, tt.wantBody, string(reply.Body))
			assert.Equal(t, tt.wantJSON, reply.JSON)
		})
	}
}

func TestStylistService_Errors(t *testing.T) {
	t.Parallel()

	server := newUpstream(t)

	svc := NewStylistService(testConfig(server.URL+"/api/gemini-stylist"), server.Client())
	_, err := svc.Ask(context.Background(), []byte(`{"question":`))
	require.ErrorIs(t, err, ErrInvalidRequest)

	unreachable := httptest.NewServer(http.NotFoundHandler())
	unreachable.Close()

	svc = NewStylistService(testConfig(unreachable.URL), nil)
	_, err = svc.Ask(context.Background(), []byte(`{}`))
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestStylistService_OutboundRateLimit(t *testing.T) {
	t.Parallel()

	server := newUpstream(t)

	cfg := testConfig(server.URL + "/api/gemini-stylist")
	cfg.Rate = 0.001

	svc := NewStylistService(cfg, server.Client())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := svc.Ask(ctx, []byte(`{}`))
	require.NoError(t, err)

	_, err = svc.Ask(ctx, []byte(`{}`))
	require.ErrorIs(t, err, ErrBusy)
}

func TestStylistService_ForwardsTraceID(t *testing.T) {
	t.Parallel()

	seen := make(chan string, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Get("X-Request-ID")
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	svc := NewStylistService(testConfig(server.URL), server.Client())

	_, err := svc.Ask(context_.WithTraceID(context.Background(), "trace-7"), []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "trace-7", <-seen)
}

func TestStylistService_ReplySizeLimit(t *testing.T) {
	t.Parallel()

	server := newUpstream(t)

	svc := NewStylistService(testConfig(server.URL+"/large"), server.Client())
	_, err := svc.Ask(context.Background(), []byte(`{}`))
	require.ErrorIs(t, err, ErrUpstreamTooLarge)

	echo := `{"echo":{}}`

	cfg := testConfig(server.URL + "/api/gemini-stylist")
	cfg.MaxResponseSize = int64(len(echo))

	reply, err := NewStylistService(cfg, server.Client()).Ask(context.Background(), []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, echo, string(reply.Body))
	assert.True(t, reply.JSON)

	cfg.MaxResponseSize--

	_, err = NewStylistService(cfg, server.Client()).Ask(context.Background(), []byte(`{}`))
	require.ErrorIs(t, err, ErrUpstreamTooLarge)
}
