package photosvc_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/vcloset/internal/domain"

	. "github.com/mkrupp/vcloset/internal/svc/photosvc"
)

type fakeAuthClient map[string]domain.Subject

func (c fakeAuthClient) Validate(_ context.Context, token string) (domain.Subject, bool, error) {
	subject, ok := c[token]

	return subject, ok, nil
}

func setupTestTransport(t *testing.T) (*HTTPTransport, domain.Photo) {
	t.Helper()

	svc, _ := setupTestService(t)

	photo := newTestPhoto(testPNG(t, 100, 50), "shirt.png", MIMETypePNG, 1)
	require.NoError(t, svc.Store(asOwner(1), photo))

	authClient := fakeAuthClient{
		"owner-token": {UserID: 1, Email: "owner@example.com"},
		"other-token": {UserID: 2, Email: "other@example.com"},
	}

	return NewHTTPTransport(svc, authClient, HTTPTransportConfig{
		URLWidthParam: "width",
		CacheMaxAge:   60,
	}), photo
}

func serve(ht http.Handler, method, target, token string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ht.ServeHTTP(rec, r)

	return rec
}

func TestHTTPTransport_Download(t *testing.T) {
	t.Parallel()

	ht, photo := setupTestTransport(t)

	rec := serve(ht, http.MethodGet, "/media/"+photo.ID().String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MIMETypePNG, rec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=60, immutable", rec.Header().Get("Cache-Control"))
	assert.Equal(t, photo.Bytes(), rec.Body.Bytes())

	rec = serve(ht, http.MethodGet, "/media/"+photo.ID().String()+"?width=25", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 25, decodedWidth(t, rec.Body.Bytes()))
}

func TestHTTPTransport_DownloadErrors(t *testing.T) {
	t.Parallel()

	ht, photo := setupTestTransport(t)

	tests := []struct {
		name       string
		target     string
		wantStatus int
	}{
		{name: "unknown photo", target: "/media/zzzz", wantStatus: http.StatusNotFound},
		{name: "width not a number", target: "/media/" + photo.ID().String() + "?width=wide", wantStatus: http.StatusBadRequest},
		{name: "width too large", target: "/media/" + photo.ID().String() + "?width=99999", wantStatus: http.StatusBadRequest},
		{name: "negative width", target: "/media/" + photo.ID().String() + "?width=-5", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := serve(ht, http.MethodGet, tt.target, "")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
		})
	}
}

func TestHTTPTransport_Delete(t *testing.T) {
	t.Parallel()

	ht, photo := setupTestTransport(t)
	target := "/media/" + photo.ID().String()

	assert.Equal(t, http.StatusUnauthorized, serve(ht, http.MethodDelete, target, "").Code)
	assert.Equal(t, http.StatusNotFound, serve(ht, http.MethodDelete, target, "other-token").Code)
	assert.Equal(t, http.StatusNoContent, serve(ht, http.MethodDelete, target, "owner-token").Code)
	assert.Equal(t, http.StatusNotFound, serve(ht, http.MethodGet, target, "").Code)
}
