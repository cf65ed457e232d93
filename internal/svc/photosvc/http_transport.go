package photosvc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mkrupp/vcloset/internal/domain"
	"github.com/mkrupp/vcloset/internal/infra/logging"
	http_ "github.com/mkrupp/vcloset/internal/infra/transport/http"
	"github.com/mkrupp/vcloset/internal/svc/authsvc/authclient"
	"github.com/mkrupp/vcloset/internal/util/encoding"
)

// HTTPTransportConfig contains configuration parameters for the photo routes.
type HTTPTransportConfig struct {
	// URLWidthParam is the URL parameter for specifying the rendition width.
	// Default is "width".
	URLWidthParam string `env:"URL_WIDTH_PARAM" default:"width"`

	// ContentDispositionDownload controls whether photos are served with download headers.
	// Default is false.
	ContentDispositionDownload bool `env:"CONTENT_DISPOSITION_DOWNLOAD" default:"false"`

	// CacheMaxAge is the Cache-Control max-age in seconds. Photo IDs are content
	// addressed, so responses never go stale.
	CacheMaxAge int `env:"CACHE_MAX_AGE" default:"31536000"`
}

const urlPhotoIDParam = "photo_id"

// HTTPTransport serves stored garment photos.
type HTTPTransport struct {
	photoSvc   PhotoService
	authClient authclient.AuthClient
	router     chi.Router
	log        logging.Logger
	cfg        HTTPTransportConfig
}

var (
	_ http_.HTTPTransport = (*HTTPTransport)(nil)
	_ http_.Routable      = (*HTTPTransport)(nil)
)

// NewHTTPTransport creates a new HTTPTransport. authClient guards deletion, downloads
// are public because browsers load photos through plain <img> tags.
func NewHTTPTransport(
	photoSvc PhotoService,
	authClient authclient.AuthClient,
	cfg HTTPTransportConfig,
) *HTTPTransport {
	ht := &HTTPTransport{
		photoSvc:   photoSvc,
		authClient: authClient,
		log:        logging.GetLogger("svc.photosvc.http_transport"),
		cfg:        cfg,
	}

	ht.router = http_.NewRouter(ht)

	return ht
}

// Routes registers the photo endpoints:
// - GET /media/{photo_id}: Download photo by ID, optionally resized with ?width=N
// - DELETE /media/{photo_id}: Delete photo by ID (owner only).
func (ht *HTTPTransport) Routes(router chi.Router) {
	router.Route("/media", func(r chi.Router) {
		r.Get("/{"+urlPhotoIDParam+"}", ht.HandleDownload)

		r.With(http_.Authorizing(ht.authClient, ht.log)).
			Delete("/{"+urlPhotoIDParam+"}", ht.HandleDelete)
	})
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.router.ServeHTTP(w, r)
}

// HandleDelete processes photo deletion requests.
func (ht *HTTPTransport) HandleDelete(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleDelete(w, r)
}

func (ht *HTTPTransport) handleDelete(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "photo delete failed", "error", err)
		} else {
			log.DebugContext(ctx, "photo deleted")
		}
	}(r.Context())

	photoID, err := ht.photoID(w, r)
	if err != nil {
		return err
	}

	if err := ht.photoSvc.Delete(r.Context(), photoID); err != nil {
		ht.writeServiceError(w, err)

		return fmt.Errorf("delete: %w", err)
	}

	w.WriteHeader(http.StatusNoContent)

	return nil
}

// HandleDownload processes photo download requests.
// Expects the photo ID as a URL parameter and an optional width parameter for resizing.
func (ht *HTTPTransport) HandleDownload(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleDownload(w, r)
}

func (ht *HTTPTransport) handleDownload(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "photo download failed", "error", err)
		} else {
			log.DebugContext(ctx, "photo downloaded")
		}
	}(r.Context())

	photoID, err := ht.photoID(w, r)
	if err != nil {
		return err
	}

	var width int

	if widthStr := r.URL.Query().Get(ht.cfg.URLWidthParam); widthStr != "" {
		width, err = strconv.Atoi(widthStr)
		if err != nil {
			http_.WriteError(w, http.StatusBadRequest, "Invalid width.")

			return fmt.Errorf("parse width: %w", err)
		}
	}

	photo, err := ht.photoSvc.Fetch(r.Context(), photoID, width)
	if err != nil {
		ht.writeServiceError(w, err)

		return fmt.Errorf("fetch: %w", err)
	}

	if ht.cfg.ContentDispositionDownload {
		w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(photo.Meta().Filename))
	}

	if ht.cfg.CacheMaxAge > 0 {
		w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(ht.cfg.CacheMaxAge)+", immutable")
	}

	w.Header().Set("Content-Type", photo.MIMEType())
	w.Header().Set("Content-Length", strconv.FormatInt(photo.Size(), 10))

	if _, err := photo.WriteTo(w); err != nil {
		return fmt.Errorf("write to: %w", err)
	}

	return nil
}

func (ht *HTTPTransport) photoID(w http.ResponseWriter, r *http.Request) (domain.PhotoID, error) {
	photoID := chi.URLParam(r, urlPhotoIDParam)
	if photoID == "" {
		http_.WriteError(w, http.StatusBadRequest, "")

		return "", domain.ErrNoPhotoID
	}

	return domain.PhotoID(encoding.NormalizeCrockfordB32LC(photoID)), nil
}

func (ht *HTTPTransport) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidWidth):
		http_.WriteError(w, http.StatusBadRequest, "Invalid width.")
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrBlobNotFound):
		http_.WriteError(w, http.StatusNotFound, "")
	default:
		http_.WriteError(w, http.StatusInternalServerError, "")
	}
}
