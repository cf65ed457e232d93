package wardrobesvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mkrupp/vcloset/internal/domain"
	"github.com/mkrupp/vcloset/internal/infra/logging"
	http_ "github.com/mkrupp/vcloset/internal/infra/transport/http"
	"github.com/mkrupp/vcloset/internal/svc/authsvc/authclient"
	"github.com/mkrupp/vcloset/internal/util/validation"
)

const (
	msgNoImage       = "No image uploaded"
	msgUploadFailed  = "Failed to upload image"
	msgServerFailed  = "Upload failed on server"
	msgFetchFailed   = "Failed to fetch items"
	msgItemNotFound  = "Item not found"
	msgInvalidSeason = "Invalid season"
	msgInvalidForm   = "Invalid form data"
)

// HTTPTransportConfig contains configuration parameters for the clothing routes.
type HTTPTransportConfig struct {
	// MultipartFileName is the form field name of the photo.
	// Default is "image".
	MultipartFileName string `env:"MULTIPART_FILE_NAME" default:"image"`

	// MultipartFormMaxMemory is the part of a multipart form kept in memory, the rest
	// is spooled to disk. Default is 10MB.
	MultipartFormMaxMemory int64 `env:"MULTIPART_FORM_MAX_MEMORY" default:"10485760"`
}

// ItemResponse is the body of item creation and lookup responses.
type ItemResponse struct {
	Success bool                 `json:"success"`
	Item    *domain.ClothingItem `json:"item,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// ItemsResponse is the body of item listings.
type ItemsResponse struct {
	Items []*domain.ClothingItem `json:"items"`
}

// HTTPTransport handles HTTP requests for the wardrobe service.
type HTTPTransport struct {
	wardrobeSvc *WardrobeService
	authClient  authclient.AuthClient
	validator   *validation.Validator
	router      chi.Router
	log         logging.Logger
	cfg         HTTPTransportConfig
}

var (
	_ http_.HTTPTransport = (*HTTPTransport)(nil)
	_ http_.Routable      = (*HTTPTransport)(nil)
)

// NewHTTPTransport creates a new HTTPTransport. All routes require a valid bearer token.
func NewHTTPTransport(
	wardrobeSvc *WardrobeService,
	authClient authclient.AuthClient,
	cfg HTTPTransportConfig,
) *HTTPTransport {
	ht := &HTTPTransport{
		wardrobeSvc: wardrobeSvc,
		authClient:  authClient,
		validator:   validation.New(),
		log:         logging.GetLogger("svc.wardrobesvc.http_transport"),
		cfg:         cfg,
	}

	ht.router = http_.NewRouter(ht)

	return ht
}

// Routes registers the clothing endpoints:
// - POST /api/clothing: Upload a photo and create an item (multipart)
// - GET /api/clothing: List the caller's items
// - GET /api/clothing/{item_id}: Get one of the caller's items.
func (ht *HTTPTransport) Routes(router chi.Router) {
	router.Route("/api/clothing", func(r chi.Router) {
		r.Use(http_.Authorizing(ht.authClient, ht.log))
		r.Post("/", ht.HandleCreate)
		r.Get("/", ht.HandleList)
		r.Get("/{item_id}", ht.HandleGet)
	})
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.router.ServeHTTP(w, r)
}

// HandleCreate processes item uploads.
// Expects a multipart form with the photo in MultipartFileName and the fields
// itemName, type, color, season, tags and favorite.
func (ht *HTTPTransport) HandleCreate(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleCreate(w, r)
}

//nolint:funlen,cyclop
func (ht *HTTPTransport) handleCreate(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.WarnContext(ctx, "item upload failed", "error", err)
		} else {
			log.DebugContext(ctx, "item uploaded")
		}
	}(r.Context())

	maxSize := ht.wardrobeSvc.photoSvc.MaxSize()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+ht.cfg.MultipartFormMaxMemory)

	if err := r.ParseMultipartForm(ht.cfg.MultipartFormMaxMemory); err != nil {
		writeItemError(w, http.StatusBadRequest, msgInvalidForm)

		return fmt.Errorf("parse multipart form: %w", err)
	}

	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(ht.cfg.MultipartFileName)
	if err != nil {
		writeItemError(w, http.StatusBadRequest, msgNoImage)

		return fmt.Errorf("form file: %w", err)
	}
	defer file.Close()

	// Check size and extension before reading the photo into memory
	if _, err := ht.wardrobeSvc.photoSvc.CheckUploadConstraints(header.Filename, header.Size, nil); err != nil {
		writeItemError(w, http.StatusBadRequest, err.Error())

		return fmt.Errorf("upload not allowed: %w", err)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeItemError(w, http.StatusBadRequest, msgInvalidForm)

		return fmt.Errorf("read %s: %w", header.Filename, err)
	}

	input := ItemInput{
		Name:     r.FormValue("itemName"),
		Type:     r.FormValue("type"),
		Color:    r.FormValue("color"),
		Season:   r.FormValue("season"),
		Tags:     r.FormValue("tags"),
		Favorite: r.FormValue("favorite") == "true",
	}

	if err := ht.validator.Validate(input); err != nil {
		writeItemError(w, http.StatusBadRequest, err.Error())

		return err
	}

	item, err := ht.wardrobeSvc.AddItem(r.Context(), input, Upload{Filename: header.Filename, Data: data})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSeason):
			writeItemError(w, http.StatusBadRequest, msgInvalidSeason)
		case errors.Is(err, domain.ErrPhotoTooLarge),
			errors.Is(err, domain.ErrPhotoTypeNotSupported),
			errors.Is(err, domain.ErrPhotoTypeMismatch):
			writeItemError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrUnauthorized):
			writeItemError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		case errors.Is(err, ErrUploadFailed):
			writeItemError(w, http.StatusInternalServerError, msgUploadFailed)
		default:
			writeItemError(w, http.StatusInternalServerError, msgServerFailed)
		}

		return fmt.Errorf("add item: %w", err)
	}

	return http_.WriteJSON(w, http.StatusOK, ItemResponse{Success: true, Item: item}) //nolint:exhaustruct
}

// HandleList returns the caller's items, newest first.
func (ht *HTTPTransport) HandleList(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleList(w, r)
}

func (ht *HTTPTransport) handleList(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.ErrorContext(ctx, "item list failed", "error", err)
		} else {
			log.DebugContext(ctx, "items listed")
		}
	}(r.Context())

	items, err := ht.wardrobeSvc.ListItems(r.Context())
	if err != nil {
		http_.WriteError(w, http.StatusInternalServerError, msgFetchFailed)

		return fmt.Errorf("list items: %w", err)
	}

	if items == nil {
		items = []*domain.ClothingItem{}
	}

	return http_.WriteJSON(w, http.StatusOK, ItemsResponse{Items: items})
}

// HandleGet returns a single item of the caller.
func (ht *HTTPTransport) HandleGet(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleGet(w, r)
}

func (ht *HTTPTransport) handleGet(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.DebugContext(ctx, "item lookup failed", "error", err)
		}
	}(r.Context())

	item, err := ht.wardrobeSvc.GetItem(r.Context(), chi.URLParam(r, "item_id"))
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			writeItemError(w, http.StatusNotFound, msgItemNotFound)
		} else {
			writeItemError(w, http.StatusInternalServerError, msgFetchFailed)
		}

		return fmt.Errorf("get item: %w", err)
	}

	return http_.WriteJSON(w, http.StatusOK, ItemResponse{Success: true, Item: item}) //nolint:exhaustruct
}

func writeItemError(w http.ResponseWriter, status int, message string) {
	_ = http_.WriteJSON(w, status, ItemResponse{Error: message}) //nolint:exhaustruct
}
