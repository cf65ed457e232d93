package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mkrupp/vcloset/internal/infra/config"
	"github.com/mkrupp/vcloset/internal/infra/logging"
	"github.com/mkrupp/vcloset/internal/infra/transport/http"
	"github.com/mkrupp/vcloset/internal/mannequin"
	"github.com/mkrupp/vcloset/internal/repo/blob"
	"github.com/mkrupp/vcloset/internal/repo/wardrobe"
	"github.com/mkrupp/vcloset/internal/svc/authsvc/authclient"
	"github.com/mkrupp/vcloset/internal/svc/photosvc"
	"github.com/mkrupp/vcloset/internal/svc/stylistsvc"
	"github.com/mkrupp/vcloset/internal/svc/tryonsvc"
	"github.com/mkrupp/vcloset/internal/svc/wardrobesvc"
)

const (
	appName = "vcloset"
	svcName = "closetsvc"
)

type Config struct {
	config.EnvConfig

	Log  logging.LoggerConfig     `envPrefix:"LOG_"`
	HTTP http.HTTPTransportConfig `envPrefix:"HTTP_"`

	// PublicURL is the externally reachable base URL of this service
	PublicURL string `env:"PUBLIC_URL" default:"http://localhost:8081"`

	AuthClient authclient.HTTPClientConfig `envPrefix:"AUTH_CLIENT_"`
	Blob       blob.RepositoryConfig       `envPrefix:"BLOB_"`

	Photo     photosvc.PhotoConfig                    `envPrefix:"PHOTO_"`
	PhotoHTTP photosvc.HTTPTransportConfig            `envPrefix:"PHOTO_HTTP_"`
	Wardrobe  wardrobe.SQLiteWardrobeRepositoryConfig `envPrefix:"WARDROBE_"`
	ItemHTTP  wardrobesvc.HTTPTransportConfig         `envPrefix:"WARDROBE_HTTP_"`
	TryOn     tryonsvc.TryOnConfig                    `envPrefix:"TRYON_"`
	TryOnHTTP tryonsvc.HTTPTransportConfig            `envPrefix:"TRYON_HTTP_"`
	Stylist   stylistsvc.StylistConfig                `envPrefix:"STYLIST_"`
	StyleHTTP stylistsvc.HTTPTransportConfig          `envPrefix:"STYLIST_HTTP_"`
}

func main() {
	var (
		cfg Config

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		panic(err)
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	if err := run(ctx, cfg); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, cfg Config) (err error) {
	defer func() {
		log := logging.GetLogger("cmd.closetsvc")

		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)

			return
		}

		log.InfoContext(ctx, "shutdown")
	}()

	blobRepoFactory, err := blob.NewRepositoryFactory(cfg.Blob)
	if err != nil {
		return fmt.Errorf("new blob repository factory: %w", err)
	}

	photoSvc, err := photosvc.NewBlobPhotoService(
		ctx,
		blobRepoFactory,
		strings.TrimRight(cfg.PublicURL, "/")+"/media",
		cfg.Photo,
	)
	if err != nil {
		return fmt.Errorf("new photo service: %w", err)
	}

	wardrobeSvc, err := wardrobesvc.NewWardrobeService(
		ctx,
		wardrobe.SQLiteWardrobeRepositoryFactory(cfg.Wardrobe),
		photoSvc,
	)
	if err != nil {
		return fmt.Errorf("new wardrobe service: %w", err)
	}
	defer wardrobeSvc.Close()

	tryOnSvc := tryonsvc.NewTryOnService(mannequin.NewGLTFLoader(cfg.TryOn.GLTF, nil), cfg.TryOn)
	stylistSvc := stylistsvc.NewStylistService(cfg.Stylist, nil)
	authClient := authclient.NewHTTPClient(cfg.AuthClient, nil)

	router := http.NewRouter(
		photosvc.NewHTTPTransport(photoSvc, authClient, cfg.PhotoHTTP),
		wardrobesvc.NewHTTPTransport(wardrobeSvc, authClient, cfg.ItemHTTP),
		tryonsvc.NewHTTPTransport(tryOnSvc, cfg.TryOnHTTP),
		stylistsvc.NewHTTPTransport(stylistSvc, cfg.StyleHTTP),
	)

	if err := http.ListenAndServe(ctx, router, cfg.HTTP); err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}
