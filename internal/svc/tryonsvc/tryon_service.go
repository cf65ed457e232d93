// Package tryonsvc renders try-on previews: the parametric mannequin or a fitted
// external avatar.
package tryonsvc

import (
	"context"
	"time"

	"github.com/mkrupp/vcloset/internal/infra/logging"
	"github.com/mkrupp/vcloset/internal/mannequin"
)

// TryOnConfig holds configuration parameters for the try-on service.
type TryOnConfig struct {
	// AssetTimeout bounds how long an avatar request waits for its asset.
	AssetTimeout time.Duration `env:"ASSET_TIMEOUT" default:"10s"`

	GLTF mannequin.GLTFLoaderConfig `envPrefix:"GLTF_"`
}

// Preview is a rendered try-on scene. Fallback is set when an avatar was requested
// but could not be loaded, so clients can show the mannequin instead.
type Preview struct {
	Params   mannequin.Params `json:"params"`
	Scene    mannequin.Scene  `json:"scene"`
	Fallback bool             `json:"fallback"`
}

// TryOnService builds previews on a stage per request.
type TryOnService struct {
	loader mannequin.AssetLoader
	cfg    TryOnConfig
	log    logging.Logger
}

// NewTryOnService creates a new TryOnService loading avatars through loader.
func NewTryOnService(loader mannequin.AssetLoader, cfg TryOnConfig) *TryOnService {
	return &TryOnService{
		loader: loader,
		cfg:    cfg,
		log:    logging.GetLogger("svc.tryonsvc.tryon_service"),
	}
}

// Mannequin renders the mannequin for params.
func (svc *TryOnService) Mannequin(ctx context.Context, params mannequin.Params) Preview {
	stage := mannequin.NewStage(ctx, svc.loader, params)
	defer stage.Close()

	svc.log.DebugContext(ctx, "mannequin built", logging.Group("params",
		"height", params.HeightCm,
		"weight", params.WeightKg,
		"bodyType", params.BodyType,
	))

	return Preview{Params: params, Scene: stage.Snapshot()} //nolint:exhaustruct
}

// Avatar renders the asset at url fitted to params. An empty url renders an empty
// scene. Load failures and timeouts render an empty scene with Fallback set.
func (svc *TryOnService) Avatar(ctx context.Context, params mannequin.Params, url string) Preview {
	stage := mannequin.NewStage(ctx, svc.loader, params)
	defer stage.Close()

	stage.UseAsset(true, url)

	waitCtx, cancel := context.WithTimeout(ctx, svc.cfg.AssetTimeout)
	defer cancel()

	if err := stage.Wait(waitCtx); err != nil {
		svc.log.DebugContext(ctx, "avatar load timed out", "url", url, "error", err)
	} else if err := stage.LoadErr(); err != nil {
		svc.log.DebugContext(ctx, "avatar load failed", "url", url, "error", err)
	}

	scene := stage.Snapshot()

	return Preview{
		Params:   params,
		Scene:    scene,
		Fallback: url != "" && scene.Asset == nil,
	}
}
