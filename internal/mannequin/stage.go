package mannequin

import (
	"context"
	"sync"

	"github.com/mkrupp/vcloset/internal/infra/logging"
)

// Scene lists what a stage currently shows. At most one of Mannequin and Asset is set.
type Scene struct {
	Mannequin *Group       `json:"mannequin,omitempty"`
	Asset     *PlacedAsset `json:"asset,omitempty"`
}

// Stage owns the try-on scene: the mannequin built from the current parameters and
// the optional external asset replacing it. The stage disposes every group and asset
// it replaces, and everything it holds on Close.
type Stage struct {
	mu sync.Mutex

	loader AssetLoader
	params Params

	mannequin *Group
	attached  bool

	assetMode bool
	assetURL  string
	asset     *Asset
	loadErr   error

	generation uint64
	closed     bool

	ctx    context.Context //nolint:containedctx
	cancel context.CancelFunc

	// pending counts running loads, idle is closed whenever it is zero
	pending int
	idle    chan struct{}

	log logging.Logger
}

// NewStage creates a stage showing a mannequin built from params. Asset loads run
// under ctx and are cancelled by Close.
func NewStage(ctx context.Context, loader AssetLoader, params Params) *Stage {
	ctx, cancel := context.WithCancel(ctx)

	idle := make(chan struct{})
	close(idle)

	stage := &Stage{
		loader: loader,
		params: params,
		ctx:    ctx,
		cancel: cancel,
		idle:   idle,
		log:    logging.GetLogger("mannequin.stage"),
	}

	stage.rebuild()

	return stage
}

// Params returns the current parameters.
func (s *Stage) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.params
}

// SetParams updates the parameters. Outside asset mode the mannequin is disposed and
// rebuilt. In asset mode the mannequin stays detached and a loaded asset is refitted
// to the new height.
func (s *Stage) SetParams(params Params) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.params = params

	if s.assetMode {
		return
	}

	s.rebuild()
}

// UseAsset switches between the mannequin and the asset at url. Enabling detaches the
// mannequin, disposes any previous asset and starts loading url in the background;
// an empty url shows nothing. Disabling disposes the asset and shows a mannequin
// for the current parameters. Either way a pending load is abandoned.
func (s *Stage) UseAsset(enabled bool, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.generation++
	s.disposeAsset()

	if !enabled {
		s.assetMode = false
		s.assetURL = ""
		s.rebuild()

		return
	}

	s.assetMode = true
	s.assetURL = url
	s.attached = false

	if url == "" {
		return
	}

	if s.pending == 0 {
		s.idle = make(chan struct{})
	}

	s.pending++

	go s.load(s.generation, url)
}

func (s *Stage) load(generation uint64, url string) {
	asset, err := s.loader.Load(s.ctx, url)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.loadDone()

	if s.closed || generation != s.generation {
		if asset != nil {
			asset.Dispose()
		}

		return
	}

	if err != nil {
		s.log.DebugContext(s.ctx, "asset load ignored", "url", url, "error", err)
		s.loadErr = err

		return
	}

	s.asset = asset
}

// loadDone must be called with s.mu held.
func (s *Stage) loadDone() {
	s.pending--

	if s.pending == 0 {
		close(s.idle)
	}
}

// Wait blocks until no load is in flight or ctx is done. A load started after the
// stage went idle is not waited for.
func (s *Stage) Wait(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck
	}
}

// LoadErr returns the error of the last failed load of the current asset URL.
func (s *Stage) LoadErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadErr
}

// Snapshot reports what the stage currently shows.
func (s *Stage) Snapshot() Scene {
	s.mu.Lock()
	defer s.mu.Unlock()

	var scene Scene

	if s.attached {
		scene.Mannequin = s.mannequin
	}

	if s.asset != nil {
		scene.Asset = &PlacedAsset{
			URL:    s.asset.URL,
			Bounds: s.asset.Bounds,
			Fit:    FitAsset(s.asset.Bounds, s.params.HeightCm),
		}
	}

	return scene
}

// Close abandons pending loads, waits for them to return and disposes the
// mannequin and the asset. Closing twice is a no-op.
func (s *Stage) Close() {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()

		return
	}

	s.closed = true
	s.generation++
	s.cancel()
	idle := s.idle
	s.mu.Unlock()

	<-idle

	s.mu.Lock()
	defer s.mu.Unlock()

	s.mannequin.Dispose()
	s.mannequin = nil
	s.attached = false
	s.disposeAsset()
}

// rebuild replaces the mannequin. The previous group is disposed before the new
// one is built.
func (s *Stage) rebuild() {
	s.mannequin.Dispose()
	s.mannequin = Build(s.params)
	s.attached = true
}

func (s *Stage) disposeAsset() {
	if s.asset != nil {
		s.asset.Dispose()
		s.asset = nil
	}

	s.loadErr = nil
}
