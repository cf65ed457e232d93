package mannequin

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"

	"github.com/mkrupp/vcloset/internal/infra/logging"
)

var (
	// ErrUnsupportedAssetURL is returned for URLs that are not absolute http(s) URLs.
	ErrUnsupportedAssetURL = errors.New("unsupported asset url")
	// ErrAssetFetch is returned when the asset host answers with a non-200 status.
	ErrAssetFetch = errors.New("asset fetch failed")
	// ErrAssetTooLarge is returned for assets above the configured size.
	ErrAssetTooLarge = errors.New("asset too large")
	// ErrInvalidAsset is returned for data that is not a glTF document.
	ErrInvalidAsset = errors.New("invalid gltf asset")
	// ErrEmptyAsset is returned for documents without any positioned geometry.
	ErrEmptyAsset = errors.New("asset has no geometry")
	// ErrForbiddenAddress is returned when an asset host resolves to a loopback,
	// private, link-local or unspecified address outside the allowed networks.
	ErrForbiddenAddress = errors.New("asset address not allowed")
)

// sharedAddressSpace is the carrier-grade NAT range, not covered by netip.Addr.IsPrivate.
//
//nolint:gochecknoglobals
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

const (
	glbMagic     = 0x46546C67 // "glTF"
	glbChunkJSON = 0x4E4F534A // "JSON"
	glbHeaderLen = 12
	glbChunkHead = 8

	attrPosition = "POSITION"
)

// GLTFLoaderConfig configures the glTF asset loader.
type GLTFLoaderConfig struct {
	// MaxSize is the largest asset accepted in bytes.
	// Default is 50MB.
	MaxSize int64 `env:"MAX_SIZE" default:"52428800"`

	// Timeout bounds a single download.
	Timeout time.Duration `env:"TIMEOUT" default:"15s"`

	// AllowedNetworks lists CIDR prefixes exempt from the private address check,
	// e.g. "10.20.0.0/16" for an internal asset host.
	AllowedNetworks []string `env:"ALLOWED_NETWORKS" default:""`
}

// GLTFLoader fetches .gltf and .glb models over HTTP and computes their bounds.
type GLTFLoader struct {
	client *http.Client
	cfg    GLTFLoaderConfig
	log    logging.Logger
}

var _ AssetLoader = (*GLTFLoader)(nil)

// NewGLTFLoader creates a loader. A nil client uses a client with the configured
// timeout that only dials public addresses and the allowed networks. Redirects are
// checked the same way since every connection goes through the dialer.
func NewGLTFLoader(cfg GLTFLoaderConfig, client *http.Client) *GLTFLoader {
	log := logging.GetLogger("mannequin.gltf_loader")

	if client == nil {
		client = newPublicClient(cfg, log)
	}

	return &GLTFLoader{
		client: client,
		cfg:    cfg,
		log:    log,
	}
}

func newPublicClient(cfg GLTFLoaderConfig, log logging.Logger) *http.Client {
	allowed := make([]netip.Prefix, 0, len(cfg.AllowedNetworks))

	for _, network := range cfg.AllowedNetworks {
		prefix, err := netip.ParsePrefix(network)
		if err != nil {
			log.Error("ignoring invalid allowed network", "network", network, "error", err)

			continue
		}

		allowed = append(allowed, prefix.Masked())
	}

	//nolint:exhaustruct
	dialer := &net.Dialer{
		Timeout: cfg.Timeout,
		Control: func(_, address string, _ syscall.RawConn) error {
			return checkAddress(address, allowed)
		},
	}

	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	return &http.Client{Timeout: cfg.Timeout, Transport: transport} //nolint:exhaustruct
}

// checkAddress rejects resolved addresses that are not publicly routable unless they
// fall into one of the allowed prefixes.
func checkAddress(address string, allowed []netip.Prefix) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrForbiddenAddress, address)
	}

	ip, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrForbiddenAddress, address)
	}

	ip = ip.WithZone("").Unmap()

	for _, prefix := range allowed {
		if prefix.Contains(ip) {
			return nil
		}
	}

	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() ||
		sharedAddressSpace.Contains(ip) {
		return fmt.Errorf("%w: %s", ErrForbiddenAddress, ip)
	}

	return nil
}

// Load implements AssetLoader.
func (l *GLTFLoader) Load(ctx context.Context, assetURL string) (asset *Asset, err error) {
	log := l.log.With(logging.Group("asset", "url", assetURL))

	defer func() {
		if err != nil {
			log.DebugContext(ctx, "asset load failed", "error", err)
		} else {
			log.DebugContext(ctx, "asset loaded", "size", asset.Bounds.Size())
		}
	}()

	u, err := url.Parse(assetURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAssetURL, assetURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrAssetFetch, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.cfg.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read asset: %w", err)
	} else if int64(len(data)) > l.cfg.MaxSize {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrAssetTooLarge, l.cfg.MaxSize)
	}

	bounds, err := AssetBounds(data)
	if err != nil {
		return nil, err
	}

	return &Asset{URL: assetURL, Bounds: bounds}, nil //nolint:exhaustruct
}

// AssetBounds computes the world-space bounds of the default scene of a .gltf or
// .glb document from the POSITION accessor limits. Buffers are not read.
func AssetBounds(data []byte) (Bounds, error) {
	doc, err := decodeDocument(data)
	if err != nil {
		return Bounds{}, err
	}

	bounds := EmptyBounds()
	visited := make(map[int]bool, len(doc.Nodes))

	var visit func(idx int, parent mgl64.Mat4)

	visit = func(idx int, parent mgl64.Mat4) {
		if idx >= len(doc.Nodes) || visited[idx] {
			return
		}

		visited[idx] = true
		node := doc.Nodes[idx]
		world := parent.Mul4(localTransform(node))

		if node.Mesh != nil && int(*node.Mesh) < len(doc.Meshes) {
			bounds = extendByMesh(bounds, doc, doc.Meshes[*node.Mesh], world)
		}

		for _, child := range node.Children {
			visit(int(child), world)
		}
	}

	for _, root := range sceneRoots(doc) {
		visit(root, mgl64.Ident4())
	}

	if bounds.IsEmpty() {
		return Bounds{}, ErrEmptyAsset
	}

	return bounds, nil
}

func decodeDocument(data []byte) (*gltf.Document, error) {
	if len(data) >= glbHeaderLen && binary.LittleEndian.Uint32(data) == glbMagic {
		chunk, err := glbJSONChunk(data)
		if err != nil {
			return nil, err
		}

		data = chunk
	}

	doc := new(gltf.Document)
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAsset, err)
	}

	return doc, nil
}

// glbJSONChunk returns the JSON chunk that starts every binary glTF container.
func glbJSONChunk(data []byte) ([]byte, error) {
	total := binary.LittleEndian.Uint32(data[8:12])
	if int(total) > len(data) || len(data) < glbHeaderLen+glbChunkHead {
		return nil, fmt.Errorf("%w: truncated glb", ErrInvalidAsset)
	}

	chunkLen := binary.LittleEndian.Uint32(data[12:16])
	chunkType := binary.LittleEndian.Uint32(data[16:20])

	start := glbHeaderLen + glbChunkHead
	if chunkType != glbChunkJSON || uint64(start)+uint64(chunkLen) > uint64(len(data)) {
		return nil, fmt.Errorf("%w: missing json chunk", ErrInvalidAsset)
	}

	return bytes.TrimRight(data[start:start+int(chunkLen)], " \x00"), nil
}

// sceneRoots returns the root nodes of the default scene, of the first scene if
// none is marked default, or every parentless node if there are no scenes.
func sceneRoots(doc *gltf.Document) []int {
	if len(doc.Scenes) > 0 {
		idx := 0
		if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) {
			idx = int(*doc.Scene)
		}

		roots := make([]int, 0, len(doc.Scenes[idx].Nodes))
		for _, node := range doc.Scenes[idx].Nodes {
			roots = append(roots, int(node))
		}

		return roots
	}

	isChild := make(map[int]bool)

	for _, node := range doc.Nodes {
		for _, child := range node.Children {
			isChild[int(child)] = true
		}
	}

	roots := make([]int, 0, len(doc.Nodes))

	for idx := range doc.Nodes {
		if !isChild[idx] {
			roots = append(roots, idx)
		}
	}

	return roots
}

// localTransform returns the node matrix, or T * R * S when the node has none.
func localTransform(node *gltf.Node) mgl64.Mat4 {
	var m mgl64.Mat4
	for i, v := range node.MatrixOrDefault() {
		m[i] = float64(v)
	}

	if m != mgl64.Ident4() {
		return m
	}

	t := node.TranslationOrDefault()
	r := node.RotationOrDefault()
	s := node.ScaleOrDefault()

	rotation := mgl64.Quat{
		W: float64(r[3]),
		V: mgl64.Vec3{float64(r[0]), float64(r[1]), float64(r[2])},
	}.Normalize()

	return mgl64.Translate3D(float64(t[0]), float64(t[1]), float64(t[2])).
		Mul4(rotation.Mat4()).
		Mul4(mgl64.Scale3D(float64(s[0]), float64(s[1]), float64(s[2])))
}

// extendByMesh transforms the corners of every primitive's POSITION box into world
// space and adds them to bounds.
func extendByMesh(bounds Bounds, doc *gltf.Document, mesh *gltf.Mesh, world mgl64.Mat4) Bounds {
	for _, primitive := range mesh.Primitives {
		idx, ok := primitive.Attributes[attrPosition]
		if !ok || int(idx) >= len(doc.Accessors) {
			continue
		}

		accessor := doc.Accessors[idx]
		if len(accessor.Min) < 3 || len(accessor.Max) < 3 {
			continue
		}

		lo, hi := accessor.Min, accessor.Max

		for corner := range 8 {
			p := mgl64.Vec4{float64(lo[0]), float64(lo[1]), float64(lo[2]), 1}

			if corner&1 != 0 {
				p[0] = float64(hi[0])
			}

			if corner&2 != 0 {
				p[1] = float64(hi[1])
			}

			if corner&4 != 0 {
				p[2] = float64(hi[2])
			}

			bounds = bounds.Extend(world.Mul4x1(p).Vec3())
		}
	}

	return bounds
}
