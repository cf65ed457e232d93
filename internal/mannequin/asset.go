package mannequin

import (
	"context"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AssetLoader fetches an external 3-D asset.
type AssetLoader interface {
	Load(ctx context.Context, url string) (*Asset, error)
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min mgl64.Vec3 `json:"min"`
	Max mgl64.Vec3 `json:"max"`
}

// EmptyBounds returns bounds that any Extend call replaces.
func EmptyBounds() Bounds {
	inf := math.Inf(1)

	return Bounds{
		Min: mgl64.Vec3{inf, inf, inf},
		Max: mgl64.Vec3{-inf, -inf, -inf},
	}
}

// IsEmpty reports whether the bounds contain no point.
func (b Bounds) IsEmpty() bool {
	return b.Max.X() < b.Min.X() || b.Max.Y() < b.Min.Y() || b.Max.Z() < b.Min.Z()
}

// Extend returns the bounds grown to contain p.
func (b Bounds) Extend(p mgl64.Vec3) Bounds {
	for i := range 3 {
		b.Min[i] = math.Min(b.Min[i], p[i])
		b.Max[i] = math.Max(b.Max[i], p[i])
	}

	return b
}

// Size returns the extent along each axis.
func (b Bounds) Size() mgl64.Vec3 {
	if b.IsEmpty() {
		return mgl64.Vec3{}
	}

	return b.Max.Sub(b.Min)
}

// Center returns the midpoint of the bounds.
func (b Bounds) Center() mgl64.Vec3 {
	if b.IsEmpty() {
		return mgl64.Vec3{}
	}

	return b.Min.Add(b.Max).Mul(0.5)
}

// Fit is the uniform scale and translation placing an asset in the scene.
type Fit struct {
	Scale       float64    `json:"scale"`
	Translation mgl64.Vec3 `json:"translation"`
}

// FitAsset scales the asset so its height matches a mannequin of heightCm and moves
// the centre of the scaled bounds to the origin. A flat asset is not scaled.
func FitAsset(bounds Bounds, heightCm float64) Fit {
	targetHeight := heightCm / ReferenceHeightCm * ReferenceDisplayHeight

	sizeY := bounds.Size().Y()
	if sizeY == 0 {
		sizeY = 1
	}

	scale := targetHeight / sizeY

	return Fit{
		Scale:       scale,
		Translation: bounds.Center().Mul(-scale),
	}
}

// Asset is a loaded external model.
type Asset struct {
	resource

	URL    string `json:"url"`
	Bounds Bounds `json:"bounds"`
}

// PlacedAsset is an asset together with its current placement.
type PlacedAsset struct {
	URL    string `json:"url"`
	Bounds Bounds `json:"bounds"`
	Fit    Fit    `json:"fit"`
}
