// Package mannequin builds the parametric try-on mannequin and manages the scene that
// shows either the mannequin or an externally supplied 3-D asset.
package mannequin

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// ReferenceHeightCm is the height of the unscaled mannequin.
	ReferenceHeightCm = 170.0
	// ReferenceWeightKg is the weight of the unscaled mannequin.
	ReferenceWeightKg = 70.0
	// ReferenceDisplayHeight is the height in scene units an asset of reference
	// height is displayed at.
	ReferenceDisplayHeight = 2.1

	capSegments    = 8
	radialSegments = 16
	headSegments   = 24
)

// Mesh names within a mannequin group.
const (
	PartTorso    = "torso"
	PartHips     = "hips"
	PartHead     = "head"
	PartLeftArm  = "leftArm"
	PartRightArm = "rightArm"
	PartLeftLeg  = "leftLeg"
	PartRightLeg = "rightLeg"
)

// BodyType is a coarse silhouette category scaling the mannequin's radii.
type BodyType string

const (
	BodyTypeSlim     BodyType = "slim"
	BodyTypeAverage  BodyType = "average"
	BodyTypeAthletic BodyType = "athletic"
	BodyTypeFull     BodyType = "full"
)

// ErrInvalidBodyType is returned by ParseBodyType for unknown names.
var ErrInvalidBodyType = errors.New("invalid body type")

// ParseBodyType parses a body type case-insensitively. An empty value means average.
func ParseBodyType(value string) (BodyType, error) {
	switch bodyType := BodyType(strings.ToLower(strings.TrimSpace(value))); bodyType {
	case "":
		return BodyTypeAverage, nil
	case BodyTypeSlim, BodyTypeAverage, BodyTypeAthletic, BodyTypeFull:
		return bodyType, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidBodyType, value)
	}
}

// TorsoWidth is the multiplier applied to the torso and hip radii. Unknown body
// types behave as average.
func (bt BodyType) TorsoWidth() float64 {
	switch bt {
	case BodyTypeSlim:
		return 0.9
	case BodyTypeAthletic:
		return 1.1
	case BodyTypeFull:
		return 1.25
	default:
		return 1.0
	}
}

// LimbScale is the multiplier applied to arm and leg thickness. Unknown body types
// behave as average.
func (bt BodyType) LimbScale() float64 {
	switch bt {
	case BodyTypeSlim:
		return 0.9
	case BodyTypeAthletic:
		return 1.1
	case BodyTypeFull:
		return 1.15
	default:
		return 1.0
	}
}

// Params are the inputs of Build. Height and weight are not validated, a zero
// value collapses the mannequin.
type Params struct {
	HeightCm    float64  `json:"heightCm"`
	WeightKg    float64  `json:"weightKg"`
	BodyType    BodyType `json:"bodyType"`
	TopColor    Color    `json:"topColor"`
	BottomColor Color    `json:"bottomColor"`
}

// DefaultParams returns the parameters of the initial try-on view: 5 ft 7 in,
// 154 lb, average build, blue top and orange bottom.
func DefaultParams() Params {
	heightCm, weightKg := ToMetric(DefaultImperial())

	return Params{
		HeightCm:    heightCm,
		WeightKg:    weightKg,
		BodyType:    BodyTypeAverage,
		TopColor:    DefaultTopColor,
		BottomColor: DefaultBottomColor,
	}
}

// Scale returns the group scale for the parameters.
func (p Params) Scale() mgl64.Vec3 {
	mass := p.WeightKg / ReferenceWeightKg

	return mgl64.Vec3{mass, p.HeightCm / ReferenceHeightCm, mass}
}

// Build creates a new mannequin group. Every call allocates fresh geometry and
// materials. The caller owns the group and must Dispose it when replacing it.
func Build(p Params) *Group {
	w := p.BodyType.TorsoWidth()
	l := p.BodyType.LimbScale()

	top := GarmentMaterial(p.TopColor)
	bottom := GarmentMaterial(p.BottomColor)
	skin := SkinMaterial()

	arm := func(name string, side float64) *Mesh {
		return &Mesh{
			Name:     name,
			Geometry: NewCapsule(0.08*l, 0.5),
			Material: top,
			Position: mgl64.Vec3{side * 0.42 * w, 1.35, 0},
			Rotation: mgl64.Vec3{0, 0, math.Pi / 2},
		}
	}

	leg := func(name string, side float64) *Mesh {
		return &Mesh{
			Name:     name,
			Geometry: NewCapsule(0.1*l, 0.7),
			Material: bottom,
			Position: mgl64.Vec3{side * 0.16 * w, 0.1, 0},
		}
	}

	return &Group{
		Scale: p.Scale(),
		Children: []*Mesh{
			{Name: PartTorso, Geometry: NewCapsule(0.28*w, 0.7), Material: top, Position: mgl64.Vec3{0, 1.3, 0}},
			{Name: PartHips, Geometry: NewCapsule(0.25*w, 0.6), Material: bottom, Position: mgl64.Vec3{0, 0.5, 0}},
			{Name: PartHead, Geometry: NewSphere(0.18), Material: skin, Position: mgl64.Vec3{0, 1.9, 0}},
			arm(PartLeftArm, -1),
			arm(PartRightArm, 1),
			leg(PartLeftLeg, -1),
			leg(PartRightLeg, 1),
		},
	}
}
