package mannequin

import (
	"encoding/json"

	"github.com/go-gl/mathgl/mgl64"
)

// resource tracks the release of a renderer-side buffer.
type resource struct {
	disposed bool
}

// Dispose releases the resource. Releasing twice is a no-op.
func (r *resource) Dispose() {
	r.disposed = true
}

// Disposed reports whether the resource has been released.
func (r *resource) Disposed() bool {
	return r.disposed
}

// Geometry is a primitive shape of a mesh.
type Geometry interface {
	Kind() string
	Dispose()
	Disposed() bool
}

// Capsule is a cylinder of the given length capped by two hemispheres, aligned with
// the Y axis.
type Capsule struct {
	resource

	Radius         float64 `json:"radius"`
	Length         float64 `json:"length"`
	CapSegments    int     `json:"capSegments"`
	RadialSegments int     `json:"radialSegments"`
}

var _ Geometry = (*Capsule)(nil)

// NewCapsule creates a capsule with the mannequin's tessellation.
func NewCapsule(radius, length float64) *Capsule {
	return &Capsule{
		Radius:         radius,
		Length:         length,
		CapSegments:    capSegments,
		RadialSegments: radialSegments,
	}
}

// Kind implements Geometry.
func (c *Capsule) Kind() string {
	return "capsule"
}

// MarshalJSON implements json.Marshaler and adds the geometry kind.
func (c *Capsule) MarshalJSON() ([]byte, error) {
	type capsule Capsule

	//nolint:wrapcheck
	return json.Marshal(struct {
		Type string `json:"type"`
		*capsule
	}{c.Kind(), (*capsule)(c)})
}

// Sphere is a UV sphere centred on its position.
type Sphere struct {
	resource

	Radius         float64 `json:"radius"`
	WidthSegments  int     `json:"widthSegments"`
	HeightSegments int     `json:"heightSegments"`
}

var _ Geometry = (*Sphere)(nil)

// NewSphere creates a sphere with the mannequin's tessellation.
func NewSphere(radius float64) *Sphere {
	return &Sphere{
		Radius:         radius,
		WidthSegments:  headSegments,
		HeightSegments: headSegments,
	}
}

// Kind implements Geometry.
func (s *Sphere) Kind() string {
	return "sphere"
}

// MarshalJSON implements json.Marshaler and adds the geometry kind.
func (s *Sphere) MarshalJSON() ([]byte, error) {
	type sphere Sphere

	//nolint:wrapcheck
	return json.Marshal(struct {
		Type string `json:"type"`
		*sphere
	}{s.Kind(), (*sphere)(s)})
}

// Mesh places a geometry with a material relative to its group. Rotation holds
// Euler angles in radians, applied in XYZ order.
type Mesh struct {
	Name     string     `json:"name"`
	Geometry Geometry   `json:"geometry"`
	Material *Material  `json:"material"`
	Position mgl64.Vec3 `json:"position"`
	Rotation mgl64.Vec3 `json:"rotation"`
}

// Group is a scaled set of meshes. Materials may be shared between meshes of the
// same group.
type Group struct {
	Scale    mgl64.Vec3 `json:"scale"`
	Children []*Mesh    `json:"children"`

	disposed bool
}

// Mesh returns the child with the given name or nil.
func (g *Group) Mesh(name string) *Mesh {
	for _, mesh := range g.Children {
		if mesh.Name == name {
			return mesh
		}
	}

	return nil
}

// Dispose releases the geometry and materials of every child. Releasing twice is a
// no-op, as is releasing a nil group.
func (g *Group) Dispose() {
	if g == nil || g.disposed {
		return
	}

	for _, mesh := range g.Children {
		if mesh.Geometry != nil {
			mesh.Geometry.Dispose()
		}

		if mesh.Material != nil {
			mesh.Material.Dispose()
		}
	}

	g.disposed = true
}

// Disposed reports whether the group has been released.
func (g *Group) Disposed() bool {
	return g.disposed
}
