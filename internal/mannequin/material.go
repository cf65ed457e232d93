package mannequin

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// ErrInvalidColor is returned for values that are neither hex colours nor CSS names.
var ErrInvalidColor = errors.New("invalid color")

//nolint:gochecknoglobals
var (
	// SkinTone is the fixed colour of the mannequin's head.
	SkinTone = MustParseColor("#f5d1b5")

	DefaultTopColor    = MustParseColor("#1d4ed8")
	DefaultBottomColor = MustParseColor("#f97316")
)

// Color is an sRGB colour. It marshals to and from "#rrggbb".
type Color struct {
	c colorful.Color
}

// ParseColor parses "#rgb", "#rrggbb" or a CSS colour name such as "navy".
func ParseColor(value string) (Color, error) {
	value = strings.ToLower(strings.TrimSpace(value))

	if !strings.HasPrefix(value, "#") {
		rgba, ok := colornames.Map[value]
		if !ok {
			return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, value)
		}

		c, _ := colorful.MakeColor(rgba)

		return Color{c: c}, nil
	}

	if len(value) == 4 {
		value = string([]byte{'#', value[1], value[1], value[2], value[2], value[3], value[3]})
	}

	if len(value) != len("#rrggbb") {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, value)
	}

	c, err := colorful.Hex(value)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, value)
	}

	return Color{c: c}, nil
}

// MustParseColor is like ParseColor but panics on invalid input.
func MustParseColor(value string) Color {
	c, err := ParseColor(value)
	if err != nil {
		panic(err)
	}

	return c
}

// Hex returns the colour as "#rrggbb".
func (c Color) Hex() string {
	return c.c.Clamped().Hex()
}

// RGB returns the colour's channels in [0, 1].
func (c Color) RGB() (float64, float64, float64) {
	return c.c.R, c.c.G, c.c.B
}

// String implements fmt.Stringer.
func (c Color) String() string {
	return c.Hex()
}

// MarshalJSON implements json.Marshaler.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Hex()) //nolint:wrapcheck
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Color) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("unmarshal color: %w", err)
	}

	parsed, err := ParseColor(value)
	if err != nil {
		return err
	}

	*c = parsed

	return nil
}

// Material is a physically based surface material.
type Material struct {
	resource

	Color     Color   `json:"color"`
	Roughness float64 `json:"roughness"`
	Metalness float64 `json:"metalness"`
}

// GarmentMaterial creates the material of a clothed body part.
func GarmentMaterial(c Color) *Material {
	return &Material{Color: c, Roughness: 0.6, Metalness: 0.05}
}

// SkinMaterial creates the material of the head.
func SkinMaterial() *Material {
	return &Material{Color: SkinTone, Roughness: 0.8, Metalness: 0}
}
