package photosvc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"golang.org/x/image/draw"
)

// ErrUnknownInterpolator is returned when an unsupported interpolation method is specified.
var ErrUnknownInterpolator = errors.New("unknown interpolator")

//nolint:gochecknoglobals
var (
	// interpolMap maps interpolator names to their implementations.
	// Supported values: "nearestneighbor", "catmullrom", "bilinear", "approxbilinear".
	interpolMap = map[string]draw.Interpolator{
		"nearestneighbor": draw.NearestNeighbor,
		"catmullrom":      draw.CatmullRom,
		"bilinear":        draw.BiLinear,
		"approxbilinear":  draw.ApproxBiLinear,
	}
)

func getInterpolatorByName(name string) (draw.Interpolator, error) {
	interpol, ok := interpolMap[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInterpolator, name)
	}

	return interpol, nil
}

// resizeImage resizes an image to the specified width while maintaining aspect ratio.
// Images are never upscaled, a photo narrower than width is re-encoded at its own size.
// Returns the encoded rendition and its MIME type, which differs from ctype for
// formats that can only be decoded.
func resizeImage(data []byte, ctype string, width int, interpolator string) ([]byte, string, error) {
	interpol, err := getInterpolatorByName(interpolator)
	if err != nil {
		return nil, "", fmt.Errorf("get interpolator: %w", err)
	}

	original, err := decodeImage(bytes.NewReader(data), ctype)
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	bounds := original.Bounds()
	width = min(width, bounds.Dx())
	height := max(1, int(float64(bounds.Dy())*float64(width)/float64(bounds.Dx())))

	bitmap := image.NewRGBA(image.Rect(0, 0, width, height))
	interpol.Scale(bitmap, bitmap.Bounds(), original, bounds, draw.Over, nil)

	outType := encodedType(ctype)

	resized, err := encodeImage(bitmap, outType)
	if err != nil {
		return nil, "", fmt.Errorf("encode image: %w", err)
	}

	return resized, outType, nil
}

// decodeImage decodes a binary image into a Go image.Image object.
func decodeImage(reader io.Reader, ctype string) (image.Image, error) {
	decoder, err := getDecoderByType(ctype)
	if err != nil {
		return nil, err
	}

	img, err := decoder(reader)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ctype, err)
	}

	return img, nil
}

// encodeImage encodes a Go image.Image object into binary format.
func encodeImage(bitmap image.Image, ctype string) ([]byte, error) {
	encoder, err := getEncoderByType(ctype)
	if err != nil {
		return nil, fmt.Errorf("get encoder: %w", err)
	}

	var buf bytes.Buffer
	if err := encoder(&buf, bitmap); err != nil {
		return nil, fmt.Errorf("encode %s: %w", ctype, err)
	}

	return buf.Bytes(), nil
}
