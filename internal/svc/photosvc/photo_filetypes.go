package photosvc

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"github.com/mkrupp/vcloset/internal/domain"
)

const (
	MIMETypeJPEG = "image/jpeg"
	MIMETypePNG  = "image/png"
	MIMETypeTIFF = "image/tiff"
	MIMETypeWebP = "image/webp"
)

//nolint:gochecknoglobals
var (
	photoExtTypes = map[string]string{
		".jpg":  MIMETypeJPEG,
		".jpeg": MIMETypeJPEG,
		".png":  MIMETypePNG,
		".tiff": MIMETypeTIFF,
		".tif":  MIMETypeTIFF,
		".webp": MIMETypeWebP,
	}

	photoMagic = map[string]func([]byte) bool{
		MIMETypeJPEG: hasPrefix("\xFF\xD8"),
		MIMETypePNG:  hasPrefix("\x89\x50\x4E\x47\x0D\x0A\x1A\x0A"),
		MIMETypeTIFF: hasPrefix("\x49\x49\x2A\x00", "\x4D\x4D\x00\x2A"),
		MIMETypeWebP: func(data []byte) bool {
			return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
		},
	}

	photoDecoders = map[string]func(io.Reader) (image.Image, error){
		MIMETypeJPEG: jpeg.Decode,
		MIMETypeTIFF: tiff.Decode,
		MIMETypePNG:  png.Decode,
		MIMETypeWebP: webp.Decode,
	}

	photoEncoders = map[string]func(io.Writer, image.Image) error{
		MIMETypeJPEG: func(w io.Writer, i image.Image) error { return jpeg.Encode(w, i, &jpeg.Options{Quality: 85}) },
		MIMETypeTIFF: func(w io.Writer, i image.Image) error { return tiff.Encode(w, i, nil) },
		MIMETypePNG:  png.Encode,
	}

	// x/image has no WebP encoder, resized WebP photos are served as PNG
	photoEncodeAs = map[string]string{
		MIMETypeWebP: MIMETypePNG,
	}
)

func hasPrefix(prefixes ...string) func([]byte) bool {
	return func(data []byte) bool {
		for _, prefix := range prefixes {
			if bytes.HasPrefix(data, []byte(prefix)) {
				return true
			}
		}

		return false
	}
}

// MIMETypeForExt returns the MIME type accepted for a lowercase file extension.
func MIMETypeForExt(ext string) (string, bool) {
	mimeType, ok := photoExtTypes[ext]

	return mimeType, ok
}

func encodedType(mimeType string) string {
	if target, ok := photoEncodeAs[mimeType]; ok {
		return target
	}

	return mimeType
}

func getDecoderByType(mimeType string) (func(io.Reader) (image.Image, error), error) {
	decoder, ok := photoDecoders[mimeType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrPhotoTypeNotSupported, mimeType)
	}

	return decoder, nil
}

func getEncoderByType(mimeType string) (func(io.Writer, image.Image) error, error) {
	encoder, ok := photoEncoders[mimeType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrPhotoTypeNotSupported, mimeType)
	}

	return encoder, nil
}
