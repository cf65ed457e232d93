package photosvc

// PhotoConfig holds configuration parameters for the photo service.
type PhotoConfig struct {
	// MaxSize is the maximum allowed file size for uploaded photos in bytes.
	// Default is 20MB.
	MaxSize int64 `env:"MAX_SIZE" default:"20971520"`

	// MaxWidth is the largest width a resized rendition may be requested at.
	MaxWidth int `env:"MAX_WIDTH" default:"2048"`

	// Interpolator specifies the image scaling algorithm to use.
	// Valid values are: "nearestneighbor", "catmullrom", "bilinear", "approxbilinear"
	Interpolator string `env:"INTERPOLATOR" default:"catmullrom"`
}
