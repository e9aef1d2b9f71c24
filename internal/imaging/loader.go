package imaging

import (
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
)

// Orientation selects how an image is turned after decoding.
type Orientation int

const (
	// AsScanned leaves the image as stored on disk.
	AsScanned Orientation = iota

	// Rotated180 turns the image half a revolution. Bottom-quadrant X-rays are
	// shot from the opposite side of the panel and are rotated so that all
	// four quadrants share one frame of reference.
	Rotated180
)

func (o Orientation) String() string {
	if o == Rotated180 {
		return "rotated180"
	}
	return "as-scanned"
}

type cacheKey struct {
	path   string
	orient Orientation
}

// ImageCache provides thread-safe caching of decoded X-ray images to avoid
// redundant disk reads.
//
// Entries are keyed by the exact path string and the orientation requested,
// so a rotated copy never shadows the original. Cached images remain in
// memory until removed via Evict() or Clear().
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	img, err := cache.LoadOriented("/scans/P07BL_135.png", imaging.Rotated180)
//	if err != nil {
//	    log.Fatal(err)
//	}
type ImageCache struct {
	mu     sync.RWMutex
	images map[cacheKey]image.Image
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[cacheKey]image.Image),
	}
}

// Load retrieves an image as scanned. See LoadOriented.
func (c *ImageCache) Load(path string) (image.Image, error) {
	return c.LoadOriented(path, AsScanned)
}

// LoadOriented retrieves an image from the cache or decodes it from disk and
// applies the requested orientation. Supported formats are PNG, JPEG and
// TIFF.
//
// Rotated images are returned as *image.NRGBA; unrotated ones keep the
// concrete type of the decoder.
func (c *ImageCache) LoadOriented(path string, orient Orientation) (image.Image, error) {
	key := cacheKey{path: path, orient: orient}

	c.mu.RLock()
	if img, ok := c.images[key]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	var img image.Image
	if orient == AsScanned {
		var err error
		if img, err = decode(path); err != nil {
			return nil, err
		}
	} else {
		src, err := c.Load(path)
		if err != nil {
			return nil, err
		}
		img = imaging.Rotate180(src)
	}

	c.mu.Lock()
	c.images[key] = img
	c.mu.Unlock()

	return img, nil
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[cacheKey]image.Image)
	c.mu.Unlock()
}

// Evict removes every orientation of path from the cache. If the path is not
// in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, cacheKey{path: path, orient: AsScanned})
	delete(c.images, cacheKey{path: path, orient: Rotated180})
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// ImageInfo contains metadata about an X-ray image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the detected image format: "png", "jpeg", "tiff", or "unknown".
	// Detection is based on file extension, not file contents.
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	// Radiography detectors commonly produce 16-bit grayscale.
	ColorDepth string `json:"color_depth"`

	// Grayscale is true when the decoder produced a single-channel image.
	Grayscale bool `json:"grayscale"`

	// HasAlpha indicates whether the image has an alpha (transparency) channel.
	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image and returns metadata about it.
//
// The image is loaded into the cache (if not already cached) as scanned.
//
// # Color Depth Detection
//
// Color depth is determined by the Go image type:
//   - *image.RGBA64, *image.NRGBA64, *image.Gray16 -> "16-bit"
//   - All other types -> "8-bit"
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".tif", ".tiff":
		format = "tiff"
	}

	info := &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		ColorDepth:    "8-bit",
		FileSizeBytes: stat.Size(),
	}
	switch img.(type) {
	case *image.RGBA, *image.NRGBA:
		info.HasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		info.HasAlpha = true
		info.ColorDepth = "16-bit"
	case *image.Gray:
		info.Grayscale = true
	case *image.Gray16:
		info.Grayscale = true
		info.ColorDepth = "16-bit"
	}
	return info, nil
}
