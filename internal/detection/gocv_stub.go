//go:build !gocv
// +build !gocv

package detection

// NewGoCVExtractor is a stub when OpenCV support is disabled.
// Build with -tags=gocv to enable it.
func NewGoCVExtractor(opts Options) (Extractor, error) {
	return nil, ErrGoCVUnavailable
}
