// Package detection turns an X-ray image into the unfiltered contour forest
// consumed by the contour registry.
//
// # Pipeline
//
//  1. Grayscale conversion and Gaussian blur
//  2. Adaptive mean threshold, binary inverse (dark features become foreground)
//  3. Morphological opening with an elliptical kernel
//  4. Contour retrieval in tree mode: every boundary is reported together with
//     its next, previous, first child and parent links
//
// Two backends implement [Extractor]. The default one is pure Go: filters come
// from bild and the contour tree is built by region labelling followed by
// Moore neighbour boundary tracing. Building with -tags=gocv enables an OpenCV
// backend through gocv.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// Boundary points are pixel centres of the traced region, listed clockwise on
// screen starting at the region's first pixel in raster order.
package detection
