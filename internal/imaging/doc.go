// Package imaging loads X-ray images from disk for measurement.
//
// Decoded images are kept in a thread-safe [ImageCache] keyed by path and
// orientation. Bottom-quadrant images are turned 180 degrees at load time with
// disintegration/imaging so every quadrant of a panel is measured in the same
// frame of reference.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward. Rotated images are
// re-based so their bounds start at (0,0).
package imaging
