// Package panel applies the registration measurement to real X-ray files.
//
// A panel is X-rayed in four quadrant images named P##QQ_###[...]: panel
// number, quadrant (TL, TR, BL, BR) and drill diameter in tenths of a mil.
// The name also selects the pairing regime. Bottom quadrants are rotated 180
// degrees at load time.
//
// Each image runs through extraction, contour filtering, classification,
// pairing and calibration independently. [Processor.MeasurePanel] measures the
// quadrants of one panel concurrently, then concatenates their accepted
// offsets and reduces them once into the panel statistic. A quadrant that
// fails is reported and skipped.
package panel
