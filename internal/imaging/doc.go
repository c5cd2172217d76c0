// Package imaging loads captured frames and renders guidance artefacts.
//
// Frames are decoded once through ImageCache and optionally downscaled with
// LoadFrame before detection. Normalized boxes from the alignment package are
// mapped onto pixels by BoxRect, which backs CropBox (cut the detected vehicle
// out of the frame) and Overlay (draw the guide region and the detection in
// its status colour).
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner. Regions are
// half-open: (x1,y1) is inclusive, (x2,y2) is exclusive.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Cached images are shared and must be
// treated as read-only; every operation here copies before drawing.
//
// # Output Format
//
// Rendered images are returned as base64-encoded PNG so they can travel inside
// a JSON tool result.
package imaging
