// Package detection finds a coarse vehicle region in a camera frame.
//
// DetectVehicleEdges is a cheap, per-frame detector meant to run before a
// slower remote classifier is available. It does not recognise vehicles; it
// looks for a dense cluster of strong luma edges around the region the
// capture UI expects the vehicle to occupy, and reports that cluster as a
// normalized alignment.Box with a density-derived score.
//
// # Algorithm
//
//  1. Grow the expected region by a margin and convert it to pixel bounds,
//     kept one pixel inside the frame.
//  2. Walk the window every SampleStep pixels. Luma uses ITU-R BT.601 weights
//     (0.299*R + 0.587*G + 0.114*B).
//  3. A pixel is an edge when its luma differs from the right or lower
//     neighbour by more than Threshold. Track the count and the bounding box.
//  4. Reject sparse or degenerate clusters, otherwise normalize the box and
//     map density onto a score in [0.45, 0.95].
//
// # Limitations
//
// Any textured object inside the window produces edges, so busy backgrounds
// read as a vehicle. The score is an empirical mapping, not a probability.
//
// # Thread Safety
//
// DetectVehicleEdges reads the frame and allocates nothing shared. Callers may
// scan many frames concurrently.
package detection
