// Package alignment turns a vehicle detection into capture guidance.
//
// Given a detected bounding box and the target region the capture UI draws on
// screen, Analyze computes normalized geometry (center offset, area ratio,
// IoU), blends it with the detector score into a confidence in [0,1] and maps
// the confidence onto a FrameStatus with a message for the user.
//
// # Coordinate System
//
// Boxes are normalized to the frame: (0,0) is the top-left corner, X grows to
// the right, Y grows downward and 1 is the full frame width or height.
//
// # Statuses
//
// Statuses are evaluated in priority order, first match wins:
//
//  1. matched   - confidence >= MatchedConfidence and IoU > MatchedIoU
//  2. good      - confidence >= GoodConfidence
//  3. adjust    - confidence >= AdjustConfidence, message is a directional hint
//  4. detecting - anything else, message is a directional hint
//
// # Thread Safety
//
// Every function in this package is pure. Nothing is retained between calls,
// so Analyze may run concurrently for any number of frames.
package alignment
