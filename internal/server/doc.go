// Package server implements the MCP (Model Context Protocol) server for
// vehicle framing guidance.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - frame_info: Load a frame and describe it
//   - frame_detect_edges: Edge based vehicle box from a file or raw RGBA buffer
//   - frame_analyze_alignment: Frame status and hint for a given detection
//   - frame_guide: Detect (edge or remote) and analyze in one call
//   - frame_overlay: Draw the guide and detection boxes on the frame
//   - frame_crop_detection: Crop the vehicle box at full resolution
//   - frame_verify_cases: Replay labelled detections through the analyzer
//
// Boxes are normalized to the frame: x, y, width and height are fractions of
// the frame size. Omitted guide regions, edge options, thresholds and locales
// come from the configuration the server was built with.
//
// # Remote Detection
//
// frame_guide with source "remote" sends the original file bytes to the
// configured VehicleDetector. A remote failure is not a detection: the result
// carries source_status "unavailable" (or "not_configured") and the error
// text, with no detection and no guidance.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(
//	    server.WithLogger(logger),
//	    server.WithSettings(settings),
//	)
//	if err := srv.Run(ctx); err != nil {
//	    logger.Fatal(err)
//	}
package server
