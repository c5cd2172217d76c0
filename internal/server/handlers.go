package server

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/frame-guide-mcp/internal/alignment"
	"github.com/ironsheep/frame-guide-mcp/internal/detection"
	"github.com/ironsheep/frame-guide-mcp/internal/imaging"
	"github.com/ironsheep/frame-guide-mcp/internal/logging"
	"github.com/ironsheep/frame-guide-mcp/internal/vehicleapi"
	"github.com/ironsheep/frame-guide-mcp/internal/verify"
)

// Detection sources accepted by frame_guide.
const (
	sourceEdge   = "edge"
	sourceRemote = "remote"
)

// Source status values reported by frame_guide.
const (
	sourceOK            = "ok"
	sourceUnavailable   = "unavailable"
	sourceNotConfigured = "not_configured"
)

var (
	errPathRequired = errors.New("path is required")
	errNoVehicle    = errors.New("no vehicle detected")
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "frame_guide").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments jsoniter.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	log := logging.WithCall(s.log, params.Name)
	start := time.Now()

	result, err := s.executeTool(ctx, log, params.Name, params.Arguments)
	if err != nil {
		log.WithError(err).Warn("tool call failed")
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}

	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.WithError(err).Error("failed to encode tool result")
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}
	log.WithField("elapsed", time.Since(start)).Debug("tool call done")

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": string(text),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, log *logrus.Entry, name string, args jsoniter.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = jsoniter.RawMessage("{}")
	}

	switch name {
	case toolFrameInfo:
		return s.handleFrameInfo(args)
	case toolDetectEdges:
		return s.handleDetectEdges(args)
	case toolAnalyzeAlignment:
		return s.handleAnalyzeAlignment(args)
	case toolGuide:
		return s.handleGuide(ctx, log, args)
	case toolOverlay:
		return s.handleOverlay(args)
	case toolCropDetection:
		return s.handleCropDetection(args)
	case toolVerifyCases:
		return s.handleVerifyCases(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// === Shared helpers ===

// expectedOrDefault falls back to the configured guide region.
func (s *Server) expectedOrDefault(expected *alignment.Box) *alignment.Box {
	if expected != nil {
		return expected
	}
	guide := s.settings.GuideRegion()
	return &guide
}

func (s *Server) analysisOptions(overrides *alignment.ThresholdOverrides, locale string) alignment.Options {
	base := s.settings.AlignmentThresholds()
	opts := alignment.Options{
		Base:       &base,
		Thresholds: overrides,
		Locale:     s.settings.MessageLocale(),
	}
	if locale != "" {
		opts.Locale = alignment.ParseLocale(locale)
	}
	return opts
}

// loadFrame returns the frame downscaled to the configured maximum dimension.
func (s *Server) loadFrame(path string) (image.Image, error) {
	if path == "" {
		return nil, errPathRequired
	}
	return imaging.LoadFrame(s.cache, path, s.settings.Frame.MaxDimension)
}

func (s *Server) detectEdges(frame detection.Frame, expected *alignment.Box, opts detection.EdgeOptions) alignment.DetectionResult {
	det := detection.DetectVehicleEdges(frame, expected, opts)
	s.metrics.ObserveEdgeDetection(det)
	return det
}

func (s *Server) analyze(det *alignment.DetectionResult, expected *alignment.Box, opts alignment.Options) alignment.GuidanceResult {
	result := alignment.Analyze(det, expected, opts)
	s.metrics.ObserveAnalysis(result)
	return result
}

// === Frame information ===

type frameInfoArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleFrameInfo(args jsoniter.RawMessage) (interface{}, error) {
	var a frameInfoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errPathRequired
	}
	return imaging.LoadFrameInfo(s.cache, a.Path)
}

// === Edge detection ===

type detectEdgesArgs struct {
	Path       string         `json:"path"`
	RGBABase64 string         `json:"rgba_base64"`
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	Expected   *alignment.Box `json:"expected"`
	Margin     *float64       `json:"margin"`
	Threshold  *float64       `json:"threshold"`
	SampleStep *int           `json:"sample_step"`
}

func (a detectEdgesArgs) options(base detection.EdgeOptions) detection.EdgeOptions {
	return base.Merge(&detection.EdgeOverrides{
		Margin:     a.Margin,
		Threshold:  a.Threshold,
		SampleStep: a.SampleStep,
	})
}

func (s *Server) handleDetectEdges(args jsoniter.RawMessage) (interface{}, error) {
	var a detectEdgesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	var frame detection.Frame
	switch {
	case a.Path != "" && a.RGBABase64 != "":
		return nil, errors.New("give either path or rgba_base64, not both")
	case a.RGBABase64 != "":
		if a.Width <= 0 || a.Height <= 0 {
			return nil, fmt.Errorf("invalid frame size %dx%d", a.Width, a.Height)
		}
		pix, err := base64.StdEncoding.DecodeString(a.RGBABase64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode rgba_base64: %w", err)
		}
		frame = detection.Frame{Pix: pix, Width: a.Width, Height: a.Height}
	default:
		img, err := s.loadFrame(a.Path)
		if err != nil {
			return nil, err
		}
		frame = detection.FrameFromImage(img)
	}

	det := s.detectEdges(frame, s.expectedOrDefault(a.Expected), a.options(s.settings.EdgeOptions()))
	return det, nil
}

// === Alignment analysis ===

type analyzeAlignmentArgs struct {
	Detection  *alignment.DetectionResult    `json:"detection"`
	Expected   *alignment.Box                `json:"expected"`
	Thresholds *alignment.ThresholdOverrides `json:"thresholds"`
	Locale     string                        `json:"locale"`
}

func (s *Server) handleAnalyzeAlignment(args jsoniter.RawMessage) (interface{}, error) {
	var a analyzeAlignmentArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.analyze(a.Detection, s.expectedOrDefault(a.Expected), s.analysisOptions(a.Thresholds, a.Locale)), nil
}

// === Guidance ===

type guideArgs struct {
	Path       string                        `json:"path"`
	Expected   *alignment.Box                `json:"expected"`
	Source     string                        `json:"source"`
	Thresholds *alignment.ThresholdOverrides `json:"thresholds"`
	Locale     string                        `json:"locale"`
}

// GuideResult is the frame_guide answer. Detection and Guidance are absent
// when the source could not produce a detection at all.
type GuideResult struct {
	Source       string                     `json:"source"`
	SourceStatus string                     `json:"source_status"`
	Error        string                     `json:"error,omitempty"`
	Detection    *alignment.DetectionResult `json:"detection,omitempty"`
	Guidance     *alignment.GuidanceResult  `json:"guidance,omitempty"`
}

func (s *Server) handleGuide(ctx context.Context, log *logrus.Entry, args jsoniter.RawMessage) (interface{}, error) {
	var a guideArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Source == "" {
		a.Source = sourceEdge
	}
	expected := s.expectedOrDefault(a.Expected)

	var det alignment.DetectionResult
	switch a.Source {
	case sourceEdge:
		img, err := s.loadFrame(a.Path)
		if err != nil {
			return nil, err
		}
		det = s.detectEdges(detection.FrameFromImage(img), expected, s.settings.EdgeOptions())

	case sourceRemote:
		if a.Path == "" {
			return nil, errPathRequired
		}
		if s.vehicles == nil || !s.vehicles.Configured() {
			return &GuideResult{
				Source:       a.Source,
				SourceStatus: sourceNotConfigured,
				Error:        vehicleapi.ErrNotConfigured.Error(),
			}, nil
		}

		img, err := s.cache.Load(a.Path)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(a.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}

		bounds := img.Bounds()
		det, err = s.vehicles.Detect(ctx, data, bounds.Dx(), bounds.Dy())
		if err != nil {
			status := sourceUnavailable
			if errors.Is(err, vehicleapi.ErrNotConfigured) {
				status = sourceNotConfigured
			}
			log.WithError(err).WithField("source_status", status).Warn("remote detection unavailable")
			return &GuideResult{Source: a.Source, SourceStatus: status, Error: err.Error()}, nil
		}

	default:
		return nil, fmt.Errorf("unknown source %q: want %q or %q", a.Source, sourceEdge, sourceRemote)
	}

	guidance := s.analyze(&det, expected, s.analysisOptions(a.Thresholds, a.Locale))
	log.WithFields(logrus.Fields{
		"source":       a.Source,
		"frame_status": guidance.FrameStatus,
		"confidence":   guidance.Confidence,
	}).Debug("frame guided")

	return &GuideResult{
		Source:       a.Source,
		SourceStatus: sourceOK,
		Detection:    &det,
		Guidance:     &guidance,
	}, nil
}

// === Overlay ===

type overlayArgs struct {
	Path       string                        `json:"path"`
	Expected   *alignment.Box                `json:"expected"`
	Detection  *alignment.DetectionResult    `json:"detection"`
	Thresholds *alignment.ThresholdOverrides `json:"thresholds"`
	Locale     string                        `json:"locale"`
}

// overlayResult adds the guidance the colours were chosen from.
type overlayResult struct {
	*imaging.OverlayResult
	Guidance alignment.GuidanceResult `json:"guidance"`
}

func (s *Server) handleOverlay(args jsoniter.RawMessage) (interface{}, error) {
	var a overlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadFrame(a.Path)
	if err != nil {
		return nil, err
	}
	expected := s.expectedOrDefault(a.Expected)

	det := a.Detection
	if det == nil {
		found := s.detectEdges(detection.FrameFromImage(img), expected, s.settings.EdgeOptions())
		det = &found
	}
	guidance := s.analyze(det, expected, s.analysisOptions(a.Thresholds, a.Locale))

	out, err := imaging.Overlay(img, *expected, &guidance)
	if err != nil {
		return nil, err
	}
	return &overlayResult{OverlayResult: out, Guidance: guidance}, nil
}

// === Crop ===

type cropDetectionArgs struct {
	Path     string         `json:"path"`
	Box      *alignment.Box `json:"box"`
	Expected *alignment.Box `json:"expected"`
	Scale    float64        `json:"scale"`
}

type cropDetectionResult struct {
	*imaging.CropResult
	Box alignment.Box `json:"box"`
}

func (s *Server) handleCropDetection(args jsoniter.RawMessage) (interface{}, error) {
	var a cropDetectionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}

	box := a.Box
	if box == nil {
		small, err := s.loadFrame(a.Path)
		if err != nil {
			return nil, err
		}
		det := s.detectEdges(detection.FrameFromImage(small), s.expectedOrDefault(a.Expected), s.settings.EdgeOptions())
		if !det.HasVehicle || det.BBox == nil {
			return nil, errNoVehicle
		}
		box = det.BBox
	}

	if a.Path == "" {
		return nil, errPathRequired
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	out, err := imaging.CropBox(img, *box, a.Scale)
	if err != nil {
		return nil, err
	}
	return &cropDetectionResult{CropResult: out, Box: *box}, nil
}

// === Verification ===

type verifyCasesArgs struct {
	Path       string                        `json:"path"`
	Thresholds *alignment.ThresholdOverrides `json:"thresholds"`
	Locale     string                        `json:"locale"`
}

func (s *Server) handleVerifyCases(args jsoniter.RawMessage) (interface{}, error) {
	var a verifyCasesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errPathRequired
	}
	cases, err := verify.LoadCases(a.Path)
	if err != nil {
		return nil, err
	}
	return verify.Run(cases, s.analysisOptions(a.Thresholds, a.Locale)), nil
}
