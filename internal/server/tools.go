package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// Tool names.
const (
	toolFrameInfo        = "frame_info"
	toolDetectEdges      = "frame_detect_edges"
	toolAnalyzeAlignment = "frame_analyze_alignment"
	toolGuide            = "frame_guide"
	toolOverlay          = "frame_overlay"
	toolCropDetection    = "frame_crop_detection"
	toolVerifyCases      = "frame_verify_cases"
)

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the captured frame (PNG, JPEG or GIF)",
	}
}

func boxProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": description,
		"properties": map[string]interface{}{
			"x":      map[string]interface{}{"type": "number", "description": "Left edge, fraction of frame width"},
			"y":      map[string]interface{}{"type": "number", "description": "Top edge, fraction of frame height"},
			"width":  map[string]interface{}{"type": "number", "description": "Width, fraction of frame width"},
			"height": map[string]interface{}{"type": "number", "description": "Height, fraction of frame height"},
		},
	}
}

func expectedProperty() map[string]interface{} {
	return boxProperty("Guide region the vehicle should fill. Defaults to the configured guide region.")
}

func thresholdsProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": "Per-call overrides of the frame status thresholds. Omitted fields keep the configured values.",
		"properties": map[string]interface{}{
			"matched_confidence": map[string]interface{}{"type": "number"},
			"good_confidence":    map[string]interface{}{"type": "number"},
			"adjust_confidence":  map[string]interface{}{"type": "number"},
			"matched_iou":        map[string]interface{}{"type": "number"},
		},
	}
}

func localeProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Message language, e.g. \"en\" or \"zh\". Defaults to the configured locale.",
	}
}

func detectionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": "A detection result as returned by frame_detect_edges",
		"properties": map[string]interface{}{
			"has_vehicle": map[string]interface{}{"type": "boolean"},
			"bbox":        boxProperty("Detected vehicle box"),
			"score":       map[string]interface{}{"type": "number", "description": "Detector confidence in [0,1]"},
		},
		"required": []string{"has_vehicle"},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        toolFrameInfo,
			Description: "Load a captured frame and return its width, height, format, alpha and file size. The frame is cached for later calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name: toolDetectEdges,
			Description: "Estimate the vehicle bounding box inside the guide region from luminance edges. " +
				"Accepts either a frame path or a raw RGBA buffer (rgba_base64 with width and height).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"rgba_base64": map[string]interface{}{
						"type":        "string",
						"description": "Base64 encoded RGBA pixels, row-major, 4 bytes per pixel",
					},
					"width":    map[string]interface{}{"type": "integer", "description": "Pixel width of rgba_base64"},
					"height":   map[string]interface{}{"type": "integer", "description": "Pixel height of rgba_base64"},
					"expected": expectedProperty(),
					"margin": map[string]interface{}{
						"type":        "number",
						"description": "Fraction of the frame added around the guide region. Default 0.03",
					},
					"threshold": map[string]interface{}{
						"type":        "number",
						"description": "Minimum luminance difference counted as an edge. Default 36",
					},
					"sample_step": map[string]interface{}{
						"type":        "integer",
						"description": "Pixel stride of the scan. Default 2",
					},
				},
			},
		},
		{
			Name:        toolAnalyzeAlignment,
			Description: "Score how well a detection matches the guide region and return a frame status with a framing hint.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"detection":  detectionProperty(),
					"expected":   expectedProperty(),
					"thresholds": thresholdsProperty(),
					"locale":     localeProperty(),
				},
				"required": []string{"detection"},
			},
		},
		{
			Name: toolGuide,
			Description: "Detect the vehicle in a captured frame and return framing guidance. " +
				"source \"edge\" runs the local edge detector; \"remote\" asks the configured vehicle detection API.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":     pathProperty(),
					"expected": expectedProperty(),
					"source": map[string]interface{}{
						"type":        "string",
						"enum":        []string{sourceEdge, sourceRemote},
						"description": "Detection source. Default edge",
						"default":     sourceEdge,
					},
					"thresholds": thresholdsProperty(),
					"locale":     localeProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name: toolOverlay,
			Description: "Draw the guide region (dashed) and the detected vehicle box coloured by frame status on the frame. " +
				"Returns a base64 PNG. Without a detection argument the edge detector is run.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":       pathProperty(),
					"expected":   expectedProperty(),
					"detection":  detectionProperty(),
					"thresholds": thresholdsProperty(),
					"locale":     localeProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name: toolCropDetection,
			Description: "Crop a normalized box out of the frame at full resolution and return it as a base64 PNG. " +
				"Without a box the edge detector's vehicle box is used.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":     pathProperty(),
					"box":      boxProperty("Region to crop"),
					"expected": expectedProperty(),
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor. Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        toolVerifyCases,
			Description: "Run a JSON file of labelled detections through the alignment analyzer and report which cases reach their expected frame status.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the cases file",
					},
					"thresholds": thresholdsProperty(),
					"locale":     localeProperty(),
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
