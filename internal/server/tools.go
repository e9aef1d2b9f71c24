package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image Information
		{
			Name:        "xray_image_info",
			Description: "Load an X-ray image and return its dimensions, format and bit depth.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},

		// Measurement
		{
			Name: "xray_measure_image",
			Description: "Measure drill registration in one quadrant X-ray image. Returns ring and hole counts, " +
				"the ring/hole candidates, unpaired rings with the reason, accepted and rejected calibrated pairs, " +
				"and the mean/min/max physical offset in mils (\"N/A\" when nothing was paired). " +
				"Drill diameter, pairing mode and rotation default to what the P##QQ_### file name says.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"diameter": map[string]interface{}{
						"type":        "number",
						"description": "Nominal drill diameter in mils. Required when the file name does not follow the P##QQ_### convention.",
					},
					"mode": map[string]interface{}{
						"type":        "string",
						"description": "Pairing mode: \"adjacent\", \"offset:K\" or \"tree:D\" (default: from file name and configuration)",
					},
					"rotate": map[string]interface{}{
						"type":        "boolean",
						"description": "Rotate the image 180 degrees before measuring (default: true for bottom quadrants)",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name: "xray_measure_panel",
			Description: "Measure every quadrant image of one panel in a directory. Returns per-quadrant statistics, " +
				"the panel statistic over all accepted offsets, and the quadrants that failed.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"directory": map[string]interface{}{
						"type":        "string",
						"description": "Directory containing the quadrant images",
					},
					"panel": map[string]interface{}{
						"type":        "string",
						"description": "Two-digit panel number, e.g. \"01\"",
					},
				},
				"required": []string{"directory", "panel"},
			},
		},

		// Panel Discovery
		{
			Name:        "xray_list_panels",
			Description: "List the panels found in a directory and the quadrant images of each. Files that do not follow the naming convention are reported separately.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"directory": map[string]interface{}{
						"type":        "string",
						"description": "Directory containing the quadrant images",
					},
				},
				"required": []string{"directory"},
			},
		},

		// Reporting
		{
			Name: "xray_annotate_panel",
			Description: "Measure one panel and write the annotated 2x2 registration mosaic, and optionally the offset histogram. " +
				"Returns the written paths and the panel statistic.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"directory": map[string]interface{}{
						"type":        "string",
						"description": "Directory containing the quadrant images",
					},
					"panel": map[string]interface{}{
						"type":        "string",
						"description": "Two-digit panel number, e.g. \"01\"",
					},
					"output": map[string]interface{}{
						"type":        "string",
						"description": "Output directory (default: configured output directory)",
					},
					"histogram": map[string]interface{}{
						"type":        "boolean",
						"description": "Also write the offset histogram (default: configured value)",
					},
				},
				"required": []string{"directory", "panel"},
			},
		},
		{
			Name:        "xray_panel_history",
			Description: "Return every recorded measurement of a panel, oldest first. Requires the server to run with a database.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"panel": map[string]interface{}{
						"type":        "string",
						"description": "Two-digit panel number, e.g. \"01\"",
					},
				},
				"required": []string{"panel"},
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
