package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/ironsheep/xray-registration/internal/calibration"
	"github.com/ironsheep/xray-registration/internal/imaging"
	"github.com/ironsheep/xray-registration/internal/pairing"
	"github.com/ironsheep/xray-registration/internal/panel"
	"github.com/ironsheep/xray-registration/internal/report"
	"github.com/ironsheep/xray-registration/internal/stats"
)

// errNoStore is returned by tools that need the measurement history when the
// server runs without a database.
var errNoStore = errors.New("no database configured")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "xray_measure_image").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
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
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "xray_image_info":
		return s.handleImageInfo(args)

	case "xray_measure_image":
		return s.handleMeasureImage(args)
	case "xray_measure_panel":
		return s.handleMeasurePanel(args)

	case "xray_list_panels":
		return s.handleListPanels(args)

	case "xray_annotate_panel":
		return s.handleAnnotatePanel(args)
	case "xray_panel_history":
		return s.handlePanelHistory(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Image Information Handlers ===

type imageInfoArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageInfo(args json.RawMessage) (interface{}, error) {
	var a imageInfoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// === Measurement Handlers ===

type measureImageArgs struct {
	Path     string   `json:"path"`
	Diameter *float64 `json:"diameter"`
	Mode     string   `json:"mode"`
	Rotate   *bool    `json:"rotate"`
}

// MeasureImageResult is the xray_measure_image response.
type MeasureImageResult struct {
	File            string                  `json:"file"`
	Panel           string                  `json:"panel,omitempty"`
	Quadrant        panel.Quadrant          `json:"quadrant,omitempty"`
	NominalDiameter float64                 `json:"nominal_diameter"`
	Mode            pairing.Mode            `json:"mode"`
	Rotated         bool                    `json:"rotated"`
	Contours        int                     `json:"contours"`
	Rings           int                     `json:"rings"`
	Holes           int                     `json:"holes"`
	Candidates      []pairing.Candidate     `json:"candidates"`
	Unpaired        []pairing.Diagnostic    `json:"unpaired"`
	Accepted        []calibration.Pair      `json:"accepted"`
	Rejected        []calibration.Rejection `json:"rejected"`
	Statistic       stats.Statistic         `json:"statistic"`
}

func (s *Server) handleMeasureImage(args json.RawMessage) (interface{}, error) {
	var a measureImageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	spec, err := panel.ParseFilename(a.Path)
	if err != nil {
		if a.Diameter == nil {
			return nil, fmt.Errorf("%w; pass diameter to measure this file", err)
		}
		spec = panel.ImageSpec{
			Path: a.Path,
			Name: filepath.Base(a.Path),
		}
	}
	if a.Diameter != nil {
		spec.NominalDiameter = *a.Diameter
	}
	if a.Rotate != nil {
		spec.Orientation = imaging.AsScanned
		if *a.Rotate {
			spec.Orientation = imaging.Rotated180
		}
	}

	cfg := s.cfg
	if a.Mode != "" {
		if _, err := pairing.ParseMode(a.Mode); err != nil {
			return nil, err
		}
		override := *s.cfg
		override.Pairing.Mode = a.Mode
		cfg = &override
	}

	img, err := s.cache.LoadOriented(spec.Path, spec.Orientation)
	if err != nil {
		return nil, err
	}
	res, err := panel.MeasureImage(img, spec, cfg, s.extractor)
	if err != nil {
		return nil, err
	}

	return &MeasureImageResult{
		File:            spec.Name,
		Panel:           spec.Panel,
		Quadrant:        spec.Quadrant,
		NominalDiameter: spec.NominalDiameter,
		Mode:            res.Mode,
		Rotated:         spec.Orientation == imaging.Rotated180,
		Contours:        res.Contours,
		Rings:           res.Rings,
		Holes:           res.Holes,
		Candidates:      res.Pairing.Candidates,
		Unpaired:        res.Pairing.Unpaired,
		Accepted:        res.Calibration.Accepted,
		Rejected:        res.Calibration.Rejected,
		Statistic:       res.Statistic,
	}, nil
}

type panelArgs struct {
	Directory string `json:"directory"`
	Panel     string `json:"panel"`
}

// QuadrantSummary is the per-quadrant part of a panel response.
type QuadrantSummary struct {
	File      string          `json:"file"`
	Mode      pairing.Mode    `json:"mode"`
	Rings     int             `json:"rings"`
	Holes     int             `json:"holes"`
	Paired    int             `json:"paired"`
	Unpaired  int             `json:"unpaired"`
	Rejected  int             `json:"rejected"`
	Statistic stats.Statistic `json:"statistic"`
}

// PanelSummary is the xray_measure_panel response.
type PanelSummary struct {
	Panel     string                            `json:"panel"`
	Quadrants map[panel.Quadrant]QuadrantSummary `json:"quadrants"`
	Statistic stats.Statistic                   `json:"statistic"`
	Errors    []panel.QuadrantError             `json:"errors,omitempty"`
	RunID     string                            `json:"run_id,omitempty"`
}

func summarize(res *panel.PanelResult) *PanelSummary {
	sum := &PanelSummary{
		Panel:     res.Panel,
		Quadrants: make(map[panel.Quadrant]QuadrantSummary, len(res.Quadrants)),
		Statistic: res.Statistic,
		Errors:    res.Errors,
	}
	for q, r := range res.Quadrants {
		sum.Quadrants[q] = QuadrantSummary{
			File:      r.Spec.Name,
			Mode:      r.Mode,
			Rings:     r.Rings,
			Holes:     r.Holes,
			Paired:    len(r.Calibration.Accepted),
			Unpaired:  len(r.Pairing.Unpaired),
			Rejected:  len(r.Calibration.Rejected),
			Statistic: r.Statistic,
		}
	}
	return sum
}

func (a panelArgs) validate() error {
	if a.Directory == "" {
		return fmt.Errorf("directory is required")
	}
	if a.Panel == "" {
		return fmt.Errorf("panel is required")
	}
	return nil
}

// measurePanel finds the panel's images in dir, measures them and records
// the result when a store is configured.
func (s *Server) measurePanel(a panelArgs) (*panel.PanelResult, string, error) {
	if err := a.validate(); err != nil {
		return nil, "", err
	}
	paths, err := panel.ScanDir(a.Directory)
	if err != nil {
		return nil, "", err
	}
	groups, skipped := panel.GroupByPanel(paths)
	if s.cfg.Logging.Debug {
		for _, err := range skipped {
			log.Printf("Skipping %v", err)
		}
	}

	var group *panel.Group
	for i := range groups {
		if groups[i].Panel == a.Panel {
			group = &groups[i]
			break
		}
	}
	if group == nil {
		return nil, "", fmt.Errorf("panel %s not found in %s", a.Panel, a.Directory)
	}

	res := s.processor.MeasureGroup(context.Background(), *group)

	var runID string
	if s.store != nil {
		runID, err = s.store.StartRun(a.Directory)
		if err == nil {
			err = s.store.RecordPanel(runID, res)
		}
		if err != nil {
			log.Printf("Failed to record panel %s: %v", res.Panel, err)
			runID = ""
		}
	}
	return res, runID, nil
}

func (s *Server) handleMeasurePanel(args json.RawMessage) (interface{}, error) {
	var a panelArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	res, runID, err := s.measurePanel(a)
	if err != nil {
		return nil, err
	}
	sum := summarize(res)
	sum.RunID = runID
	return sum, nil
}

// === Panel Discovery Handlers ===

type listPanelsArgs struct {
	Directory string `json:"directory"`
}

// PanelListing is one panel of an xray_list_panels response.
type PanelListing struct {
	Panel  string                    `json:"panel"`
	Images map[panel.Quadrant]string `json:"images"`
}

// ListPanelsResult is the xray_list_panels response.
type ListPanelsResult struct {
	Directory string         `json:"directory"`
	Panels    []PanelListing `json:"panels"`
	Skipped   []string       `json:"skipped,omitempty"`
}

func (s *Server) handleListPanels(args json.RawMessage) (interface{}, error) {
	var a listPanelsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Directory == "" {
		return nil, fmt.Errorf("directory is required")
	}
	paths, err := panel.ScanDir(a.Directory)
	if err != nil {
		return nil, err
	}
	groups, skipped := panel.GroupByPanel(paths)

	out := &ListPanelsResult{Directory: a.Directory, Panels: make([]PanelListing, 0, len(groups))}
	for _, g := range groups {
		l := PanelListing{Panel: g.Panel, Images: make(map[panel.Quadrant]string, len(g.Images))}
		for _, img := range g.Images {
			l.Images[img.Quadrant] = img.Name
		}
		out.Panels = append(out.Panels, l)
	}
	for _, err := range skipped {
		out.Skipped = append(out.Skipped, err.Error())
	}
	return out, nil
}

// === Reporting Handlers ===

type annotatePanelArgs struct {
	panelArgs
	Output    string `json:"output"`
	Histogram *bool  `json:"histogram"`
}

// AnnotatePanelResult is the xray_annotate_panel response.
type AnnotatePanelResult struct {
	report.Outputs
	Panel     string          `json:"panel"`
	Statistic stats.Statistic `json:"statistic"`
	RunID     string          `json:"run_id,omitempty"`
}

func (s *Server) handleAnnotatePanel(args json.RawMessage) (interface{}, error) {
	var a annotatePanelArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Output == "" {
		a.Output = s.cfg.Output.Dir
	}
	histogram := s.cfg.Output.Histogram
	if a.Histogram != nil {
		histogram = *a.Histogram
	}

	res, runID, err := s.measurePanel(a.panelArgs)
	if err != nil {
		return nil, err
	}
	out, err := report.WritePanel(res, a.Output, s.cfg.Calibration.MaxOffset, histogram)
	if err != nil {
		return nil, err
	}
	return &AnnotatePanelResult{
		Outputs:   out,
		Panel:     res.Panel,
		Statistic: res.Statistic,
		RunID:     runID,
	}, nil
}

type panelHistoryArgs struct {
	Panel string `json:"panel"`
}

func (s *Server) handlePanelHistory(args json.RawMessage) (interface{}, error) {
	var a panelHistoryArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, errNoStore
	}
	if a.Panel == "" {
		return nil, fmt.Errorf("panel is required")
	}
	records, err := s.store.PanelHistory(a.Panel)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"panel":   a.Panel,
		"history": records,
	}, nil
}
