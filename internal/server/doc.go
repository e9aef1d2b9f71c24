// Package server implements the MCP (Model Context Protocol) server for X-ray
// drill registration.
//
// This package provides a JSON-RPC 2.0 server that exposes the registration
// pipeline through the MCP protocol, so an assistant can inspect quadrant
// images, measure panels and produce the annotated reports.
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
// Image Information:
//   - xray_image_info: Dimensions, format and bit depth
//
// Measurement:
//   - xray_measure_image: Pair rings with holes in one quadrant image
//   - xray_measure_panel: Measure all quadrants of a panel
//
// Panel Discovery:
//   - xray_list_panels: Group a directory by panel and quadrant
//
// Reporting:
//   - xray_annotate_panel: Write the 2x2 registration mosaic and histogram
//   - xray_panel_history: Recorded measurements of a panel
//
// # Image Caching
//
// Images are cached by path and orientation for the lifetime of the server,
// so measuring a panel after listing or inspecting it does not decode the
// files again.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv := server.New(cfg, extractor, st)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
