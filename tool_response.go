package mcp

import (
	"encoding/json"
	"fmt"
)

// ToolResponse represents the response from a tool
type ToolResponse struct {
	Content           []ToolContent `json:"content"`
	StructuredContent any           `json:"structuredContent,omitempty"`
}

func NewToolResponseText(text string) *ToolResponse {
	return &ToolResponse{Content: []ToolContent{{Type: "text", Text: text}}}
}

func NewToolResponseJSON(data any) *ToolResponse {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return NewToolResponseText(fmt.Sprintf("Error marshaling data: %v", err))
	}
	return NewToolResponseText(string(jsonData))
}

// NewToolResponseStructured returns data as structured content, mirrored as
// JSON text for clients that only read content.
func NewToolResponseStructured(data any) *ToolResponse {
	response := NewToolResponseJSON(data)
	response.StructuredContent = data
	return response
}

func NewToolResponseResource(uri, text, mimeType string) *ToolResponse {
	return &ToolResponse{Content: []ToolContent{{Type: "resource", Resource: &ResourceContent{URI: uri, Text: text, MimeType: mimeType}}}}
}
