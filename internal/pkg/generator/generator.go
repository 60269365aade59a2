// Package generator talks to the external image generation service.
package generator

import (
	"context"
	"io"
)

type EditRequest struct {
	APIKey string
	Image  io.Reader
	// Filename is sent with the multipart image part; the service sniffs
	// the type from it.
	Filename string
	Prompt   string
	Model    string
	Size     string
}

type ImageData struct {
	B64JSON       string `json:"b64_json,omitempty"`
	URL           string `json:"url,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

type EditResponse struct {
	Created int64       `json:"created"`
	Data    []ImageData `json:"data"`
}

// Generator submits an image and an instruction and returns the generated
// images. Implementations must not retry.
type Generator interface {
	Edit(ctx context.Context, req *EditRequest) (*EditResponse, error)
}
