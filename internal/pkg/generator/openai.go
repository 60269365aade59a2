package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL = "https://api.openai.com"
	DefaultModel   = "gpt-image-1"
	DefaultSize    = "1024x1536"
)

type OpenAIConfig struct {
	BaseURL string
	Model   string
	Size    string
	// Timeout of zero leaves the call unbounded; cancellation then comes
	// only from the request context.
	Timeout time.Duration
}

type openAIGenerator struct {
	cfg    OpenAIConfig
	client *http.Client
}

func NewOpenAIGenerator(cfg OpenAIConfig) Generator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Size == "" {
		cfg.Size = DefaultSize
	}
	return &openAIGenerator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (g *openAIGenerator) Edit(ctx context.Context, req *EditRequest) (*EditResponse, error) {
	if req.Image == nil {
		return nil, fmt.Errorf("image is required")
	}

	model := req.Model
	if model == "" {
		model = g.cfg.Model
	}
	size := req.Size
	if size == "" {
		size = g.cfg.Size
	}
	filename := req.Filename
	if filename == "" {
		filename = "image.jpg"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, filename))
	header.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, req.Image); err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	_ = writer.WriteField("prompt", req.Prompt)
	_ = writer.WriteField("model", model)
	_ = writer.WriteField("size", size)
	_ = writer.WriteField("n", "1")
	if err := writer.Close(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(g.cfg.BaseURL, "/")+"/v1/images/edits", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("image edit request failed: %w", err)
	}
	defer resp.Body.Close()

	logrus.WithFields(logrus.Fields{
		"model":    model,
		"size":     size,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Info("image edit request finished")

	if resp.StatusCode >= 400 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("image edit error: status=%d body=%s", resp.StatusCode, string(errBody))
	}

	var out EditResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode image edit response: %w", err)
	}
	return &out, nil
}
