package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ImageGeneratorConfig fixes the model and output shape for every request.
type ImageGeneratorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Size    string
	Quality string
	Style   string
	Timeout time.Duration
}

// GeneratedImage is the raw provider output.
type GeneratedImage struct {
	Data          []byte
	RevisedPrompt string
}

// ImageGenerator calls an OpenAI-compatible /images/generations endpoint.
type ImageGenerator struct {
	client   *resty.Client
	endpoint string
	model    string
	size     string
	quality  string
	style    string
}

// NewImageGenerator creates a new image generator.
func NewImageGenerator(cfg *ImageGeneratorConfig) *ImageGenerator {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 90 * time.Second
	}
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeout)

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &ImageGenerator{
		client:   client,
		endpoint: baseURL + "/images/generations",
		model:    defaultString(cfg.Model, "dall-e-3"),
		size:     defaultString(cfg.Size, "1792x1024"),
		quality:  defaultString(cfg.Quality, "standard"),
		style:    defaultString(cfg.Style, "vivid"),
	}
}

type imageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	Quality        string `json:"quality"`
	Style          string `json:"style"`
	ResponseFormat string `json:"response_format"`
}

type imageResponse struct {
	Data []struct {
		B64JSON       string `json:"b64_json"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate renders one image for prompt.
//
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - prompt: natural-language image description.
//
// Returns:
//   - *GeneratedImage: decoded image bytes and the provider's revised prompt.
//   - error: non-nil if the API request fails or returns no image.
func (g *ImageGenerator) Generate(ctx context.Context, prompt string) (*GeneratedImage, error) {
	var resp imageResponse
	httpResp, err := g.client.R().
		SetContext(ctx).
		SetBody(imageRequest{
			Model:          g.model,
			Prompt:         prompt,
			N:              1,
			Size:           g.size,
			Quality:        g.quality,
			Style:          g.style,
			ResponseFormat: "b64_json",
		}).
		SetResult(&resp).
		SetError(&resp).
		Post(g.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call image API: %w", err)
	}
	if httpResp.IsError() {
		msg := string(httpResp.Body())
		if resp.Error != nil {
			msg = resp.Error.Message
		}
		return nil, fmt.Errorf("image API returned HTTP %d: %s", httpResp.StatusCode(), msg)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, errors.New("image API returned no image")
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image payload: %w", err)
	}
	return &GeneratedImage{Data: data, RevisedPrompt: resp.Data[0].RevisedPrompt}, nil
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
