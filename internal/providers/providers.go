package providers

import (
	"context"
	"encoding/base64"
)

// Config represents the configuration for an LLM provider
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
	// Image is an encoded image sent with the prompt; MimeType names its
	// format, e.g. "image/jpeg".
	Image    []byte
	MimeType string
}

// Base64Image returns the image as standard base64.
func (c Config) Base64Image() string {
	return base64.StdEncoding.EncodeToString(c.Image)
}

// ImageMimeType returns MimeType, defaulting to JPEG.
func (c Config) ImageMimeType() string {
	if c.MimeType == "" {
		return "image/jpeg"
	}
	return c.MimeType
}

// Provider defines the interface for an LLM provider
type Provider interface {
	ExtractText(ctx context.Context, config Config) (string, error)
}
