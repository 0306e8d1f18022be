// Package iiif resolves CITE2 image URNs against an IIIF Image API server.
//
// A Client turns URNs into image base URLs, reads info.json for the image
// extent and fetches and decodes region requests. A Source binds one URN to
// a Client and is what a viewer uses as its image source.
package iiif

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// maxImageBytes bounds a single region response.
const maxImageBytes = 64 << 20

// Client retrieves image metadata and rasters from an IIIF server.
type Client struct {
	HTTPClient *http.Client
	Server     string
	PathPrefix string
}

// NewClient creates a client for the given server base and image path prefix.
func NewClient(server, prefix string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		Server:     server,
		PathPrefix: prefix,
	}
}

// Info is the subset of an info.json document the viewer needs.
type Info struct {
	Context  string `json:"@context"`
	ID       string `json:"@id"`
	Protocol string `json:"protocol"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Tiles    []struct {
		Width        int   `json:"width"`
		Height       int   `json:"height"`
		ScaleFactors []int `json:"scaleFactors"`
	} `json:"tiles"`
}

// BaseURL returns the image base URL for u, without any request parameters.
func (c *Client) BaseURL(u URN) string {
	return strings.TrimRight(c.Server, "/") + u.ImagePath(c.PathPrefix)
}

// URL builds a standalone image URL for u, cropped to its ROI if it has one.
func (c *Client) URL(u URN, width, height int) string {
	return ImageURL(c.BaseURL(u), u.ROI, width, height)
}

// Info fetches and decodes info.json for u.
func (c *Client) Info(ctx context.Context, u URN) (*Info, error) {
	url := c.BaseURL(u) + "/info.json"
	slog.Debug("Fetching image info", "urn", u.Base(), "url", url)

	body, err := c.Download(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch info.json: %w", err)
	}

	var info Info
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to decode info.json: %w", err)
	}
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("info.json for %s has no usable dimensions (%dx%d)", u.Base(), info.Width, info.Height)
	}
	return &info, nil
}

// Download returns the body of a successful GET.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s returned status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("response from %s exceeds %d bytes", url, maxImageBytes)
	}
	return data, nil
}

// FetchImage downloads and decodes the image at url.
func (c *Client) FetchImage(ctx context.Context, url string) (image.Image, error) {
	data, err := c.Download(ctx, url)
	if err != nil {
		return nil, err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image from %s: %w", url, err)
	}
	slog.Debug("Decoded image", "url", url, "format", format, "bounds", img.Bounds())
	return img, nil
}

// Source returns the image source for u.
func (c *Client) Source(u URN) *Source {
	return &Source{client: c, urn: u, base: c.BaseURL(u)}
}
