package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"platewatch-service/internal/domain/scan"
)

// ErrEngine marks OCR engine failures. Fatal for the current frame only.
var ErrEngine = errors.New("ocr engine error")

// Engine reads license-plate candidates out of a raw image. The engine itself
// is an external collaborator (a recognition sidecar); this package only
// defines the boundary.
type Engine interface {
	DetectPlates(ctx context.Context, image []byte) ([]scan.DetectedPlate, error)
}

type detectResponse struct {
	Detections []scan.DetectedPlate `json:"detections"`
}

// Client calls the OCR sidecar over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

func (c *Client) DetectPlates(ctx context.Context, image []byte) ([]scan.DetectedPlate, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrEngine)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngine, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngine, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: sidecar returned status %d", ErrEngine, resp.StatusCode)
	}

	var body detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrEngine, err)
	}
	return body.Detections, nil
}
