package face

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"time"
)

// Client calls the face detection microservice.
//
// The service receives a base64-encoded frame and returns every detected
// face with its bounding box and embedding vector. With Skip enabled the
// client short-circuits with a deterministic mock, which keeps the rest of
// the stack runnable without the detection backend.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// NewClient creates a client with a generous timeout; detection can be slow.
func NewClient(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Detect implements Detector against the remote service.
func (c *Client) Detect(ctx context.Context, img image.Image) ([]Region, error) {
	if c.Skip {
		b := img.Bounds()
		return []Region{{
			Box:       BoundingBox{Top: b.Min.Y, Right: b.Max.X, Bottom: b.Max.Y, Left: b.Min.X},
			Embedding: mockEmbedding(),
		}}, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	payload, _ := json.Marshal(map[string]string{
		"image": "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/detect", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("face service error %s: %s", resp.Status, string(body))
	}

	var out struct {
		Faces []struct {
			Location BoundingBox `json:"location"`
			Encoding []float64   `json:"encoding"`
		} `json:"faces"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	regions := make([]Region, 0, len(out.Faces))
	for _, f := range out.Faces {
		regions = append(regions, Region{Box: f.Location, Embedding: f.Encoding})
	}
	return regions, nil
}

// Health checks if the face service is available.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service unavailable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("face service unhealthy: %s", resp.Status)
	}
	return nil
}

func mockEmbedding() []float64 {
	emb := make([]float64, 128)
	for i := range emb {
		emb[i] = float64(i) / 128.0
	}
	return emb
}
