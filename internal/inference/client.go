// Package inference is the HTTP client for the Python model server that runs
// segmentation and semantic mask generation.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Point is a pixel coordinate in source image space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BBox is a pixel-space bounding box.
type BBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// BrushStroke is one semantic brush stroke drawn over the artwork.
type BrushStroke struct {
	Points []Point `json:"points"`
	Label  string  `json:"label"`
	Radius float64 `json:"radius"`
}

type SegmentResult struct {
	Success bool   `json:"success"`
	Image   string `json:"image"` // base64 PNG
	Error   string `json:"error,omitempty"`
}

type EdgeSnapResult struct {
	Success       bool    `json:"success"`
	SnappedPoints []Point `json:"snappedPoints"`
	Error         string  `json:"error,omitempty"`
}

type MaskResult struct {
	Success    bool   `json:"success"`
	MaskBase64 string `json:"expandedMaskBase64,omitempty"`
	Error      string `json:"error,omitempty"`
}

type BrushResult struct {
	Success    bool   `json:"success"`
	MaskBase64 string `json:"semanticMaskBase64,omitempty"`
	Error      string `json:"error,omitempty"`
}

type InpaintResult struct {
	Success bool   `json:"success"`
	Image   string `json:"image"` // base64 PNG
	Method  string `json:"method"`
	Radius  int    `json:"radius"`
	Padding int    `json:"padding"`
	Error   string `json:"error,omitempty"`
}

type InpaintMethodsResult struct {
	Success      bool              `json:"success"`
	Methods      []string          `json:"methods"`
	Descriptions map[string]string `json:"descriptions"`
	Error        string            `json:"error,omitempty"`
}

// Segment removes the background from the artwork. Optional point prompts
// guide the model: labels pair with points, 1 marks foreground, 0 background.
func (c *Client) Segment(ctx context.Context, image []byte, filename string, points []Point, labels []int) (*SegmentResult, error) {
	q := url.Values{}
	if len(points) > 0 {
		q.Set("points", encodePoints(points))
		q.Set("point_labels", encodeInts(labels))
	}

	var result SegmentResult
	if err := c.postImage(ctx, "/segment", q, image, filename, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// EdgeSnap moves each point onto the nearest detected contour edge.
func (c *Client) EdgeSnap(ctx context.Context, image []byte, filename string, points []Point, label string) (*EdgeSnapResult, error) {
	q := url.Values{}
	q.Set("points", encodePoints(points))
	q.Set("labels", label)

	var result EdgeSnapResult
	if err := c.postImage(ctx, "/semantic/edge-snap", q, image, filename, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// JointExpansion completes occluded joint regions inside the bounding box.
func (c *Client) JointExpansion(ctx context.Context, image []byte, filename string, bbox BBox, label string) (*MaskResult, error) {
	q := url.Values{}
	q.Set("bbox", fmt.Sprintf("%g,%g,%g,%g", bbox.X, bbox.Y, bbox.Width, bbox.Height))
	q.Set("label", label)

	var result MaskResult
	if err := c.postImage(ctx, "/semantic/joint-expansion", q, image, filename, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ApplyPreset runs a named segmentation preset over the artwork.
func (c *Client) ApplyPreset(ctx context.Context, image []byte, filename, presetID string) (*MaskResult, error) {
	q := url.Values{}
	q.Set("preset_id", presetID)

	var result MaskResult
	if err := c.postImage(ctx, "/semantic/apply-preset", q, image, filename, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ProcessBrush turns semantic brush strokes into a labelled mask.
func (c *Client) ProcessBrush(ctx context.Context, image []byte, filename string, strokes []BrushStroke) (*BrushResult, error) {
	strokesJSON, err := json.Marshal(strokes)
	if err != nil {
		return nil, fmt.Errorf("marshal strokes: %w", err)
	}
	q := url.Values{}
	q.Set("strokes", string(strokesJSON))

	var result BrushResult
	if err := c.postImage(ctx, "/semantic/process-brush", q, image, filename, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GenerateNormalMap derives a normal map from the artwork for relighting.
func (c *Client) GenerateNormalMap(ctx context.Context, image []byte, filename string, strength float64) (*SegmentResult, error) {
	q := url.Values{}
	if strength > 0 {
		q.Set("strength", fmt.Sprintf("%g", strength))
	}

	var result SegmentResult
	if err := c.postImage(ctx, "/generate-normal-map", q, image, filename, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Inpaint removes the masked region from the image and fills it with
// surrounding content. The mask marks removal areas in white. method is one of
// the names reported by InpaintMethods; zero radius and padding leave the
// server defaults in effect.
func (c *Client) Inpaint(ctx context.Context, image, mask []byte, filename, method string, radius, padding int) (*InpaintResult, error) {
	q := url.Values{}
	if method != "" {
		q.Set("method", method)
	}
	if radius > 0 {
		q.Set("radius", fmt.Sprintf("%d", radius))
	}
	if padding > 0 {
		q.Set("padding", fmt.Sprintf("%d", padding))
	}

	files := []filePart{
		{field: "image", filename: filename, data: image},
		{field: "mask", filename: "mask_" + filename, data: mask},
	}

	var result InpaintResult
	if err := c.postFiles(ctx, "/inpaint", q, files, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// InpaintMethods lists the fill algorithms the model server supports.
func (c *Client) InpaintMethods(ctx context.Context) (*InpaintMethodsResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/inpaint/methods", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	var result InpaintMethodsResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type filePart struct {
	field    string
	filename string
	data     []byte
}

func (c *Client) postImage(ctx context.Context, path string, query url.Values, image []byte, filename string, out interface{}) error {
	return c.postFiles(ctx, path, query, []filePart{{field: "image", filename: filename, data: image}}, out)
}

func (c *Client) postFiles(ctx context.Context, path string, query url.Values, files []filePart, out interface{}) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.filename)
		if err != nil {
			return fmt.Errorf("create form file %s: %w", f.field, err)
		}
		if _, err := part.Write(f.data); err != nil {
			return fmt.Errorf("write %s: %w", f.field, err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("inference server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func encodePoints(points []Point) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = fmt.Sprintf("%g,%g", p.X, p.Y)
	}
	return strings.Join(parts, ";")
}

func encodeInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ";")
}
