// Package collab holds the HTTP clients an editor session uses to reach
// its collaborators: the storage service that hosts uploaded images and
// the enhancement service that rewrites content.
package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/inkwell/internal/editor"
)

// Client talks to an inkwell service. It satisfies both editor.Uploader
// and editor.Enhancer.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var (
	_ editor.Uploader = (*Client)(nil)
	_ editor.Enhancer = (*Client)(nil)
)

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

type uploadResponse struct {
	URL string `json:"url"`
}

// EnhanceRequest is the body for POST /api/ai.
type EnhanceRequest struct {
	Content string `json:"content"`
}

// EnhanceResponse is the answer from POST /api/ai.
type EnhanceResponse struct {
	Content string `json:"content"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Upload sends r as the multipart field "file" and returns the URL the
// service stored it under.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(httpReq)

	var out uploadResponse
	if err := c.do(httpReq, "upload", &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", &editor.NetworkError{Op: "upload", StatusCode: http.StatusOK, Err: errors.New("response has no url")}
	}
	return out.URL, nil
}

// Enhance posts content to the enhancement endpoint and returns the
// rewritten markup.
func (c *Client) Enhance(ctx context.Context, content string) (string, error) {
	body, err := json.Marshal(EnhanceRequest{Content: content})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ai", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq)

	var out EnhanceResponse
	if err := c.do(httpReq, "enhance", &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// do runs req and decodes a 2xx JSON body into out. Anything else is a
// *editor.NetworkError carrying the status.
func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &editor.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &editor.NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(respBody))
		var er errorResponse
		if json.Unmarshal(respBody, &er) == nil && er.Error != "" {
			msg = er.Error
		}
		return &editor.NetworkError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(truncate(msg, 200))}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &editor.NetworkError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
