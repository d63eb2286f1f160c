// Package ocr calls the external text recognition service.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// ErrEmptyDocument is returned when there is nothing to recognize
var ErrEmptyDocument = errors.New("ocr: empty document")

// Recognizer turns document bytes into text
type Recognizer interface {
	Recognize(ctx context.Context, filename string, data []byte) (string, error)
}

// Client sends documents to the OCR service as multipart uploads
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the service at baseURL
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type recognizeResponse struct {
	Text string `json:"text"`
}

// Recognize uploads data and returns the recognized text.
// The caller owns data and is responsible for zeroing it.
func (c *Client) Recognize(ctx context.Context, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyDocument
	}
	if filename == "" {
		filename = "document.bin"
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("ocr: create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("ocr: write document: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("ocr: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ocr", body)
	if err != nil {
		return "", fmt.Errorf("ocr: create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("ocr: read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ocr: service returned %d: %s", resp.StatusCode, string(respBody))
	}

	var out recognizeResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("ocr: parse response: %w", err)
	}
	return out.Text, nil
}

// ZeroBytes overwrites b so uploaded documents do not linger in memory
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
