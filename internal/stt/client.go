// Package stt is a client for the speech-to-text sidecar service.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// TranscriptionError describes a failed transcription request.
type TranscriptionError struct {
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *TranscriptionError) Error() string {
	if e.Timeout {
		return "transcription request timed out"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("transcription service returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("transcription request failed: %v", e.Err)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

// HealthStatus is the transcription service's self-reported state.
type HealthStatus struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// Client talks to the STT service over HTTP.
type Client struct {
	transcribeURL string
	healthURL     string
	httpClient    *http.Client
}

func NewClient(transcribeURL, healthURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		transcribeURL: transcribeURL,
		healthURL:     healthURL,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

// Transcribe uploads the audio file and returns the transcript text. An
// empty transcript is a valid result, not an error.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", &TranscriptionError{Err: err}
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		return "", &TranscriptionError{Err: err}
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", &TranscriptionError{Err: err}
	}
	if err := writer.Close(); err != nil {
		return "", &TranscriptionError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.transcribeURL, &body)
	if err != nil {
		return "", &TranscriptionError{Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TranscriptionError{Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &TranscriptionError{StatusCode: resp.StatusCode}
	}

	var result struct {
		Transcript string `json:"transcript"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &TranscriptionError{Err: err}
	}

	return result.Transcript, nil
}

// Health checks the transcription service's health endpoint.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcription service health returned HTTP %d", resp.StatusCode)
	}

	var status HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
