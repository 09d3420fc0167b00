// Package fetch retrieves remote content for the capture pipeline: webpage
// HTML, referenced images, and audio streams extracted via yt-dlp.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"
)

const defaultUserAgent = "inlet/1.0"

// ErrorKind classifies why a fetch failed.
type ErrorKind string

const (
	ErrKindUnreachable ErrorKind = "unreachable"
	ErrKindHTTPStatus  ErrorKind = "http_status"
	ErrKindTimeout     ErrorKind = "timeout"
	ErrKindExtraction  ErrorKind = "extraction_failed"
)

// FetchError describes a failed retrieval. The message is what ends up on
// the item's last_error, so it names the URL and the reason.
type FetchError struct {
	Kind       ErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case ErrKindHTTPStatus:
		return fmt.Sprintf("failed to fetch %s: HTTP %d", e.URL, e.StatusCode)
	case ErrKindTimeout:
		return fmt.Sprintf("timed out fetching %s", e.URL)
	case ErrKindExtraction:
		return fmt.Sprintf("failed to extract audio from %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Config holds Fetcher settings.
type Config struct {
	FetchTimeout time.Duration
	MediaTimeout time.Duration
	YtdlpPath    string
	UserAgent    string
}

// Fetcher retrieves remote pages, images and audio.
type Fetcher struct {
	httpClient   *http.Client
	ytdlpPath    string
	mediaTimeout time.Duration
	userAgent    string
}

func NewFetcher(cfg Config) *Fetcher {
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.MediaTimeout == 0 {
		cfg.MediaTimeout = 5 * time.Minute
	}
	if cfg.YtdlpPath == "" {
		cfg.YtdlpPath = "yt-dlp"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Fetcher{
		httpClient:   &http.Client{Timeout: cfg.FetchTimeout},
		ytdlpPath:    cfg.YtdlpPath,
		mediaTimeout: cfg.MediaTimeout,
		userAgent:    cfg.UserAgent,
	}
}

// FetchPage downloads the HTML document at url. Non-2xx responses are
// reported as an ErrKindHTTPStatus error with the status code preserved.
func (f *Fetcher) FetchPage(ctx context.Context, url string) ([]byte, error) {
	body, _, err := f.get(ctx, url)
	return body, err
}

// FetchImage downloads image bytes and returns them with the response
// Content-Type.
func (f *Fetcher) FetchImage(ctx context.Context, url string) ([]byte, string, error) {
	return f.get(ctx, url)
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", &FetchError{Kind: ErrKindUnreachable, URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", &FetchError{Kind: classifyTransportError(err), URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &FetchError{Kind: ErrKindHTTPStatus, URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &FetchError{Kind: classifyTransportError(err), URL: url, Err: err}
	}

	return body, resp.Header.Get("Content-Type"), nil
}

// FetchAudio extracts the audio track of the media at url into destPath as
// an mp3, shelling out to yt-dlp. The caller owns destPath cleanup.
func (f *Fetcher) FetchAudio(ctx context.Context, url, destPath string) error {
	ctx, cancel := context.WithTimeout(ctx, f.mediaTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.ytdlpPath,
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", "0",
		"-o", destPath,
		url,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return &FetchError{Kind: ErrKindTimeout, URL: url, Err: ctx.Err()}
		}
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			err = fmt.Errorf("%s", detail)
		}
		return &FetchError{Kind: ErrKindExtraction, URL: url, Err: err}
	}

	return nil
}

func classifyTransportError(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrKindTimeout
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrKindTimeout
	}
	return ErrKindUnreachable
}
