package moderation

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

	"github.com/rs/zerolog"

	"github.com/thereayou/workspace-relay/internal/config"
	"github.com/thereayou/workspace-relay/internal/metrics"
)

const (
	textPath  = "/1.0/text/check.json"
	imagePath = "/1.0/check.json"
	videoPath = "/1.0/video/check-sync.json"

	mediaModels = "nudity-2.0,wad,offensive,gore"

	// cap on provider response bodies
	maxResponseSize = 4 << 20
)

var ErrModerationUnavailable = errors.New("moderation unavailable")

type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Client talks to a Sightengine-compatible scoring service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiUser    string
	apiSecret  string
	lang       string
	timeout    time.Duration
	log        zerolog.Logger
}

func NewClient(cfg config.ModerationConfig, httpClient *http.Client, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	lang := cfg.Lang
	if lang == "" {
		lang = "en"
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    cfg.BaseURL,
		apiUser:    cfg.APIUser,
		apiSecret:  cfg.APISecret,
		lang:       lang,
		timeout:    timeout,
		log:        log.With().Str("component", "moderation").Logger(),
	}
}

// CheckText flags text when any of the profanity, personal-info or link
// detectors reports a match.
func (c *Client) CheckText(ctx context.Context, text string) (Verdict, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fields := [][2]string{
		{"text", text},
		{"lang", c.lang},
		{"mode", "rules"},
		{"api_user", c.apiUser},
		{"api_secret", c.apiSecret},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return Verdict{}, fmt.Errorf("build text form: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return Verdict{}, fmt.Errorf("build text form: %w", err)
	}

	var resp textResponse
	if err := c.post(ctx, "text", textPath, w.FormDataContentType(), &body, &resp); err != nil {
		return Verdict{}, err
	}
	if resp.Status != "" && resp.Status != "success" {
		return Verdict{}, providerFailure(resp.Error)
	}
	return newVerdict(resp.reasons()), nil
}

// CheckMedia uploads media to the image or video endpoint and flags it when
// any score crosses Threshold.
func (c *Client) CheckMedia(ctx context.Context, media io.Reader, filename string, kind MediaKind) (Verdict, error) {
	endpoint := videoPath
	if kind == MediaImage {
		endpoint = imagePath
	}

	pr, pw := io.Pipe()
	w := multipart.NewWriter(pw)
	written := make(chan struct{})
	go func() {
		defer close(written)
		pw.CloseWithError(writeMediaForm(w, media, filename, c.apiUser, c.apiSecret))
	}()

	var resp mediaResponse
	err := c.post(ctx, string(kind), endpoint, w.FormDataContentType(), pr, &resp)
	// unblocks a writer still copying, then waits so media is no longer read
	pr.Close()
	<-written
	if err != nil {
		return Verdict{}, err
	}
	if resp.Status != "" && resp.Status != "success" {
		return Verdict{}, providerFailure(resp.Error)
	}
	return newVerdict(resp.reasons()), nil
}

func writeMediaForm(w *multipart.Writer, media io.Reader, filename, user, secret string) error {
	part, err := w.CreateFormFile("media", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, media); err != nil {
		return err
	}
	for _, f := range [][2]string{{"models", mediaModels}, {"api_user", user}, {"api_secret", secret}} {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}
	return w.Close()
}

func (c *Client) post(ctx context.Context, kind, path, contentType string, body io.Reader, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.ModerationDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModerationUnavailable, err)
	}
	req.Header.Set("Content-Type", contentType)

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("kind", kind).Msg("moderation request failed")
		return fmt.Errorf("%w: %v", ErrModerationUnavailable, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrModerationUnavailable, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		c.log.Warn().Int("status", res.StatusCode).Str("kind", kind).Msg("moderation provider returned error status")
		return fmt.Errorf("%w: provider status %d", ErrModerationUnavailable, res.StatusCode)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrModerationUnavailable, err)
	}
	return nil
}

func providerFailure(e *providerError) error {
	if e == nil {
		return fmt.Errorf("%w: provider reported failure", ErrModerationUnavailable)
	}
	return fmt.Errorf("%w: %s (%s)", ErrModerationUnavailable, e.Message, e.Type)
}
