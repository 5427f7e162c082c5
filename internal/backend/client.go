// Package backend is the HTTP client for the Smartdog campaign service. It
// submits contributions (photos plus pet metadata) to the transform
// endpoint and reads or bumps the public contribution counter.
//
// A submission is one multipart/form-data POST:
//  1. one file part per filled photo slot, named after the slot
//  2. a client-generated session identifier for correlation
//  3. pet metadata, remapped from displayed labels to backend tokens
//
// The response is JSON with a success flag. Every failure is reported as a
// *SubmitError carrying a short user-facing message; the underlying cause is
// kept for logs only.
package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

const (
	// defaultTimeout is the HTTP client timeout for API calls. Transformations
	// run a generative model server-side and routinely take tens of seconds.
	defaultTimeout = 3 * time.Minute

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 10 << 20
)

// Endpoints holds the request paths relative to the base URL.
type Endpoints struct {
	Submit    string
	Count     string
	Increment string
}

// DefaultEndpoints are the paths served by the campaign backend.
var DefaultEndpoints = Endpoints{
	Submit:    "/transform-pet",
	Count:     "/api/pet-human-count",
	Increment: "/api/pet-human-count/increment",
}

// Client talks to the campaign backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	endpoints  Endpoints
	now        func() time.Time
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithEndpoints overrides the request paths. Empty paths keep their default.
func WithEndpoints(e Endpoints) Option {
	return func(c *Client) {
		if e.Submit != "" {
			c.endpoints.Submit = e.Submit
		}
		if e.Count != "" {
			c.endpoints.Count = e.Count
		}
		if e.Increment != "" {
			c.endpoints.Increment = e.Increment
		}
	}
}

// NewClient creates a backend client. A zero timeout uses the default.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		endpoints:  DefaultEndpoints,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// --- Request and response types ---

// File is one photo part of a submission.
type File struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// Submission is everything sent in one contribution. Metadata values are
// the displayed labels; Submit remaps them before transmission.
type Submission struct {
	Session   string
	Files     []File
	Breed     string
	Sex       string
	Age       string
	Species   string
	Name      string
	CoatColor string
}

// Contribution is the decoded success payload.
type Contribution struct {
	Session             string
	Message             string
	TransformedImageURL string
	Prompt              string
	HumanAge            *float64
}

// transformResponse is the JSON body returned by the transform endpoint.
type transformResponse struct {
	Success          *bool    `json:"success"`
	Message          string   `json:"message,omitempty"`
	Error            string   `json:"error,omitempty"`
	CompositeImage   string   `json:"composite_image,omitempty"`
	TransformedImage string   `json:"transformed_image,omitempty"`
	PromptUsed       string   `json:"prompt_used,omitempty"`
	IdadeHumana      *float64 `json:"idade_humana,omitempty"`
}

type countResponse struct {
	Count int `json:"count"`
}

type incrementRequest struct {
	Increment int `json:"increment"`
}

// --- Submission ---

// Submit posts a contribution and decodes the outcome. A session identifier
// is generated when s.Session is empty.
func (c *Client) Submit(ctx context.Context, s Submission) (*Contribution, error) {
	if s.Session == "" {
		s.Session = NewSessionID(c.now())
	}

	body, contentType, fields, err := encodeSubmission(s)
	if err != nil {
		return nil, &SubmitError{Kind: ErrEncode, Message: MsgGenericFailure, Cause: err}
	}
	log.Trace().Strs("formFields", fields).Msg("Multipart fields")

	endpoint := c.baseURL + c.endpoints.Submit
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, &SubmitError{Kind: ErrEncode, Message: MsgGenericFailure, Cause: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	log.Debug().
		Str("method", http.MethodPost).
		Str("path", c.endpoints.Submit).
		Str("sessionId", s.Session).
		Int("files", len(s.Files)).
		Msg("Submitting contribution")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		log.Debug().Int("statusCode", 0).Dur("duration", duration).Err(err).Msg("Contribution response")
		return nil, &SubmitError{Kind: ErrTransport, Message: MsgConnectivity, Cause: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	log.Debug().Int("statusCode", resp.StatusCode).Dur("duration", duration).Msg("Contribution response")

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &SubmitError{Kind: ErrTransport, StatusCode: resp.StatusCode, Message: MsgConnectivity, Cause: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &SubmitError{
			Kind:       ErrTransport,
			StatusCode: resp.StatusCode,
			Message:    MsgGenericFailure,
			Cause:      fmt.Errorf("unexpected status %d (body: %s)", resp.StatusCode, truncate(string(raw), 200)),
		}
	}

	var decoded transformResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &SubmitError{
			Kind:       ErrDecode,
			StatusCode: resp.StatusCode,
			Message:    MsgGenericFailure,
			Cause:      fmt.Errorf("parse response: %w (body: %s)", err, truncate(string(raw), 200)),
		}
	}

	if decoded.Success == nil || !*decoded.Success {
		msg := decoded.Error
		if msg == "" {
			msg = decoded.Message
		}
		if msg == "" {
			msg = MsgGenericFailure
		}
		return nil, &SubmitError{
			Kind:       ErrRejected,
			StatusCode: resp.StatusCode,
			Message:    msg,
			Cause:      fmt.Errorf("success flag %s", successFlag(decoded.Success)),
		}
	}

	image := decoded.CompositeImage
	if image == "" {
		image = decoded.TransformedImage
	}

	contribution := &Contribution{
		Session:             s.Session,
		Message:             decoded.Message,
		TransformedImageURL: c.resolve(image),
		Prompt:              decoded.PromptUsed,
		HumanAge:            decoded.IdadeHumana,
	}

	log.Info().
		Str("sessionId", s.Session).
		Bool("hasImage", contribution.TransformedImageURL != "").
		Dur("duration", duration).
		Msg("Contribution accepted")

	return contribution, nil
}

// encodeSubmission writes the multipart body. It returns the body, its
// content type and the field names written, in order.
func encodeSubmission(s Submission) (*bytes.Buffer, string, []string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	var fields []string

	for _, f := range s.Files {
		if err := writeFilePart(w, f); err != nil {
			return nil, "", nil, err
		}
		fields = append(fields, f.Field)
	}

	values := []struct {
		name, value string
		optional    bool
	}{
		{FieldSession, s.Session, false},
		{FieldBreed, s.Breed, false},
		{FieldSex, Remap(FieldSex, s.Sex), false},
		{FieldAge, s.Age, false},
		{FieldSpecies, Remap(FieldSpecies, s.Species), false},
		{FieldName, s.Name, true},
		{FieldCoat, Remap(FieldCoat, s.CoatColor), true},
	}
	for _, v := range values {
		if v.optional && v.value == "" {
			continue
		}
		if err := w.WriteField(v.name, v.value); err != nil {
			return nil, "", nil, fmt.Errorf("write field %s: %w", v.name, err)
		}
		fields = append(fields, v.name)
	}

	if err := w.Close(); err != nil {
		return nil, "", nil, fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), fields, nil
}

// writeFilePart adds a file part that keeps the declared media type, which
// multipart.Writer.CreateFormFile would replace with octet-stream.
func writeFilePart(w *multipart.Writer, f File) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		escapeQuotes(f.Field), escapeQuotes(f.Filename)))
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part %s: %w", f.Field, err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return fmt.Errorf("write part %s: %w", f.Field, err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// --- Counter ---

// Count reads the public contribution counter. A body without a count
// field reads as zero.
func (c *Client) Count(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.endpoints.Count, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("count request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("count request: unexpected status %d", resp.StatusCode)
	}

	var decoded countResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&decoded); err != nil {
		return 0, fmt.Errorf("parse count response: %w", err)
	}
	return decoded.Count, nil
}

// IncrementCount notifies the backend of one new contribution. The response
// body is read for logging only.
func (c *Client) IncrementCount(ctx context.Context) error {
	payload, err := json.Marshal(incrementRequest{Increment: 1})
	if err != nil {
		return fmt.Errorf("marshal increment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.endpoints.Increment, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("increment request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	log.Debug().Int("statusCode", resp.StatusCode).Str("body", truncate(string(body), 200)).Msg("Counter increment response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("increment request: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// --- Result image ---

// FetchImage downloads the transformed image. Data URLs are decoded locally.
func (c *Client) FetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	if strings.HasPrefix(imageURL, "data:") {
		return decodeDataURL(imageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("image request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("image request: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// --- Internal helpers ---

// resolve turns a relative image path into an absolute URL on the backend.
func (c *Client) resolve(ref string) string {
	if ref == "" || strings.HasPrefix(ref, "data:") {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

// decodeDataURL splits a base64 data URL into its payload and media type.
func decodeDataURL(u string) ([]byte, string, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(u, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data URL")
	}
	contentType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("data URL is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data URL: %w", err)
	}
	return data, contentType, nil
}

func successFlag(b *bool) string {
	if b == nil {
		return "absent"
	}
	return fmt.Sprintf("%t", *b)
}

// truncate returns at most n bytes of s, cut at a rune boundary, appending
// "..." if truncated.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
