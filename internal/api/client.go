// Package api implements the HTTP client for the central survey server.
//
// The server exposes a small REST surface: login, available-form listing,
// batched response sync, and multipart attachment upload. The client only
// produces and consumes the wire shapes; all queueing decisions live in the
// sync reconciler.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/formcourier/FormCourier/internal/models"
)

// Server endpoint paths.
const (
	LoginPath       = "/api/users/login"
	FormsPath       = "/api/forms/AvailableForms"
	SyncEntriesPath = "/api/forms/syncentries"
	UploadPath      = "/api/files/upload"
)

// DefaultTimeout bounds each request; there is no cancellation mechanic
// beyond the transport itself.
const DefaultTimeout = 60 * time.Second

// Opts holds configuration options for the API client.
type Opts struct {
	BaseURL    string       // server base URL, e.g. https://collect.example.org
	Token      string       // bearer token from a prior login
	HTTPClient *http.Client // overridable for tests
}

// Option defines a configuration option for the API client.
type Option func(*Opts)

// WithBaseURL sets the server base URL.
func WithBaseURL(url string) Option {
	return func(o *Opts) {
		o.BaseURL = url
	}
}

// WithToken sets the bearer token sent with authenticated requests.
func WithToken(token string) Option {
	return func(o *Opts) {
		o.Token = token
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *Opts) {
		o.HTTPClient = hc
	}
}

// Client talks to the central server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates an API client, applying any provided options.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.BaseURL == "" {
		slog.Error("API client base URL not set")
		return nil, fmt.Errorf("server base URL not set")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{baseURL: cfg.BaseURL, token: cfg.Token, http: hc}, nil
}

// SetToken updates the bearer token after a login.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body, err := json.Marshal(models.Credentials{Username: username, Password: password})
	if err != nil {
		return "", fmt.Errorf("failed to encode credentials: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+LoginPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("Login request failed", "error", err)
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()
	if !success(resp.StatusCode) {
		slog.Error("Login rejected", "status", resp.StatusCode)
		return "", fmt.Errorf("server responded with status %d", resp.StatusCode)
	}

	var result models.LoginResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	c.token = result.Token
	slog.Info("Login succeeded", "username", username)
	return result.Token, nil
}

// FetchForms retrieves the forms available to this user.
func (c *Client) FetchForms(ctx context.Context) ([]models.Form, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+FormsPath, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("Form fetch failed", "error", err)
		return nil, fmt.Errorf("form fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if !success(resp.StatusCode) {
		slog.Error("Form fetch rejected", "status", resp.StatusCode)
		return nil, fmt.Errorf("server responded with status %d", resp.StatusCode)
	}

	var forms []models.Form
	if err := json.NewDecoder(resp.Body).Decode(&forms); err != nil {
		return nil, fmt.Errorf("failed to decode forms: %w", err)
	}
	// The wire shape has no index field; the question order is the sequence.
	for i := range forms {
		forms[i].NormalizeSequence()
	}
	slog.Debug("Fetched forms", "count", len(forms))
	return forms, nil
}

// SyncEntries POSTs a batch of completed submissions. The whole batch either
// succeeds or fails; partial acceptance is not part of the wire contract.
func (c *Client) SyncEntries(ctx context.Context, entries []models.SyncEntry) (models.SyncResult, error) {
	var result models.SyncResult
	body, err := json.Marshal(entries)
	if err != nil {
		return result, fmt.Errorf("failed to encode entries: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+SyncEntriesPath, bytes.NewReader(body))
	if err != nil {
		return result, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("Entry sync request failed", "error", err)
		return result, fmt.Errorf("entry sync failed: %w", err)
	}
	defer resp.Body.Close()
	if !success(resp.StatusCode) {
		slog.Error("Entry sync rejected", "status", resp.StatusCode)
		return result, fmt.Errorf("server responded with status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return result, fmt.Errorf("failed to decode sync response: %w", err)
	}
	slog.Info("Entry sync succeeded", "count", result.Count)
	return result, nil
}

// UploadAttachment sends one media file as multipart form data together with
// the owning form, server response identifier, and question tag. Only
// success or failure matters to the caller; the returned metadata body is
// discarded.
func (c *Client) UploadAttachment(ctx context.Context, att models.Attachment, responseID string, file io.Reader) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, att.FileName()))
	header.Set("Content-Type", att.ContentType())
	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create multipart file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to copy attachment data: %w", err)
	}
	if err := writer.WriteField("formId", strconv.Itoa(att.FormID)); err != nil {
		return err
	}
	if err := writer.WriteField("responseId", responseID); err != nil {
		return err
	}
	if err := writer.WriteField("questionId", att.UploadTag()); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+UploadPath, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("Attachment upload request failed", "error", err, "uri", att.LocalURI)
		return fmt.Errorf("attachment upload failed: %w", err)
	}
	defer resp.Body.Close()
	if !success(resp.StatusCode) {
		slog.Error("Attachment upload rejected", "status", resp.StatusCode, "uri", att.LocalURI)
		return fmt.Errorf("server responded with status %d", resp.StatusCode)
	}
	io.Copy(io.Discard, resp.Body)
	slog.Debug("Attachment uploaded", "uri", att.LocalURI, "responseID", responseID)
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func success(status int) bool {
	return status == http.StatusOK || status == http.StatusCreated
}
