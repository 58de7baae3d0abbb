// Package filestore talks to the Gemini Files API: the two-phase resumable
// upload used to stage large media for generation requests, plus status,
// listing and deletion of staged objects.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Remote file states reported by the Files API.
const (
	StateUnspecified = "STATE_UNSPECIFIED"
	StateProcessing  = "PROCESSING"
	StateActive      = "ACTIVE"
	StateFailed      = "FAILED"
)

// RemoteObject is a file resource in the remote store. The service owns its
// state; callers only observe it.
type RemoteObject struct {
	Name       string `json:"name"`
	URI        string `json:"uri"`
	MIMEType   string `json:"mimeType"`
	State      string `json:"state"`
	UpdateTime string `json:"updateTime"`
	SizeBytes  string `json:"sizeBytes,omitempty"`
}

// UploadInitError means the start call did not yield an upload session.
type UploadInitError struct {
	StatusCode int
	Err        error
}

func (e *UploadInitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload init failed: %v", e.Err)
	}
	return fmt.Sprintf("upload init failed: HTTP %d or missing upload session URL", e.StatusCode)
}

func (e *UploadInitError) Unwrap() error { return e.Err }

// UploadTransferError means the data phase failed or returned an unusable
// file resource.
type UploadTransferError struct {
	StatusCode int
	Err        error
}

func (e *UploadTransferError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload transfer failed: %v", e.Err)
	}
	return fmt.Sprintf("upload transfer failed: HTTP %d", e.StatusCode)
}

func (e *UploadTransferError) Unwrap() error { return e.Err }

// Client issues Files API calls. The upload client carries an extended
// timeout suitable for multi-gigabyte payloads; everything else uses the
// ordinary request timeout.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	uploadClient *http.Client
}

// NewClient builds a Files API client against baseURL (no trailing slash).
func NewClient(baseURL, apiKey string, requestTimeout, uploadTimeout time.Duration) *Client {
	return &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: requestTimeout},
		uploadClient: &http.Client{Timeout: uploadTimeout},
	}
}

// BeginUpload starts a resumable upload session, declaring the payload's
// length and type up front, and returns the session URL for SendBytes.
func (c *Client) BeginUpload(ctx context.Context, displayName, mimeType string, size int64) (string, error) {
	body, err := json.Marshal(map[string]any{
		"file": map[string]string{"display_name": displayName},
	})
	if err != nil {
		return "", &UploadInitError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/upload/v1beta/files?key=%s", c.baseURL, url.QueryEscape(c.apiKey)),
		bytes.NewReader(body))
	if err != nil {
		return "", &UploadInitError{Err: err}
	}
	req.Header.Set("X-Goog-Upload-Protocol", "resumable")
	req.Header.Set("X-Goog-Upload-Command", "start")
	req.Header.Set("X-Goog-Upload-Header-Content-Length", strconv.FormatInt(size, 10))
	req.Header.Set("X-Goog-Upload-Header-Content-Type", mimeType)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &UploadInitError{Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	sessionURL := resp.Header.Get("X-Goog-Upload-URL")
	if resp.StatusCode != http.StatusOK || sessionURL == "" {
		return "", &UploadInitError{StatusCode: resp.StatusCode}
	}
	return sessionURL, nil
}

// SendBytes transfers the full payload to the session URL with offset 0 and
// finalizes the upload, returning the created file resource.
func (c *Client) SendBytes(ctx context.Context, sessionURL string, data []byte, mimeType string) (*RemoteObject, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sessionURL, bytes.NewReader(data))
	if err != nil {
		return nil, &UploadTransferError{Err: err}
	}
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("X-Goog-Upload-Offset", "0")
	req.Header.Set("X-Goog-Upload-Command", "upload, finalize")
	req.ContentLength = int64(len(data))

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return nil, &UploadTransferError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UploadTransferError{StatusCode: resp.StatusCode}
	}

	var result struct {
		File RemoteObject `json:"file"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &UploadTransferError{Err: err}
	}
	if result.File.Name == "" && result.File.URI == "" {
		return nil, &UploadTransferError{Err: fmt.Errorf("response carries neither file name nor uri")}
	}
	log.Printf("Uploaded %d bytes as %s (%s)", len(data), result.File.Name, result.File.State)
	return &result.File, nil
}

// GetStatus fetches the current state of a file by its relative name
// (e.g. "files/abc123"). Transport errors surface as-is; the polling loop
// above treats them as transient.
func (c *Client) GetStatus(ctx context.Context, name string) (*RemoteObject, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1beta/%s?key=%s", c.baseURL, name, url.QueryEscape(c.apiKey)), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status check for %s returned HTTP %d", name, resp.StatusCode)
	}
	var obj RemoteObject
	if err := json.NewDecoder(resp.Body).Decode(&obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// List returns a page of staged files and the token for the next page.
func (c *Client) List(ctx context.Context, pageSize int, pageToken string) ([]RemoteObject, string, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	if pageSize > 0 {
		q.Set("pageSize", strconv.Itoa(pageSize))
	}
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1beta/files?%s", c.baseURL, q.Encode()), nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("file listing returned HTTP %d", resp.StatusCode)
	}
	var result struct {
		Files         []RemoteObject `json:"files"`
		NextPageToken string         `json:"nextPageToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, "", err
	}
	return result.Files, result.NextPageToken, nil
}

// Delete removes a staged file by its relative name.
func (c *Client) Delete(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/v1beta/%s?key=%s", c.baseURL, name, url.QueryEscape(c.apiKey)), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("file deletion for %s returned HTTP %d", name, resp.StatusCode)
	}
	return nil
}
