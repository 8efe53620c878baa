// Package filestore is the client for the file backend that holds uploaded
// file contents. The backend stores bytes and hashes; anchoring the hash
// on-chain is the caller's job.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// UploadResult identifies a stored file.
type UploadResult struct {
	ID   int64  `json:"id"`
	Hash string `json:"hash"`
}

// Client talks to one file backend instance.
type Client struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// Upload streams the file to the backend. onProgress, when non-nil, is
// called with the percentage of the payload written so far.
func (c *Client) Upload(ctx context.Context, name string, size int64, r io.Reader, onProgress func(pct int)) (UploadResult, error) {
	if onProgress != nil && size > 0 {
		r = &progressReader{r: r, total: size, onProgress: onProgress}
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload/", pr)
	if err != nil {
		return UploadResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return UploadResult{}, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return UploadResult{}, fmt.Errorf("upload: status %d", resp.StatusCode)
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return UploadResult{}, fmt.Errorf("decode upload response: %w", err)
	}
	return result, nil
}

// RegisterTx records the anchoring transaction id against a stored file.
func (c *Client) RegisterTx(ctx context.Context, id int64, txID string) error {
	url := fmt.Sprintf("%s/register_transaction/%d/%s", c.baseURL, id, txID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("register transaction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("register transaction: status %d", resp.StatusCode)
	}
	return nil
}

// Clear wipes every file stored in the backend. Destructive, meant for
// development and test backends.
func (c *Client) Clear(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/clear", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("clear: status %d", resp.StatusCode)
	}
	return nil
}

// Download fetches file contents by backend id. The caller closes the
// returned reader.
func (c *Client) Download(ctx context.Context, id int64) (io.ReadCloser, error) {
	return c.get(ctx, fmt.Sprintf("%s/download/%d", c.baseURL, id))
}

// DownloadByTx fetches file contents by anchoring transaction id.
func (c *Client) DownloadByTx(ctx context.Context, txID string) (io.ReadCloser, error) {
	return c.get(ctx, fmt.Sprintf("%s/download_by_transaction/%s", c.baseURL, txID))
}

func (c *Client) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("download: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// Validate asks the backend to compare its stored hash against expectedHash.
func (c *Client) Validate(ctx context.Context, id int64, expectedHash string) (bool, error) {
	url := fmt.Sprintf("%s/validate/%d/%s", c.baseURL, id, expectedHash)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("validate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("validate: status %d", resp.StatusCode)
	}

	var result struct {
		IsValid bool `json:"is_valid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("decode validate response: %w", err)
	}
	return result.IsValid, nil
}

// progressReader reports read progress as a 0-100 percentage.
type progressReader struct {
	r          io.Reader
	total      int64
	read       int64
	lastPct    int
	onProgress func(pct int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)

	pct := int(p.read * 100 / p.total)
	if pct > 100 {
		pct = 100
	}
	if pct != p.lastPct {
		p.lastPct = pct
		p.onProgress(pct)
	}
	return n, err
}
