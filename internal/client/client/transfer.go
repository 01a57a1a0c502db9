package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/cryptocloud/internal/api"
)

// MaxDownloadSize bounds how much of a blob Download reads into memory.
const MaxDownloadSize = 1 << 30

// Transfer moves sealed blobs to and from the blob store using capabilities.
type Transfer struct {
	httpClient *http.Client
}

func NewTransfer(httpClient *http.Client) *Transfer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Minute}
	}
	return &Transfer{httpClient: httpClient}
}

func (t *Transfer) newRequest(ctx context.Context, c *api.Capability, body io.Reader) (*http.Request, error) {
	if c == nil || c.URL == "" {
		return nil, fmt.Errorf("empty capability")
	}
	if !c.ExpiresAt.IsZero() && time.Now().After(c.ExpiresAt) {
		return nil, fmt.Errorf("capability expired at %s", c.ExpiresAt.Format(time.RFC3339))
	}
	req, err := http.NewRequestWithContext(ctx, c.Method, c.URL, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}

// Upload sends blob with the PUT capability c.
func (t *Transfer) Upload(ctx context.Context, c *api.Capability, blob []byte) error {
	req, err := t.newRequest(ctx, c, bytes.NewReader(blob))
	if err != nil {
		return err
	}
	req.ContentLength = int64(len(blob))
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/octet-stream")
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("upload failed: %s", resp.Status)
	}
	return nil
}

// Download fetches the blob behind the GET capability c.
func (t *Transfer) Download(ctx context.Context, c *api.Capability) ([]byte, error) {
	req, err := t.newRequest(ctx, c, nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxDownloadSize {
		return nil, fmt.Errorf("download exceeds %d bytes", MaxDownloadSize)
	}
	return data, nil
}
