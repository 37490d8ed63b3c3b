package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteExtractor calls a landmark model server over HTTP. The server takes
// a raw image body on POST /detect and answers with a Snapshot, or 404 when
// no subject is visible.
type RemoteExtractor struct {
	url string
	c   *http.Client
}

// NewRemoteExtractor builds a client for the given base URL.
func NewRemoteExtractor(url string) *RemoteExtractor {
	return &RemoteExtractor{
		url: url,
		c:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Detect sends one frame to the model server.
func (r *RemoteExtractor) Detect(ctx context.Context, image []byte) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url+"/detect", bytes.NewReader(image))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := r.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoSubject
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("extractor %s: %s", resp.Status, string(body))
	}

	var out Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("extractor decode: %w", err)
	}
	if out.Empty() {
		return nil, ErrNoSubject
	}
	return &out, nil
}
