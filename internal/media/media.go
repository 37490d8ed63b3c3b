// Package media retrieves recorded interview artifacts for a session. The
// recording front end owns the uploads; this service only reads them back.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"

	"interview-backend/internal/shared/storage/object"
)

// ErrNotFound is returned when a session has no stored artifact of the
// requested kind.
var ErrNotFound = errors.New("media not found")

// FrameSource yields raw image frames from a retrieved video. Next returns
// io.EOF once the source is exhausted.
type FrameSource interface {
	Next() ([]byte, error)
	FPS() float64
}

// Retriever fetches session media. Implementations are external
// collaborators; the store-backed one below reads the recording bucket.
type Retriever interface {
	Video(ctx context.Context, sessionID string) (FrameSource, error)
	Transcript(ctx context.Context, sessionID string) (text string, durationSeconds float64, err error)
}

// StoreRetriever reads session media from an object store laid out as
// <prefix>/<session-id>/video.mjpeg and <prefix>/<session-id>/transcript.json.
type StoreRetriever struct {
	Store     object.ObjectStore
	Prefix    string
	SourceFPS float64
}

// Video retrieves the recorded video for a session.
func (r *StoreRetriever) Video(ctx context.Context, sessionID string) (FrameSource, error) {
	body, err := r.Store.Open(ctx, path.Join(r.Prefix, sessionID, "video.mjpeg"))
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return nil, fmt.Errorf("session %s video: %w", sessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("session %s video: %w", sessionID, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("session %s video read: %w", sessionID, err)
	}
	return NewMJPEGSource(data, r.SourceFPS), nil
}

type transcriptDoc struct {
	Text            string  `json:"text"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// Transcript retrieves the transcript text and spoken duration for a session.
func (r *StoreRetriever) Transcript(ctx context.Context, sessionID string) (string, float64, error) {
	body, err := r.Store.Open(ctx, path.Join(r.Prefix, sessionID, "transcript.json"))
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return "", 0, fmt.Errorf("session %s transcript: %w", sessionID, ErrNotFound)
		}
		return "", 0, fmt.Errorf("session %s transcript: %w", sessionID, err)
	}
	defer body.Close()

	var doc transcriptDoc
	if err := json.NewDecoder(body).Decode(&doc); err != nil {
		return "", 0, fmt.Errorf("session %s transcript decode: %w", sessionID, err)
	}
	return doc.Text, doc.DurationSeconds, nil
}

var _ Retriever = (*StoreRetriever)(nil)
