package media

import (
	"bytes"
	"io"
)

// JPEG start-of-image and end-of-image markers.
var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// MJPEGSource iterates the frames of a motion-JPEG stream: concatenated
// JPEG images delimited by their SOI/EOI markers. Anything fancier than
// MJPEG is decoded upstream by the recording service.
type MJPEGSource struct {
	data []byte
	fps  float64
}

// NewMJPEGSource wraps a raw MJPEG byte stream recorded at fps.
func NewMJPEGSource(data []byte, fps float64) *MJPEGSource {
	return &MJPEGSource{data: data, fps: fps}
}

// FPS returns the recorded frame rate.
func (s *MJPEGSource) FPS() float64 { return s.fps }

// Next returns the next complete JPEG frame, or io.EOF when the stream is
// exhausted. Truncated trailing data is discarded.
func (s *MJPEGSource) Next() ([]byte, error) {
	start := bytes.Index(s.data, jpegSOI)
	if start < 0 {
		return nil, io.EOF
	}
	end := bytes.Index(s.data[start+len(jpegSOI):], jpegEOI)
	if end < 0 {
		s.data = nil
		return nil, io.EOF
	}
	end += start + len(jpegSOI) + len(jpegEOI)

	frame := s.data[start:end]
	s.data = s.data[end:]
	return frame, nil
}

var _ FrameSource = (*MJPEGSource)(nil)
