package recording

import (
	"context"
	"fmt"
	"sync"

	"wifiwatch-tui/internal/service"
)

// ReplaySource serves recorded payloads in order, one per Fetch.
type ReplaySource struct {
	mu     sync.Mutex
	frames []Frame
	next   int
	loop   bool
}

func NewReplaySource(frames []Frame, loop bool) *ReplaySource {
	return &ReplaySource{frames: frames, loop: loop}
}

func LoadReplay(path string, loop bool) (*ReplaySource, error) {
	frames, err := ReadAll(path)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("recording %q has no frames", path)
	}
	return NewReplaySource(frames, loop), nil
}

// Fetch returns service.ErrExhausted once every frame was served and looping
// is off. A frame that failed verification is reported as a failed fetch.
func (s *ReplaySource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.frames) {
		if !s.loop || len(s.frames) == 0 {
			return nil, service.ErrExhausted
		}
		s.next = 0
	}
	frame := s.frames[s.next]
	s.next++
	if !frame.Verified {
		return nil, fmt.Errorf("%w: frame %d", ErrDigestMismatch, frame.Seq)
	}
	body := make([]byte, len(frame.Body))
	copy(body, frame.Body)
	return body, nil
}

func (s *ReplaySource) Len() int {
	return len(s.frames)
}

func (s *ReplaySource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames) - s.next
}
