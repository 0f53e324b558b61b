// Package recording captures raw poll payloads to disk and replays them as a
// payload source.
//
// A recording is a zstd stream of CBOR-encoded frames. Each frame carries the
// tick sequence, the fetch time, the raw body and a BLAKE3 digest of the body
// so that damaged frames can be told apart from payloads that were simply
// malformed when the endpoint served them.
package recording

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

// ErrDigestMismatch marks a frame whose body does not match its digest.
var ErrDigestMismatch = errors.New("recording frame digest mismatch")

type Frame struct {
	Seq        uint64 `cbor:"1,keyasint"`
	AtUnixNano int64  `cbor:"2,keyasint"`
	Digest     []byte `cbor:"3,keyasint"`
	Body       []byte `cbor:"4,keyasint"`

	Verified bool `cbor:"-"`
}

func NewFrame(seq uint64, at time.Time, body []byte) Frame {
	sum := blake3.Sum256(body)
	return Frame{
		Seq:        seq,
		AtUnixNano: at.UnixNano(),
		Digest:     sum[:],
		Body:       body,
		Verified:   true,
	}
}

func (f Frame) At() time.Time {
	return time.Unix(0, f.AtUnixNano)
}

// Verify recomputes the body digest.
func (f Frame) Verify() error {
	sum := blake3.Sum256(f.Body)
	if !bytes.Equal(sum[:], f.Digest) {
		return fmt.Errorf("%w: frame %d", ErrDigestMismatch, f.Seq)
	}
	return nil
}

// Writer appends frames to a recording file. It is safe for concurrent use.
type Writer struct {
	mu   sync.Mutex
	file *os.File
	zw   *zstd.Encoder
	enc  *cbor.Encoder
}

func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create recording dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create recording %q: %w", path, err)
	}
	zw, err := zstd.NewWriter(file, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("create zstd writer: %w", err)
	}
	return &Writer{file: file, zw: zw, enc: cbor.NewEncoder(zw)}, nil
}

// Record writes one frame and flushes it so an interrupted session keeps
// every completed tick.
func (w *Writer) Record(seq uint64, at time.Time, body []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.zw == nil {
		return fmt.Errorf("recording is closed")
	}
	if err := w.enc.Encode(NewFrame(seq, at, body)); err != nil {
		return fmt.Errorf("encode frame %d: %w", seq, err)
	}
	if err := w.zw.Flush(); err != nil {
		return fmt.Errorf("flush frame %d: %w", seq, err)
	}
	return nil
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.zw == nil {
		return nil
	}
	zerr := w.zw.Close()
	w.zw = nil
	ferr := w.file.Close()
	if zerr != nil {
		return fmt.Errorf("close zstd writer: %w", zerr)
	}
	if ferr != nil {
		return fmt.Errorf("close recording: %w", ferr)
	}
	return nil
}

type Reader struct {
	file *os.File
	zr   *zstd.Decoder
	dec  *cbor.Decoder
}

func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording %q: %w", path, err)
	}
	zr, err := zstd.NewReader(file)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	return &Reader{file: file, zr: zr, dec: cbor.NewDecoder(zr)}, nil
}

// Next returns the next frame. A frame failing verification is returned with
// Verified=false and a nil error; io.EOF marks the end of the recording.
func (r *Reader) Next() (Frame, error) {
	var frame Frame
	if err := r.dec.Decode(&frame); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	frame.Verified = frame.Verify() == nil
	return frame, nil
}

func (r *Reader) Close() error {
	r.zr.Close()
	return r.file.Close()
}

// ReadAll loads every frame. A truncated tail, as left by an interrupted
// session, ends the read without error when at least one frame was decoded.
func ReadAll(path string) ([]Frame, error) {
	reader, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var frames []Frame
	for {
		frame, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			if len(frames) > 0 {
				return frames, nil
			}
			return nil, fmt.Errorf("read recording %q: %w", path, err)
		}
		frames = append(frames, frame)
	}
}
