// Package transport frames packets on a byte stream.
//
// A frame is a 9 byte header followed by the payload:
//
//	[1 byte compressed flag][4 byte marshalling type BE][4 byte length BE][payload]
//
// A compressed payload is gzip encoded. The length counts payload bytes as
// they appear on the wire.
package transport

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// HeaderSize is the fixed frame header length.
const HeaderSize = 9

// DefaultMaxFrameSize bounds frames when no limit is configured.
const DefaultMaxFrameSize = 4 << 20

var (
	// ErrFrameTooLarge is returned for frames over the size limit.
	ErrFrameTooLarge = errors.New("frame too large")
	// ErrUnknownMarshaller is returned for an unregistered marshalling type.
	ErrUnknownMarshaller = errors.New("unknown marshaller")
	// ErrBadFrame is returned for a malformed header.
	ErrBadFrame = errors.New("malformed frame")
)

// Frame is one decoded frame. Payload is always uncompressed.
type Frame struct {
	Type       uint32
	Compressed bool
	Payload    []byte
}

// WriteFrame writes payload as a frame, gzipping it when compress is set.
// maxSize of zero means DefaultMaxFrameSize.
func WriteFrame(w io.Writer, typ uint32, payload []byte, compress bool, maxSize int) error {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}
	body := payload
	if compress {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(payload); err != nil {
			return fmt.Errorf("gzip payload: %w", err)
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("gzip payload: %w", err)
		}
		body = buf.Bytes()
	}
	if len(body) > maxSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrFrameTooLarge, len(body), maxSize)
	}

	out := make([]byte, HeaderSize+len(body))
	if compress {
		out[0] = 1
	}
	binary.BigEndian.PutUint32(out[1:5], typ)
	binary.BigEndian.PutUint32(out[5:9], uint32(len(body)))
	copy(out[HeaderSize:], body)

	_, err := w.Write(out)
	return err
}

// ReadFrame reads one frame and inflates it. io.EOF is returned unwrapped
// when the stream ends cleanly between frames.
func ReadFrame(r io.Reader, maxSize int) (Frame, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFrameSize
	}
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	if hdr[0] > 1 {
		return Frame{}, fmt.Errorf("%w: compressed flag %d", ErrBadFrame, hdr[0])
	}
	f := Frame{
		Compressed: hdr[0] == 1,
		Type:       binary.BigEndian.Uint32(hdr[1:5]),
	}
	n := binary.BigEndian.Uint32(hdr[5:9])
	if int64(n) > int64(maxSize) {
		return Frame{}, fmt.Errorf("%w: %d bytes, limit %d", ErrFrameTooLarge, n, maxSize)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Frame{}, err
	}
	if !f.Compressed {
		f.Payload = body
		return f, nil
	}

	gz, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %w", ErrBadFrame, err)
	}
	defer gz.Close()
	// An inflated payload is held to the same limit.
	plain, err := io.ReadAll(io.LimitReader(gz, int64(maxSize)+1))
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %w", ErrBadFrame, err)
	}
	if len(plain) > maxSize {
		return Frame{}, fmt.Errorf("%w: inflated payload over %d bytes", ErrFrameTooLarge, maxSize)
	}
	f.Payload = plain
	return f, nil
}
