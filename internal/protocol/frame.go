package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Frame size limits. The companion may send at most 1 MiB per message; the
// bridge may send up to 64 MiB.
const (
	MaxInboundFrame  = 1 << 20
	MaxOutboundFrame = 64 << 20
)

// ErrFrameTooLarge is returned for frames over the size limit.
var ErrFrameTooLarge = errors.New("frame too large")

// ReadFrame reads one length-prefixed frame: a 4-byte length in native byte
// order followed by that many bytes of JSON.
func ReadFrame(r io.Reader, limit uint32) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	n := binary.NativeEndian.Uint32(header[:])
	if n > limit {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFrameTooLarge, n, limit)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

// WriteFrame writes data with its length prefix in a single Write call.
func WriteFrame(w io.Writer, data []byte, limit uint32) error {
	if uint64(len(data)) > uint64(limit) {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrFrameTooLarge, len(data), limit)
	}
	buf := make([]byte, 4+len(data))
	binary.NativeEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[4:], data)
	_, err := w.Write(buf)
	return err
}
