// Package wire implements the judge's length-prefixed JSON framing.
//
// Each message on the wire is a 4-byte big-endian signed length followed by
// that many bytes of ASCII JSON: {"type":"data","data":"<payload>"}. Other
// type values are reserved for future control messages.
package wire

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"unicode/utf16"
	"unicode/utf8"
)

// ErrClosed is returned when a read encounters a zero-byte read, signalling
// that the peer closed the connection.
var ErrClosed = errors.New("wire: connection closed")

// ErrBadType is returned when a decoded frame's type field is not "data".
var ErrBadType = errors.New("wire: unexpected message type")

// Frame is the single message shape carried on the wire.
type Frame struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// EncodeData builds the wire bytes for a "data" frame carrying payload.
func EncodeData(payload string) ([]byte, error) {
	return Encode(Frame{Type: "data", Data: payload})
}

// Encode serialises a frame into its length-prefixed wire representation.
func Encode(f Frame) ([]byte, error) {
	body, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal frame: %w", err)
	}
	// json.Marshal emits UTF-8; escape non-ASCII runes so the body is ASCII.
	var ascii bytes.Buffer
	for _, r := range string(body) {
		if r < utf8.RuneSelf {
			ascii.WriteByte(byte(r))
		} else if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError {
			fmt.Fprintf(&ascii, `\u%04x\u%04x`, r1, r2)
		} else {
			fmt.Fprintf(&ascii, `\u%04x`, r)
		}
	}
	body = ascii.Bytes()

	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(int32(len(body))))
	buf.Write(lenPrefix[:])
	buf.Write(body)

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// Send writes a full frame to w as one logical unit, retrying on short
// writes until the whole buffer is flushed.
func Send(w io.Writer, f Frame) error {
	data, err := Encode(f)
	if err != nil {
		return err
	}
	return writeAll(w, data)
}

// SendData is a convenience wrapper for the common "data" message shape.
func SendData(w io.Writer, payload string) error {
	return Send(w, Frame{Type: "data", Data: payload})
}

func writeAll(w io.Writer, data []byte) error {
	for len(data) > 0 {
		n, err := w.Write(data)
		if err != nil {
			return fmt.Errorf("wire: write: %w", err)
		}
		data = data[n:]
	}
	return nil
}

// Recv reads one framed message from r: a 4-byte length prefix followed by
// that many bytes of JSON. A zero-byte read at any point is reported as
// ErrClosed. Reads honor whatever deadline the caller has already set on the
// underlying connection; expiry surfaces as the net.Error the connection
// itself returns, which callers distinguish from ErrClosed via errors.As.
func Recv(r io.Reader) (Frame, error) {
	var f Frame

	lenBuf, err := readExactly(r, 4)
	if err != nil {
		return f, err
	}
	n := int32(binary.BigEndian.Uint32(lenBuf))
	if n < 0 {
		return f, fmt.Errorf("wire: negative frame length %d", n)
	}

	body, err := readExactly(r, int(n))
	if err != nil {
		return f, err
	}

	if err := json.Unmarshal(body, &f); err != nil {
		return f, fmt.Errorf("wire: unmarshal frame: %w", err)
	}
	return f, nil
}

// RecvData reads one frame and asserts it carries type "data", returning
// ErrBadType otherwise.
func RecvData(r io.Reader) (string, error) {
	f, err := Recv(r)
	if err != nil {
		return "", err
	}
	if f.Type != "data" {
		return "", ErrBadType
	}
	return f.Data, nil
}

func readExactly(r io.Reader, size int) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	buf := make([]byte, size)
	read := 0
	for read < size {
		n, err := r.Read(buf[read:])
		if n == 0 && err == nil {
			return nil, ErrClosed
		}
		read += n
		if err != nil {
			if err == io.EOF && read == size {
				break
			}
			if err == io.EOF {
				return nil, ErrClosed
			}
			return nil, err
		}
	}
	return buf, nil
}
