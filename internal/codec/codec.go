// Package codec implements the two length-prefixed JSON framings used by
// this node: a 4-byte big-endian TOTAL-length-prefixed, stateful stream
// codec for the node<->signaling control link, and a 2-byte big-endian
// PAYLOAD-length-prefixed, stateless framing for node<->client messages.
package codec

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

const (
	// headerLen is the 4-byte length header on the node<->signaling link.
	// The encoded value is the TOTAL frame length (header + payload),
	// matching the original control-link framing.
	headerLen = 4

	// clientHeaderLen is the 2-byte length header on the node<->client
	// link. The encoded value is the PAYLOAD length only.
	clientHeaderLen = 2

	// maxFrame bounds a single frame to guard against a corrupt or
	// malicious length header parking an unbounded allocation.
	maxFrame = 16 << 20
)

// ServerCodec reads and writes frames on the node<->signaling link. It is
// stateful: ReadMessage retains any bytes read past a frame boundary for
// the next call, so it tolerates a writer that doesn't align writes to
// frame boundaries.
type ServerCodec struct {
	r *bufio.Reader
	w io.Writer
}

func NewServerCodec(rw io.ReadWriter) *ServerCodec {
	return &ServerCodec{r: bufio.NewReader(rw), w: rw}
}

// ReadMessage blocks until one full frame is available, then unmarshals
// its payload into v.
func (c *ServerCodec) ReadMessage(v any) error {
	payload, err := c.readFrame()
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, v)
}

func (c *ServerCodec) readFrame() ([]byte, error) {
	var header [headerLen]byte
	if _, err := io.ReadFull(c.r, header[:]); err != nil {
		return nil, err
	}
	total := binary.BigEndian.Uint32(header[:])
	if total < headerLen {
		return nil, fmt.Errorf("codec: frame length %d shorter than header", total)
	}
	if total-headerLen > maxFrame {
		return nil, fmt.Errorf("codec: frame payload %d exceeds maximum %d", total-headerLen, maxFrame)
	}
	payload := make([]byte, total-headerLen)
	if _, err := io.ReadFull(c.r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteMessage marshals v and writes it as one frame, prefixed with the
// total frame length.
func (c *ServerCodec) WriteMessage(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	total := uint32(headerLen + len(payload))
	var header [headerLen]byte
	binary.BigEndian.PutUint32(header[:], total)
	if _, err := c.w.Write(append(header[:], payload...)); err != nil {
		return err
	}
	return nil
}

// ClientCodec reads and writes frames on the node<->client link using a
// stateless 2-byte payload-length prefix. "Stateless" means each call
// operates on exactly the bytes of one frame with no retained read-ahead
// buffer across calls, matching the boundary behavior tested in
// SPEC_FULL.md §8: a short read never silently discards a partial frame.
type ClientCodec struct{}

// ReadFrame reads exactly one frame from r: a 2-byte big-endian payload
// length followed by that many payload bytes.
func (ClientCodec) ReadFrame(r io.Reader) ([]byte, error) {
	var header [clientHeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint16(header[:])
	if int(length) > maxFrame {
		return nil, fmt.Errorf("codec: frame payload %d exceeds maximum %d", length, maxFrame)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteFrame writes payload to w prefixed with its 2-byte big-endian
// length.
func (ClientCodec) WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > 0xFFFF {
		return fmt.Errorf("codec: payload length %d exceeds 2-byte header capacity", len(payload))
	}
	var header [clientHeaderLen]byte
	binary.BigEndian.PutUint16(header[:], uint16(len(payload)))
	if _, err := w.Write(append(header[:], payload...)); err != nil {
		return err
	}
	return nil
}

// DecodeClientMessage is a convenience wrapper combining ReadFrame with a
// JSON unmarshal into v.
func (c ClientCodec) DecodeClientMessage(r io.Reader, v any) error {
	payload, err := c.ReadFrame(r)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, v)
}

// EncodeClientMessage is a convenience wrapper combining a JSON marshal of
// v with WriteFrame.
func (c ClientCodec) EncodeClientMessage(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.WriteFrame(w, payload)
}
