package protocol

import (
	"encoding/binary"
	"errors"
	"io"
)

// lengthPrefixSize is the width, in bytes, of the big-endian frame length header.
const lengthPrefixSize = 4

// ReadFrame reads one length-prefixed frame from r: a 4-byte big-endian
// length followed by exactly that many payload bytes. A clean EOF before any
// header byte is read maps to ClientDisconnected; an EOF after at least one
// byte (a partial header or a partial payload) maps to UnexpectedEOF. A declared
// length exceeding maxBytes fails with FrameTooLarge without reading the
// payload.
func ReadFrame(r io.Reader, maxBytes uint32) ([]byte, error) {
	var header [lengthPrefixSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, newErr(ClientDisconnected, "connection closed before frame header")
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, newErr(UnexpectedEOF, "connection closed mid-header")
		}
		return nil, wrap(err)
	}

	length := binary.BigEndian.Uint32(header[:])
	if length > maxBytes {
		return nil, newErr(FrameTooLarge, "declared frame length exceeds max_message_bytes")
	}

	payload := make([]byte, length)
	if length == 0 {
		return payload, nil
	}

	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, newErr(UnexpectedEOF, "connection closed mid-payload")
		}
		return nil, wrap(err)
	}

	return payload, nil
}

// WriteFrame writes one length-prefixed frame to w: the 4-byte big-endian
// length of payload, then payload itself. If payload exceeds maxBytes the
// call fails with FrameTooLarge before anything is written.
func WriteFrame(w io.Writer, payload []byte, maxBytes uint32) error {
	if uint32(len(payload)) > maxBytes {
		return newErr(FrameTooLarge, "payload exceeds max_message_bytes")
	}

	var header [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))

	frame := make([]byte, 0, lengthPrefixSize+len(payload))
	frame = append(frame, header[:]...)
	frame = append(frame, payload...)

	if _, err := w.Write(frame); err != nil {
		return wrap(err)
	}
	return nil
}
