package network

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"
)

// MaxBodyBytes is the maximum JSON body length of a framed message
// (spec.md §4.E, §6).
const MaxBodyBytes = 262_144

// IOTimeout bounds every framed read or write operation.
const IOTimeout = 30 * time.Second

// ErrOversizedFrame is returned when a frame's declared or actual length
// exceeds MaxBodyBytes.
var ErrOversizedFrame = fmt.Errorf("network: frame exceeds %d bytes", MaxBodyBytes)

// WriteFrame encodes msg as JSON and writes it as a 4-byte big-endian
// length prefix followed by the body, bounded by IOTimeout.
func WriteFrame(conn net.Conn, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if len(body) > MaxBodyBytes {
		return ErrOversizedFrame
	}

	if err := conn.SetWriteDeadline(time.Now().Add(IOTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))

	if _, err := conn.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("write length prefix: %w", err)
	}
	if _, err := conn.Write(body); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed JSON message, bounded by IOTimeout
// per read operation (length read and body read each get their own
// deadline).
func ReadFrame(conn net.Conn) (Message, error) {
	var msg Message

	if err := conn.SetReadDeadline(time.Now().Add(IOTimeout)); err != nil {
		return msg, fmt.Errorf("set read deadline: %w", err)
	}
	var lenBuf [4]byte
	if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
		return msg, fmt.Errorf("read length prefix: %w", err)
	}

	length := binary.BigEndian.Uint32(lenBuf[:])
	if length > MaxBodyBytes {
		return msg, ErrOversizedFrame
	}

	if err := conn.SetReadDeadline(time.Now().Add(IOTimeout)); err != nil {
		return msg, fmt.Errorf("set read deadline: %w", err)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(conn, body); err != nil {
		return msg, fmt.Errorf("read body: %w", err)
	}

	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("unmarshal message: %w", err)
	}
	return msg, nil
}
