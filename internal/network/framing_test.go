package network

import (
	"net"
	"strings"
	"testing"

	"github.com/validandis/node/internal/chain"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	msg := NewBlockMessage(chain.Block{Slot: 5, Producer: "v1"})

	done := make(chan error, 1)
	go func() {
		done <- WriteFrame(client, msg)
	}()

	got, err := ReadFrame(server)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("write frame: %v", err)
	}

	if got.Kind != KindNewBlock || got.Block == nil || got.Block.Slot != 5 {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestWriteFrameRejectsOversizedBody(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	huge := strings.Repeat("x", MaxBodyBytes+1)
	msg := Message{Kind: KindPing, PeerAddr: huge}

	if err := WriteFrame(client, msg); err != ErrOversizedFrame {
		t.Fatalf("expected ErrOversizedFrame, got %v", err)
	}
}

func TestReadFrameRejectsOversizedLengthPrefix(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		// Hand-craft a length prefix declaring more than MaxBodyBytes.
		lenBuf := []byte{0x00, 0x04, 0x00, 0x01} // 262145
		client.Write(lenBuf)
	}()

	_, err := ReadFrame(server)
	if err == nil {
		t.Fatal("expected error for oversized length prefix")
	}
}
