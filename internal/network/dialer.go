package network

import (
	"fmt"
	"net"

	"github.com/rs/zerolog/log"

	"github.com/validandis/node/internal/peer"
)

// Dial connects to addr, sends a handshake advertising myAddr and the
// locally known peers, then enters the same read loop as the listener
// (spec.md §4.E).
func (l *Listener) Dial(addr, myAddr string, genesisTimestamp int64) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	handshake := NewHandshake(myAddr, l.Peers.AllKnownPeers(), genesisTimestamp)
	if err := WriteFrame(conn, handshake); err != nil {
		conn.Close()
		return fmt.Errorf("send handshake to %s: %w", addr, err)
	}

	l.Peers.Add(addr)
	l.Peers.MarkConnected(addr)

	log.Info().Str("peer", addr).Msg("connected")
	go l.handle(conn, addr)
	return nil
}
