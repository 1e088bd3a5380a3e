package network

import (
	"net"

	"github.com/rs/zerolog/log"

	"github.com/validandis/node/internal/peer"
)

// Broadcast sends msg to every connected peer over a fresh connection each.
// Best-effort: failures are logged and ignored, with no retry and no
// fan-in (spec.md §4.E).
func Broadcast(msg Message, peers *peer.Table) {
	for _, addr := range peers.ConnectedPeers() {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			log.Warn().Err(err).Str("peer", addr).Msg("broadcast dial failed")
			continue
		}

		if err := WriteFrame(conn, msg); err != nil {
			log.Warn().Err(err).Str("peer", addr).Msg("broadcast send failed")
		}
		conn.Close()
	}
}
