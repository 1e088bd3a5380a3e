package network

import (
	"errors"
	"net"

	"github.com/rs/zerolog/log"

	"github.com/validandis/node/internal/peer"
)

// InboundCap is the bounded capacity of both the general inbound channel
// and the dedicated TPI channel (spec.md §5).
const InboundCap = 100

// Listener accepts connections and demultiplexes framed messages onto two
// channels: TpiHash messages go to a dedicated, latency-sensitive channel;
// everything else goes to the general inbound channel.
type Listener struct {
	Peers    *peer.Table
	Inbound  chan Inbound
	TpiChan  chan Message
	listener net.Listener
}

// NewListener creates a Listener with bounded channels per spec.md §5.
func NewListener(peers *peer.Table) *Listener {
	return &Listener{
		Peers:   peers,
		Inbound: make(chan Inbound, InboundCap),
		TpiChan: make(chan Message, InboundCap),
	}
}

// Serve binds addr and runs the accept loop, spawning one handler
// goroutine per connection. It blocks until the listener is closed.
func (l *Listener) Serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	l.listener = ln
	log.Info().Str("addr", addr).Msg("listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Error().Err(err).Msg("accept error")
			continue
		}

		peerAddr := conn.RemoteAddr().String()
		l.Peers.Add(peerAddr)
		l.Peers.MarkConnected(peerAddr)

		go l.handle(conn, peerAddr)
	}
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	if l.listener == nil {
		return nil
	}
	return l.listener.Close()
}

// handle reads framed messages from conn until error or EOF, updating the
// peer's last-seen timestamp on each message and routing TpiHash messages
// to the dedicated channel.
func (l *Listener) handle(conn net.Conn, peerAddr string) {
	defer conn.Close()

	for {
		msg, err := ReadFrame(conn)
		if err != nil {
			log.Debug().Err(err).Str("peer", peerAddr).Msg("connection closed")
			l.Peers.MarkDisconnected(peerAddr)
			return
		}

		l.Peers.UpdateSeen(peerAddr)
		l.dispatch(msg, peerAddr)
	}
}

func (l *Listener) dispatch(msg Message, peerAddr string) {
	if msg.Kind == KindTpiHash {
		select {
		case l.TpiChan <- msg:
		default:
			// Channel full: TPI is time-bounded per slot, dropping the
			// oldest-equivalent overflow is acceptable (spec.md §5).
			<-l.TpiChan
			l.TpiChan <- msg
		}
		return
	}

	select {
	case l.Inbound <- Inbound{Message: msg, From: peerAddr}:
	default:
		<-l.Inbound
		l.Inbound <- Inbound{Message: msg, From: peerAddr}
	}
}
