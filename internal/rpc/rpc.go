// Package rpc implements the node's HTTP surface: balance and block
// lookups, transaction submission, and the dashboard feeds (spec.md §6).
// It is a thin read/write adapter over internal/chain, internal/peer, and
// internal/dashboard — it carries no consensus logic of its own.
package rpc

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/validandis/node/internal/chain"
	"github.com/validandis/node/internal/config"
	vcrypto "github.com/validandis/node/internal/crypto"
	"github.com/validandis/node/internal/dashboard"
	"github.com/validandis/node/internal/middleware"
	"github.com/validandis/node/internal/obsmetrics"
	"github.com/validandis/node/internal/peer"
)

// Server wires the RPC handlers to the node's collaborators.
type Server struct {
	State   *chain.State
	Mempool *chain.Mempool
	Peers   *peer.Table
	Board   *dashboard.Board
	Metrics *obsmetrics.Metrics
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler builds the full middleware-wrapped HTTP handler for the RPC
// surface, following the teacher's Chain(...) composition pattern.
func (s *Server) Handler(corsCfg config.CORSConfig, rateLimitCfg config.RateLimitConfig, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/balance", s.handleBalance)
	mux.HandleFunc("/latest_slot", s.handleLatestSlot)
	mux.HandleFunc("/block", s.handleBlock)
	mux.HandleFunc("/submit", s.handleSubmit)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/blocks", s.handleBlocks)
	mux.HandleFunc("/peers", s.handlePeers)
	mux.HandleFunc("/transactions", s.handleTransactions)
	mux.HandleFunc("/logs", s.handleLogs)
	mux.HandleFunc("/ws", s.handleWS)
	mux.Handle("/metrics", promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}))

	return middleware.Chain(
		mux,
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logging(logger),
		middleware.Metrics(s.Metrics),
		middleware.CORS(corsCfg),
		middleware.RateLimit(rateLimitCfg),
	)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

type balanceRequest struct {
	Address string `json:"address"`
}

type balanceResponse struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req balanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{
		Address: req.Address,
		Balance: s.State.GetBalance(req.Address),
	})
}

func (s *Server) handleLatestSlot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]uint64{"latest_slot": s.State.LatestSlot()})
}

type blockRequest struct {
	Slot uint64 `json:"slot"`
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req blockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	block, ok := s.State.GetBlock(req.Slot)
	if !ok {
		http.Error(w, "block not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

type submitRequest struct {
	From       string `json:"from"`
	FromPubKey string `json:"from_pubkey"`
	To         string `json:"to"`
	Amount     uint64 `json:"amount"`
	Nonce      uint64 `json:"nonce"`
	Fee        uint64 `json:"fee"`
	Signature  string `json:"signature"`
}

type submitResponse struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if !vcrypto.Verify(req.FromPubKey, req.From, req.To, req.Amount, req.Nonce, req.Fee, req.Signature) {
		writeJSON(w, http.StatusOK, submitResponse{Success: false, Reason: "invalid signature"})
		return
	}

	tx := chain.Transaction{
		From:       req.From,
		FromPubKey: req.FromPubKey,
		To:         req.To,
		Amount:     req.Amount,
		Nonce:      req.Nonce,
		Fee:        req.Fee,
		Signature:  req.Signature,
	}

	if !s.Mempool.Add(tx) {
		writeJSON(w, http.StatusOK, submitResponse{Success: false, Reason: "mempool full or duplicate transaction"})
		return
	}

	s.Board.SetMempoolSize(s.Mempool.Len())
	writeJSON(w, http.StatusOK, submitResponse{Success: true})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Board.Status())
}

func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Board.Blocks())
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Board.Peers())
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Board.Transactions())
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Board.Logs())
}

// handleWS upgrades to a WebSocket connection and pushes the dashboard
// status snapshot once per second until the connection closes.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.WriteJSON(s.Board.Status()); err != nil {
			return
		}
	}
}
