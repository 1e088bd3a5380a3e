// Command walletctl is a standalone keypair and transaction-signing tool.
// It mirrors the operations the original wallet binary exposed: generate a
// keypair, print the address derived from one, check a balance against a
// running node, and sign+submit a transfer. It never talks to the chain
// directly — all network access goes through the node's RPC surface.
package main

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/validandis/node/internal/crypto"
)

const defaultRPCAddr = "http://127.0.0.1:8080"

// walletFile is the on-disk keypair format, analogous to the original
// wallet.json (secret_key/public_key/address).
type walletFile struct {
	SecretKey string `json:"secret_key"`
	PublicKey string `json:"public_key"`
	Address   string `json:"address"`
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		cmdGenerate(os.Args[2:])
	case "address":
		cmdAddress(os.Args[2:])
	case "balance":
		cmdBalance(os.Args[2:])
	case "send":
		cmdSend(os.Args[2:])
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("walletctl - keypair and transaction tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  walletctl generate -out wallet.json")
	fmt.Println("  walletctl address -wallet wallet.json")
	fmt.Println("  walletctl balance -wallet wallet.json [-rpc http://host:port]")
	fmt.Println("  walletctl send -wallet wallet.json -to ADDR -amount N [-fee N] [-nonce N] [-rpc http://host:port]")
}

func cmdGenerate(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	out := fs.String("out", "wallet.json", "output wallet file path")
	fs.Parse(args)

	kp, err := crypto.Generate()
	if err != nil {
		fatalf("generate keypair: %v", err)
	}

	wf := walletFile{
		SecretKey: hex.EncodeToString(kp.Private),
		PublicKey: kp.PublicKeyHex(),
		Address:   kp.Address(),
	}

	data, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		fatalf("encode wallet file: %v", err)
	}
	if err := os.WriteFile(*out, data, 0600); err != nil {
		fatalf("write wallet file: %v", err)
	}

	fmt.Printf("wallet written to %s\n", *out)
	fmt.Printf("address: %s\n", wf.Address)
}

func cmdAddress(args []string) {
	fs := flag.NewFlagSet("address", flag.ExitOnError)
	walletPath := fs.String("wallet", "wallet.json", "wallet file path")
	fs.Parse(args)

	wf := loadWallet(*walletPath)
	fmt.Println(wf.Address)
}

type balanceRequest struct {
	Address string `json:"address"`
}

type balanceResponse struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

func cmdBalance(args []string) {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	walletPath := fs.String("wallet", "wallet.json", "wallet file path")
	rpcAddr := fs.String("rpc", defaultRPCAddr, "node RPC base address")
	fs.Parse(args)

	wf := loadWallet(*walletPath)

	var resp balanceResponse
	postJSON(*rpcAddr+"/balance", balanceRequest{Address: wf.Address}, &resp)
	fmt.Printf("%s: %d\n", resp.Address, resp.Balance)
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

func cmdSend(args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	walletPath := fs.String("wallet", "wallet.json", "wallet file path")
	rpcAddr := fs.String("rpc", defaultRPCAddr, "node RPC base address")
	to := fs.String("to", "", "recipient address")
	amount := fs.Uint64("amount", 0, "amount to send")
	fee := fs.Uint64("fee", 0, "transaction fee")
	nonce := fs.Uint64("nonce", 0, "transaction nonce")
	fs.Parse(args)

	if *to == "" {
		fatalf("send: -to is required")
	}

	wf := loadWallet(*walletPath)
	secret, err := hex.DecodeString(wf.SecretKey)
	if err != nil || len(secret) != ed25519.PrivateKeySize {
		fatalf("wallet file has a malformed secret key")
	}
	pub, err := hex.DecodeString(wf.PublicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		fatalf("wallet file has a malformed public key")
	}
	kp := &crypto.KeyPair{Private: ed25519.PrivateKey(secret), Public: ed25519.PublicKey(pub)}

	sig := kp.Sign(wf.Address, *to, *amount, *nonce, *fee)

	req := submitRequest{
		From:       wf.Address,
		FromPubKey: wf.PublicKey,
		To:         *to,
		Amount:     *amount,
		Nonce:      *nonce,
		Fee:        *fee,
		Signature:  sig,
	}

	var resp submitResponse
	postJSON(*rpcAddr+"/submit", req, &resp)
	if !resp.Success {
		fatalf("submission rejected: %s", resp.Reason)
	}
	fmt.Println("submitted")
}

func loadWallet(path string) walletFile {
	data, err := os.ReadFile(path)
	if err != nil {
		fatalf("read wallet file: %v", err)
	}
	var wf walletFile
	if err := json.Unmarshal(data, &wf); err != nil {
		fatalf("parse wallet file: %v", err)
	}
	return wf
}

func postJSON(url string, body, out any) {
	data, err := json.Marshal(body)
	if err != nil {
		fatalf("encode request: %v", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		fatalf("request to %s: %v", url, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		fatalf("decode response from %s: %v", url, err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
