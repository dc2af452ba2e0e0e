package keeper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/cannedoxygen/microperps/internal/config"
)

// newStalledRPC serves a node that accepts transactions but never reports
// them confirmed.
func newStalledRPC(t *testing.T) *httptest.Server {
	t.Helper()
	const (
		// 32 and 64 zero bytes in base58
		blockhash = "11111111111111111111111111111111"
		signature = "1111111111111111111111111111111111111111111111111111111111111111"
	)
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		_ = json.Unmarshal(body, &req)

		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "getLatestBlockhash":
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":{"context":{"slot":1},"value":{"blockhash":"%s","lastValidBlockHeight":100}}}`, req.ID, blockhash)
		case "sendTransaction":
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":"%s"}`, req.ID, signature)
		case "getSignatureStatuses":
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":{"context":{"slot":1},"value":[null]}}`, req.ID)
		default:
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"error":{"code":-32601,"message":"method not found"}}`, req.ID)
		}
	}))
}

// A payout send against a node that never confirms must give up once
// TxTimeout elapses, even when the caller's context has no deadline.
func TestPayoutSendBoundedByTxTimeout(t *testing.T) {
	srv := newStalledRPC(t)
	defer srv.Close()

	wallet := solana.NewWallet()
	s := &Service{
		cfg: config.KeeperConfig{
			TxTimeout:  150 * time.Millisecond,
			Commitment: rpc.CommitmentConfirmed,
		},
		rpc:    rpc.New(srv.URL),
		signer: wallet.PrivateKey,
		logger: slog.New(slog.DiscardHandler),
	}

	ops := makeOps(t, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.sendPayoutBatch(context.Background(), []solana.Instruction{ops[0].ix})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("payout send still waiting on confirmation after 5s")
	}
}
