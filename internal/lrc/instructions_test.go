package lrc

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
)

// Discriminators as emitted by the on-chain program's IDL.
func TestInstructionDiscriminators(t *testing.T) {
	cases := []struct {
		name string
		got  [8]byte
		want [8]byte
	}{
		{"start_round", instructionStartRound, [8]byte{144, 144, 43, 7, 193, 42, 217, 215}},
		{"settle_round", instructionSettleRound, [8]byte{40, 101, 18, 1, 31, 129, 52, 77}},
		{"process_payout", instructionProcessPayout, [8]byte{48, 192, 129, 57, 230, 161, 233, 148}},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("%s discriminator = %v, want %v", tc.name, tc.got, tc.want)
		}
	}
}

func TestNewStartRoundInstruction(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	config := solana.NewWallet().PublicKey()
	round := solana.NewWallet().PublicKey()
	vault := solana.NewWallet().PublicKey()
	admin := solana.NewWallet().PublicKey()

	ix := NewStartRoundInstruction(programID, config, round, vault, admin, "WIF", 250_000_000)

	if ix.ProgramID() != programID {
		t.Fatalf("program id = %s, want %s", ix.ProgramID(), programID)
	}

	data, err := ix.Data()
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	if !bytes.Equal(data[:8], instructionStartRound[:]) {
		t.Fatalf("data tag = %v, want start_round", data[:8])
	}
	if got := binary.LittleEndian.Uint32(data[8:12]); got != 3 {
		t.Fatalf("symbol length = %d, want 3", got)
	}
	if got := string(data[12:15]); got != "WIF" {
		t.Fatalf("symbol = %q, want WIF", got)
	}
	if got := int64(binary.LittleEndian.Uint64(data[15:23])); got != 250_000_000 {
		t.Fatalf("start price = %d, want 250000000", got)
	}

	accounts := ix.Accounts()
	if len(accounts) != 5 {
		t.Fatalf("got %d accounts, want 5", len(accounts))
	}
	if accounts[3].PublicKey != admin || !accounts[3].IsSigner || !accounts[3].IsWritable {
		t.Fatalf("admin meta = %+v, want writable signer", accounts[3])
	}
	if accounts[4].PublicKey != solana.SystemProgramID {
		t.Fatalf("last account = %s, want system program", accounts[4].PublicKey)
	}
}

func TestNewSettleRoundInstruction(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	round := solana.NewWallet().PublicKey()
	admin := solana.NewWallet().PublicKey()

	ix := NewSettleRoundInstruction(programID, solana.NewWallet().PublicKey(), round, admin, -7_500_000)

	data, err := ix.Data()
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	if !bytes.Equal(data[:8], instructionSettleRound[:]) {
		t.Fatalf("data tag = %v, want settle_round", data[:8])
	}
	if got := int64(binary.LittleEndian.Uint64(data[8:16])); got != -7_500_000 {
		t.Fatalf("end price = %d, want -7500000", got)
	}

	accounts := ix.Accounts()
	if len(accounts) != 3 {
		t.Fatalf("got %d accounts, want 3", len(accounts))
	}
	if accounts[1].PublicKey != round || !accounts[1].IsWritable {
		t.Fatalf("round meta = %+v, want writable", accounts[1])
	}
	if !accounts[2].IsSigner {
		t.Fatal("admin must sign settle_round")
	}
}

func TestNewProcessPayoutInstruction(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	round := solana.NewWallet().PublicKey()
	bet := solana.NewWallet().PublicKey()
	vault := solana.NewWallet().PublicKey()
	bettor := solana.NewWallet().PublicKey()

	ix := NewProcessPayoutInstruction(programID, round, bet, vault, bettor)

	data, err := ix.Data()
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	if !bytes.Equal(data, instructionProcessPayout[:]) {
		t.Fatalf("data = %v, want bare process_payout tag", data)
	}

	accounts := ix.Accounts()
	if len(accounts) != 5 {
		t.Fatalf("got %d accounts, want 5", len(accounts))
	}
	for i, want := range []solana.PublicKey{round, bet, vault, bettor} {
		if accounts[i].PublicKey != want {
			t.Fatalf("account %d = %s, want %s", i, accounts[i].PublicKey, want)
		}
		if !accounts[i].IsWritable {
			t.Fatalf("account %d must be writable", i)
		}
	}
}
