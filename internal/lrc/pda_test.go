package lrc

import (
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestDerivePDAsDeterministic(t *testing.T) {
	programID := solana.NewWallet().PublicKey()

	config1, bump1, err := DeriveConfigPDA(programID)
	if err != nil {
		t.Fatalf("DeriveConfigPDA: %v", err)
	}
	config2, bump2, err := DeriveConfigPDA(programID)
	if err != nil {
		t.Fatalf("DeriveConfigPDA: %v", err)
	}
	if config1 != config2 || bump1 != bump2 {
		t.Fatalf("config PDA not deterministic: %s/%d vs %s/%d", config1, bump1, config2, bump2)
	}

	round1, _, err := DeriveRoundPDA(programID, 42)
	if err != nil {
		t.Fatalf("DeriveRoundPDA: %v", err)
	}
	round2, _, err := DeriveRoundPDA(programID, 42)
	if err != nil {
		t.Fatalf("DeriveRoundPDA: %v", err)
	}
	if round1 != round2 {
		t.Fatalf("round PDA not deterministic: %s vs %s", round1, round2)
	}
}

func TestDerivePDAsDistinct(t *testing.T) {
	programID := solana.NewWallet().PublicKey()

	round42, _, _ := DeriveRoundPDA(programID, 42)
	round43, _, _ := DeriveRoundPDA(programID, 43)
	if round42 == round43 {
		t.Fatal("distinct round ids must derive distinct addresses")
	}

	vault42, _, _ := DeriveVaultPDA(programID, 42)
	if vault42 == round42 {
		t.Fatal("vault and round seeds must not collide")
	}

	bet0, _, _ := DeriveBetPDA(programID, 42, 0)
	bet1, _, _ := DeriveBetPDA(programID, 42, 1)
	if bet0 == bet1 {
		t.Fatal("distinct bet indexes must derive distinct addresses")
	}

	otherProgram := solana.NewWallet().PublicKey()
	roundOther, _, _ := DeriveRoundPDA(otherProgram, 42)
	if roundOther == round42 {
		t.Fatal("addresses must be scoped to the program id")
	}
}
