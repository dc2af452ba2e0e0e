package lrc

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// PDA seed tags used by the left-right-candle program.
const (
	seedConfig = "config"
	seedRound  = "round"
	seedBet    = "bet"
	seedVault  = "vault"
)

func DeriveConfigPDA(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(seedConfig)}, programID)
}

func DeriveRoundPDA(programID solana.PublicKey, roundID uint64) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(seedRound), u64LE(roundID)}, programID)
}

func DeriveBetPDA(programID solana.PublicKey, roundID uint64, betIndex uint32) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(seedBet), u64LE(roundID), u32LE(betIndex)}, programID)
}

func DeriveVaultPDA(programID solana.PublicKey, roundID uint64) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(seedVault), u64LE(roundID)}, programID)
}

func u64LE(value uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, value)
	return buf
}

func u32LE(value uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, value)
	return buf
}
