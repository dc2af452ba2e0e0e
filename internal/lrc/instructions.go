package lrc

import (
	"bytes"
	"crypto/sha256"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Instruction discriminators, sha256("global:<name>")[0:8]. Computed once and
// treated as opaque constants from then on.
var (
	instructionStartRound    = anchorInstructionDiscriminator("start_round")
	instructionSettleRound   = anchorInstructionDiscriminator("settle_round")
	instructionProcessPayout = anchorInstructionDiscriminator("process_payout")
)

// NewStartRoundInstruction opens the round identified by the config's current
// counter on the given asset at the observed start price.
func NewStartRoundInstruction(
	programID solana.PublicKey,
	config solana.PublicKey,
	round solana.PublicKey,
	vault solana.PublicKey,
	admin solana.PublicKey,
	assetSymbol string,
	startPrice int64,
) solana.Instruction {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	_ = enc.WriteBytes(instructionStartRound[:], false)
	_ = enc.WriteString(assetSymbol)
	_ = enc.WriteInt64(startPrice, bin.LE)

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(config, true, false),
		solana.NewAccountMeta(round, true, false),
		solana.NewAccountMeta(vault, false, false),
		solana.NewAccountMeta(admin, true, true),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}

	return solana.NewInstruction(programID, accounts, buf.Bytes())
}

// NewSettleRoundInstruction records the observed end price; the program
// derives the winning side and moves the round to Settling.
func NewSettleRoundInstruction(
	programID solana.PublicKey,
	config solana.PublicKey,
	round solana.PublicKey,
	admin solana.PublicKey,
	endPrice int64,
) solana.Instruction {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	_ = enc.WriteBytes(instructionSettleRound[:], false)
	_ = enc.WriteInt64(endPrice, bin.LE)

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(config, false, false),
		solana.NewAccountMeta(round, true, false),
		solana.NewAccountMeta(admin, false, true),
	}

	return solana.NewInstruction(programID, accounts, buf.Bytes())
}

// NewProcessPayoutInstruction pays out a single bet from the round vault.
func NewProcessPayoutInstruction(
	programID solana.PublicKey,
	round solana.PublicKey,
	bet solana.PublicKey,
	vault solana.PublicKey,
	bettor solana.PublicKey,
) solana.Instruction {
	data := make([]byte, len(instructionProcessPayout))
	copy(data, instructionProcessPayout[:])

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(round, true, false),
		solana.NewAccountMeta(bet, true, false),
		solana.NewAccountMeta(vault, true, false),
		solana.NewAccountMeta(bettor, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}

	return solana.NewInstruction(programID, accounts, data)
}

func anchorInstructionDiscriminator(ixName string) [8]byte {
	hash := sha256.Sum256([]byte("global:" + ixName))
	var out [8]byte
	copy(out[:], hash[:8])
	return out
}
