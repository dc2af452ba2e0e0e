package keeper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/cannedoxygen/microperps/internal/lrc"
	"github.com/cannedoxygen/microperps/internal/retry"
)

// payoutOp is one process_payout instruction tied back to its bet index for
// logging and accounting.
type payoutOp struct {
	betIndex uint32
	ix       solana.Instruction
}

// processPayouts submits process_payout for every unpaid bet of a settling
// round. Returns the number of payouts confirmed; failures are logged and
// left for the next sweep.
func (s *Service) processPayouts(ctx context.Context, round *lrc.Round) int {
	if round.Status != lrc.StatusSettling || round.BetCount == 0 {
		return 0
	}

	ops, err := s.collectPayoutOps(ctx, round)
	if err != nil {
		s.logger.Warn("failed to collect payout instructions", "round_id", round.RoundID, "err", err)
		return 0
	}
	if len(ops) == 0 {
		return 0
	}

	processed := submitBatches(ctx, ops, s.cfg.BatchSize, s.batchPolicy, s.sendPayoutBatch, s.logger.With("round_id", round.RoundID))
	metricPayoutsProcessed.Add(float64(processed))

	s.logger.Info("payout pass complete",
		"round_id", round.RoundID,
		"pending", len(ops),
		"processed", processed,
	)
	return processed
}

// sendPayoutBatch bounds one payout transaction by TxTimeout, the same way
// settle and start sends are bounded, so a stuck confirmation cannot stall
// the sweep.
func (s *Service) sendPayoutBatch(ctx context.Context, instructions []solana.Instruction) error {
	txCtx, cancel := context.WithTimeout(ctx, s.cfg.TxTimeout)
	defer cancel()
	_, err := s.sendAndConfirm(txCtx, instructions)
	return err
}

// collectPayoutOps reads every bet of the round and builds instructions for
// the ones not yet paid. Missing bet accounts are skipped; an account can be
// closed once its payout lands.
func (s *Service) collectPayoutOps(ctx context.Context, round *lrc.Round) ([]payoutOp, error) {
	roundKey, _, err := lrc.DeriveRoundPDA(s.cfg.ProgramID, round.RoundID)
	if err != nil {
		return nil, fmt.Errorf("derive round PDA: %w", err)
	}
	vaultKey, _, err := lrc.DeriveVaultPDA(s.cfg.ProgramID, round.RoundID)
	if err != nil {
		return nil, fmt.Errorf("derive vault PDA: %w", err)
	}

	betKeys := make([]solana.PublicKey, 0, round.BetCount)
	for index := uint32(0); index < round.BetCount; index++ {
		betKey, _, err := lrc.DeriveBetPDA(s.cfg.ProgramID, round.RoundID, index)
		if err != nil {
			return nil, fmt.Errorf("derive bet PDA %d: %w", index, err)
		}
		betKeys = append(betKeys, betKey)
	}

	ops := make([]payoutOp, 0, len(betKeys))
	// getMultipleAccounts caps at 100 keys per call.
	const fetchChunk = 100
	for offset := 0; offset < len(betKeys); offset += fetchChunk {
		end := offset + fetchChunk
		if end > len(betKeys) {
			end = len(betKeys)
		}

		fetched, err := s.rpc.GetMultipleAccountsWithOpts(ctx, betKeys[offset:end], &rpc.GetMultipleAccountsOpts{Commitment: s.cfg.Commitment})
		if err != nil {
			return nil, fmt.Errorf("fetch bet accounts [%d,%d): %w", offset, end, err)
		}

		for i, account := range fetched.Value {
			index := uint32(offset + i)
			if account == nil {
				s.logger.Debug("bet account missing, skipping", "round_id", round.RoundID, "bet_index", index)
				continue
			}
			bet, err := lrc.DecodeBet(account.Data.GetBinary())
			if err != nil {
				s.logger.Warn("failed to decode bet account", "round_id", round.RoundID, "bet_index", index, "err", err)
				continue
			}
			if bet.PaidOut {
				continue
			}

			ops = append(ops, payoutOp{
				betIndex: index,
				ix: lrc.NewProcessPayoutInstruction(
					s.cfg.ProgramID,
					roundKey,
					betKeys[offset+i],
					vaultKey,
					bet.Bettor,
				),
			})
		}
	}

	return ops, nil
}

// submitBatches groups ops into transactions of batchSize instructions, each
// batch retried per the policy. A batch that exhausts its retries falls back
// to one transaction per instruction so a single bad bet cannot block the
// rest of its batch.
func submitBatches(
	ctx context.Context,
	ops []payoutOp,
	batchSize int,
	policy retry.Policy,
	send func(ctx context.Context, instructions []solana.Instruction) error,
	logger *slog.Logger,
) int {
	if batchSize <= 0 {
		batchSize = 1
	}

	processed := 0
	for offset := 0; offset < len(ops); offset += batchSize {
		if ctx.Err() != nil {
			return processed
		}
		end := offset + batchSize
		if end > len(ops) {
			end = len(ops)
		}
		batch := ops[offset:end]

		instructions := make([]solana.Instruction, len(batch))
		for i, op := range batch {
			instructions[i] = op.ix
		}

		err := policy.Do(ctx, func(ctx context.Context) error {
			return send(ctx, instructions)
		})
		if err == nil {
			processed += len(batch)
			continue
		}
		metricPayoutBatchFailures.Inc()
		logger.Warn("payout batch failed, retrying bets individually",
			"from_index", batch[0].betIndex,
			"to_index", batch[len(batch)-1].betIndex,
			"err", err,
		)

		for _, op := range batch {
			if ctx.Err() != nil {
				return processed
			}
			if err := send(ctx, []solana.Instruction{op.ix}); err != nil {
				logger.Warn("payout failed", "bet_index", op.betIndex, "err", err)
				continue
			}
			processed++
		}
	}

	return processed
}
